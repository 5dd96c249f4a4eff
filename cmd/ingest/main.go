// Command ingest runs one ingestion pass from the command line.
//
// Usage:
//
//	huddle-ingest day
//	huddle-ingest season --season 2024-2025
//	huddle-ingest season --dry-run
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fortuna/huddle/internal/config"
	"github.com/fortuna/huddle/internal/ingest"
	"github.com/fortuna/huddle/internal/ingest/sportsdb"
	"github.com/fortuna/huddle/internal/runs"
	"github.com/fortuna/huddle/internal/store"
	"github.com/fortuna/huddle/internal/store/repository"
)

const (
	appName    = "huddle-ingest"
	appVersion = "1.0.0"
)

type options struct {
	season string
	dryRun bool
}

func main() {
	var opts options

	root := &cobra.Command{
		Use:          appName,
		Short:        "Fetch TheSportsDB schedules into the games table",
		Version:      appVersion,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "Fetch and validate without writing to the database")

	root.AddCommand(dayCmd(&opts))
	root.AddCommand(seasonCmd(&opts))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func dayCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "day",
		Short: "Ingest every event in the rolling day window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(ingest.VariantDay, opts)
		},
	}
}

func seasonCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "season",
		Short: "Ingest every league's schedule for one season",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(ingest.VariantSeason, opts)
		},
	}
	cmd.Flags().StringVar(&opts.season, "season", "", "Season to fetch, e.g. 2024-2025 (default from config)")
	return cmd
}

func runIngest(variant ingest.Variant, opts *options) error {
	log.Printf("=== %s v%s ===", appName, appVersion)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.season != "" {
		cfg.SportsDB.Season = opts.season
	}

	db, err := store.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := prepareSchema(db, opts.dryRun); err != nil {
		return err
	}

	dry := &dryRunWriter{}
	var writer ingest.GameWriter = repository.NewGameRepository(db)
	if opts.dryRun {
		writer = dry
	}

	pipeline := ingest.NewPipeline(
		sportsdb.NewClient(cfg.Client()),
		repository.NewSportRepository(db),
		writer,
		nil,
		&consoleReporter{dryRun: opts.dryRun},
		cfg.Pipeline(),
		log.New(log.Writer(), "[ingest] ", log.LstdFlags),
	)

	if opts.dryRun {
		if _, err := pipeline.Run(ctx, variant); err != nil {
			return fmt.Errorf("%s run failed: %w", variant, err)
		}
		log.Printf("Dry run: %d games would have been upserted", dry.games)
		return nil
	}

	svc := runs.NewService(runs.NewRepository(db), pipeline, nil, nil)
	run, _, err := svc.Execute(ctx, variant, runs.TriggerCLI)
	if err != nil {
		return fmt.Errorf("%s run failed: %w", variant, err)
	}

	log.Printf("✓ Run %s recorded", run.RunID)
	return nil
}

type migrator interface {
	RunMigrations() error
}

// prepareSchema applies migrations unless this is a dry run, which must not write anything
func prepareSchema(db migrator, dryRun bool) error {
	if dryRun {
		log.Println("Dry run: skipping migrations")
		return nil
	}
	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
