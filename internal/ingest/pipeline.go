package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/fortuna/huddle/internal/ingest/sportsdb"
	"github.com/fortuna/huddle/internal/store"
)

const (
	DefaultWindowDays = 3
	DefaultSeason     = "2024-2025"
)

// Config tunes both ingestion variants
type Config struct {
	WindowDays   int
	Season       string
	BatchSize    int
	DayPolicy    store.ConflictPolicy
	SeasonPolicy store.ConflictPolicy
}

func (c Config) withDefaults() Config {
	if c.WindowDays <= 0 {
		c.WindowDays = DefaultWindowDays
	}
	if strings.TrimSpace(c.Season) == "" {
		c.Season = DefaultSeason
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.DayPolicy == "" {
		c.DayPolicy = store.ConflictOverwrite
	}
	if c.SeasonPolicy == "" {
		c.SeasonPolicy = store.ConflictOverwrite
	}
	return c
}

// Pipeline fetches, normalizes, deduplicates and stores upstream schedules
type Pipeline struct {
	source   EventSource
	catalog  SportCatalog
	writer   GameWriter
	cache    SportIDCache
	reporter Reporter
	cfg      Config
	logger   *log.Logger

	now func() time.Time
}

// NewPipeline wires a pipeline. cache and reporter may be nil.
func NewPipeline(source EventSource, catalog SportCatalog, writer GameWriter, cache SportIDCache, reporter Reporter, cfg Config, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(log.Writer(), "[ingest] ", log.LstdFlags)
	}

	return &Pipeline{
		source:   source,
		catalog:  catalog,
		writer:   writer,
		cache:    cache,
		reporter: reporter,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// Run dispatches to the variant's traversal
func (p *Pipeline) Run(ctx context.Context, variant Variant) (Summary, error) {
	switch variant {
	case VariantDay:
		return p.RunDayWindow(ctx)
	case VariantSeason:
		return p.RunSeason(ctx)
	default:
		return Summary{Variant: variant}, fmt.Errorf("unknown ingest variant %q", variant)
	}
}

// RunDayWindow ingests every event listed for today and the following WindowDays-1 UTC days.
// A failed day fetch zeroes the whole window.
func (p *Pipeline) RunDayWindow(ctx context.Context) (Summary, error) {
	summary := p.begin(VariantDay)

	events, err := p.fetchWindow(ctx)
	if err != nil {
		summary.FetchErrors++
		p.logger.Printf("⚠️  Error fetching day window, treating as empty: %v", err)
		events = nil
	}
	summary.Fetched = len(events)
	summary.Matched = len(events)

	resolver := NewSportResolver(p.catalog, p.cache, p.logger)
	now := p.now()

	games := make([]store.Game, 0, len(events))
	for _, ev := range events {
		sportID, err := resolver.Resolve(ctx, ev.Sport)
		if err != nil {
			return p.finish(summary), err
		}

		mapped := NormalizeEvent(ev, Resolution{SportID: sportID, LeagueID: parseLeagueID(ev.LeagueID)}, now)
		p.recordIssues(&summary, ev, mapped)
		games = append(games, mapped.Game)
	}
	summary.Normalized = len(games)

	unique := Deduplicate(games)
	summary.Unique = len(unique)

	upserter := NewUpserter(p.writer, p.cfg.BatchSize, p.reporter, p.logger)
	summary.addUpload(upserter.Upload(ctx, VariantDay, unique, p.cfg.DayPolicy))

	p.logger.Printf("✓ Day window complete: fetched=%d valid=%d written=%d failed_batches=%d",
		summary.Fetched, summary.Valid, summary.Written, summary.FailedBatches)

	return p.finish(summary), nil
}

// RunSeason ingests the configured season for every league of every stored sport.
// A failed league fetch contributes zero events; a failed sport listing aborts the run.
func (p *Pipeline) RunSeason(ctx context.Context) (Summary, error) {
	summary := p.begin(VariantSeason)

	sports, err := p.catalog.ListSports(ctx)
	if err != nil {
		return p.finish(summary), fmt.Errorf("listing sports: %w", err)
	}

	upserter := NewUpserter(p.writer, p.cfg.BatchSize, p.reporter, p.logger)
	now := p.now()

	for _, sport := range sports {
		if err := ctx.Err(); err != nil {
			return p.finish(summary), err
		}

		var games []store.Game
		for _, leagueID := range sport.Leagues {
			events, err := p.source.EventsBySeason(ctx, leagueID, p.cfg.Season)
			if err != nil {
				summary.FetchErrors++
				p.logger.Printf("⚠️  Error fetching season %s for league %d (%s): %v", p.cfg.Season, leagueID, sport.Name, err)
				continue
			}
			summary.Fetched += len(events)

			wantLeague := strconv.FormatInt(leagueID, 10)
			res := Resolution{SportID: nullInt64(int64(sport.ID)), LeagueID: nullInt64(leagueID)}

			for _, ev := range events {
				if ev.LeagueID != wantLeague {
					continue
				}
				summary.Matched++

				mapped := NormalizeEvent(ev, res, now)
				p.recordIssues(&summary, ev, mapped)
				games = append(games, mapped.Game)
			}
		}
		summary.Normalized += len(games)

		unique := Deduplicate(games)
		summary.Unique += len(unique)

		result := upserter.Upload(ctx, VariantSeason, unique, p.cfg.SeasonPolicy)
		summary.addUpload(result)

		p.logger.Printf("✓ %s: %d games valid, %d written", sport.Name, result.Valid, result.Written)
	}

	p.logger.Printf("✓ Season %s complete: fetched=%d valid=%d written=%d failed_batches=%d",
		p.cfg.Season, summary.Fetched, summary.Valid, summary.Written, summary.FailedBatches)

	return p.finish(summary), nil
}

func (p *Pipeline) fetchWindow(ctx context.Context) ([]sportsdb.RawEvent, error) {
	today := p.now().UTC().Truncate(24 * time.Hour)

	var events []sportsdb.RawEvent
	for i := 0; i < p.cfg.WindowDays; i++ {
		day := today.AddDate(0, 0, i)
		dayEvents, err := p.source.EventsByDay(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", day.Format("2006-01-02"), err)
		}
		events = append(events, dayEvents...)
	}
	return events, nil
}

func (p *Pipeline) recordIssues(summary *Summary, ev sportsdb.RawEvent, mapped Mapped) {
	if mapped.OK() {
		return
	}
	summary.MappingIssues += len(mapped.Issues)
	for _, issue := range mapped.Issues {
		p.logger.Printf("Mapping issue for event %s: %s", ev.ID, issue)
	}
}

func (p *Pipeline) begin(variant Variant) Summary {
	if p.reporter != nil {
		p.reporter.OnRunStart(variant)
	}
	return Summary{Variant: variant, StartedAt: p.now().UTC()}
}

func (p *Pipeline) finish(summary Summary) Summary {
	summary.CompletedAt = p.now().UTC()
	if p.reporter != nil {
		p.reporter.OnRunComplete(summary)
	}
	return summary
}

// parseLeagueID converts the upstream league string; anything non-numeric is invalid
func parseLeagueID(raw string) sql.NullInt64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return sql.NullInt64{}
	}
	return nullInt64(id)
}
