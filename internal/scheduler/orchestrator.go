package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fortuna/huddle/internal/ingest"
	"github.com/fortuna/huddle/internal/runs"
)

// Runner executes and records one ingestion run
type Runner interface {
	Execute(ctx context.Context, variant ingest.Variant, trigger runs.Trigger) (*runs.Run, ingest.Summary, error)
}

// Config holds scheduler configuration
type Config struct {
	Enabled        bool           // Default: true
	DaySchedule    string         // Default: @every 1h
	SeasonSchedule string         // Default: 0 3 * * *
	Location       *time.Location // Default: America/New_York
	RunTimeout     time.Duration  // Default: 30m
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() *Config {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &Config{
		Enabled:        true,
		DaySchedule:    "@every 1h",
		SeasonSchedule: "0 3 * * *",
		Location:       loc,
		RunTimeout:     30 * time.Minute,
	}
}

// JobStatus describes one scheduled job
type JobStatus struct {
	Variant     ingest.Variant `json:"variant"`
	Schedule    string         `json:"schedule"`
	NextRun     *time.Time     `json:"next_run,omitempty"`
	LastRun     *time.Time     `json:"last_run,omitempty"`
	LastRunID   string         `json:"last_run_id,omitempty"`
	LastCount   int            `json:"last_count"`
	LastError   string         `json:"last_error,omitempty"`
	Invocations int            `json:"invocations"`
}

// Status is returned to API callers
type Status struct {
	Enabled  bool        `json:"enabled"`
	Timezone string      `json:"timezone"`
	Jobs     []JobStatus `json:"jobs"`
}

type job struct {
	entryID cron.EntryID
	status  JobStatus
}

// Orchestrator runs the ingestion variants on cron schedules
type Orchestrator struct {
	runner Runner
	config *Config
	cron   *cron.Cron
	logger *log.Logger

	mu   sync.Mutex
	jobs []*job
}

// NewOrchestrator validates the schedules and registers both jobs
func NewOrchestrator(runner Runner, config *Config, logger *log.Logger) (*Orchestrator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[scheduler] ", log.LstdFlags)
	}

	o := &Orchestrator{
		runner: runner,
		config: config,
		cron:   cron.New(cron.WithLocation(config.Location)),
		logger: logger,
	}

	if !config.Enabled {
		return o, nil
	}

	for _, def := range []struct {
		variant  ingest.Variant
		schedule string
	}{
		{ingest.VariantDay, config.DaySchedule},
		{ingest.VariantSeason, config.SeasonSchedule},
	} {
		j := &job{status: JobStatus{Variant: def.variant, Schedule: def.schedule}}
		id, err := o.cron.AddFunc(def.schedule, func() { o.runJob(j) })
		if err != nil {
			return nil, fmt.Errorf("invalid %s schedule %q: %w", def.variant, def.schedule, err)
		}
		j.entryID = id
		o.jobs = append(o.jobs, j)
	}

	return o, nil
}

// Start runs the cron loop until ctx is cancelled
func (o *Orchestrator) Start(ctx context.Context) {
	if !o.config.Enabled {
		o.logger.Println("Scheduler disabled")
		return
	}

	o.logger.Printf("Day window: %s | Season: %s | TZ: %s | timeout: %v",
		o.config.DaySchedule, o.config.SeasonSchedule, o.config.Location, o.config.RunTimeout)

	o.cron.Start()
	<-ctx.Done()
	o.Stop()
}

// Stop stops scheduling and waits for running jobs to finish
func (o *Orchestrator) Stop() {
	o.logger.Println("Stopping scheduler...")
	<-o.cron.Stop().Done()
	o.logger.Println("✓ Scheduler stopped")
}

func (o *Orchestrator) runJob(j *job) {
	ctx, cancel := context.WithTimeout(context.Background(), o.config.RunTimeout)
	defer cancel()

	started := time.Now()
	run, summary, err := o.runner.Execute(ctx, j.status.Variant, runs.TriggerScheduler)

	o.mu.Lock()
	defer o.mu.Unlock()

	j.status.Invocations++
	j.status.LastRun = &started
	j.status.LastCount = summary.Count()
	j.status.LastError = ""
	if run != nil {
		j.status.LastRunID = run.RunID
	}
	if err != nil {
		j.status.LastError = err.Error()
		o.logger.Printf("❌ Scheduled %s run failed: %v", j.status.Variant, err)
		return
	}
	o.logger.Printf("✓ Scheduled %s run complete in %v (count=%d)", j.status.Variant, time.Since(started).Round(time.Second), summary.Count())
}

// Status returns the schedules with their next fire times
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	status := Status{
		Enabled:  o.config.Enabled,
		Timezone: o.config.Location.String(),
		Jobs:     make([]JobStatus, 0, len(o.jobs)),
	}

	for _, j := range o.jobs {
		js := j.status
		if next := o.cron.Entry(j.entryID).Next; !next.IsZero() {
			js.NextRun = &next
		} else if sched, err := cron.ParseStandard(js.Schedule); err == nil {
			next := sched.Next(time.Now().In(o.config.Location))
			js.NextRun = &next
		}
		status.Jobs = append(status.Jobs, js)
	}

	return status
}
