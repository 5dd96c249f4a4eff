package main

import (
	"context"
	"log"
	"time"

	"github.com/fortuna/huddle/internal/ingest"
	"github.com/fortuna/huddle/internal/store"
)

type consoleReporter struct {
	dryRun bool
}

func (r *consoleReporter) OnRunStart(variant ingest.Variant) {
	mode := "live"
	if r.dryRun {
		mode = "dry-run"
	}
	log.Printf("Starting %s ingestion (%s)", variant, mode)
}

func (r *consoleReporter) OnBatch(result ingest.BatchResult) {
	if result.Err != nil {
		log.Printf("❌ Batch %d (%d games) failed: %v", result.Index, result.Size, result.Err)
		return
	}
	log.Printf("  batch %d: %d games, %d written", result.Index, result.Size, result.Written)
}

func (r *consoleReporter) OnRunComplete(summary ingest.Summary) {
	log.Printf("✓ %s ingestion complete in %v", summary.Variant, summary.CompletedAt.Sub(summary.StartedAt).Round(time.Millisecond))
	log.Printf("  fetched=%d matched=%d unique=%d valid=%d invalid=%d",
		summary.Fetched, summary.Matched, summary.Unique, summary.Valid, summary.Invalid)
	log.Printf("  batches=%d failed=%d written=%d fetch_errors=%d",
		summary.Batches, summary.FailedBatches, summary.Written, summary.FetchErrors)
}

// dryRunWriter accepts every batch without touching the database
type dryRunWriter struct {
	games int64
}

func (w *dryRunWriter) UpsertGames(ctx context.Context, games []store.Game, policy store.ConflictPolicy) (int64, error) {
	w.games += int64(len(games))
	return 0, nil
}
