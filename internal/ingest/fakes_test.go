package ingest

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/fortuna/huddle/internal/ingest/sportsdb"
	"github.com/fortuna/huddle/internal/store"
)

var discardLogger = log.New(io.Discard, "", 0)

// memoryWriter stores games by natural key, like the unique index does
type memoryWriter struct {
	rows      map[string]store.Game
	calls     []int
	failCalls map[int]bool
}

func newMemoryWriter() *memoryWriter {
	return &memoryWriter{rows: make(map[string]store.Game), failCalls: make(map[int]bool)}
}

func (w *memoryWriter) UpsertGames(ctx context.Context, games []store.Game, policy store.ConflictPolicy) (int64, error) {
	w.calls = append(w.calls, len(games))
	if w.failCalls[len(w.calls)] {
		return 0, errors.New("connection reset")
	}

	var written int64
	for _, g := range games {
		key := naturalKey(g)
		if _, exists := w.rows[key]; exists && policy == store.ConflictSkip {
			continue
		}
		w.rows[key] = g
		written++
	}
	return written, nil
}

type fakeCatalog struct {
	sports  []store.Sport
	listErr error
	lookErr error
	lookups int
}

func (c *fakeCatalog) ListSports(ctx context.Context) ([]store.Sport, error) {
	return c.sports, c.listErr
}

func (c *fakeCatalog) SportIDByName(ctx context.Context, name string) (int, bool, error) {
	c.lookups++
	if c.lookErr != nil {
		return 0, false, c.lookErr
	}
	for _, s := range c.sports {
		if s.Name == name {
			return s.ID, true, nil
		}
	}
	return 0, false, nil
}

type fakeSource struct {
	days      map[string][]sportsdb.RawEvent
	dayErr    map[string]error
	seasons   map[int64][]sportsdb.RawEvent
	seasonErr map[int64]error
	dayCalls  []string
}

func (s *fakeSource) EventsByDay(ctx context.Context, day time.Time) ([]sportsdb.RawEvent, error) {
	key := day.Format("2006-01-02")
	s.dayCalls = append(s.dayCalls, key)
	if err := s.dayErr[key]; err != nil {
		return nil, err
	}
	return s.days[key], nil
}

func (s *fakeSource) EventsBySeason(ctx context.Context, leagueID int64, season string) ([]sportsdb.RawEvent, error) {
	if err := s.seasonErr[leagueID]; err != nil {
		return nil, err
	}
	return s.seasons[leagueID], nil
}

type recordingReporter struct {
	starts    []Variant
	batches   []BatchResult
	summaries []Summary
}

func (r *recordingReporter) OnRunStart(variant Variant) { r.starts = append(r.starts, variant) }
func (r *recordingReporter) OnBatch(result BatchResult) { r.batches = append(r.batches, result) }
func (r *recordingReporter) OnRunComplete(summary Summary) { r.summaries = append(r.summaries, summary) }
