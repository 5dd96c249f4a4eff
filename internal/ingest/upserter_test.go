package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/fortuna/huddle/internal/store"
)

func manyGames(n int) []store.Game {
	games := make([]store.Game, n)
	for i := range games {
		games[i] = testGame(1, 4328, fmt.Sprintf("Home %d vs Away %d", i, i), nil)
	}
	return games
}

func TestUpload_Batching(t *testing.T) {
	writer := newMemoryWriter()
	reporter := &recordingReporter{}
	u := NewUpserter(writer, 1000, reporter, discardLogger)

	result := u.Upload(context.Background(), VariantSeason, manyGames(2500), store.ConflictOverwrite)

	want := []int{1000, 1000, 500}
	if len(writer.calls) != len(want) {
		t.Fatalf("expected %d write calls, got %v", len(want), writer.calls)
	}
	for i, n := range want {
		if writer.calls[i] != n {
			t.Errorf("batch %d size = %d, want %d", i+1, writer.calls[i], n)
		}
	}
	if result.Valid != 2500 || result.Written != 2500 || result.Batches != 3 || result.FailedBatches != 0 {
		t.Errorf("unexpected result %+v", result)
	}
	if len(reporter.batches) != 3 || reporter.batches[2].Index != 3 || reporter.batches[2].Size != 500 {
		t.Errorf("unexpected batch reports %+v", reporter.batches)
	}
}

func TestUpload_FailedBatchContinues(t *testing.T) {
	writer := newMemoryWriter()
	writer.failCalls[2] = true
	u := NewUpserter(writer, 1000, nil, discardLogger)

	result := u.Upload(context.Background(), VariantSeason, manyGames(2500), store.ConflictOverwrite)

	if len(writer.calls) != 3 {
		t.Fatalf("expected all 3 batches attempted, got %v", writer.calls)
	}
	if len(writer.rows) != 1500 {
		t.Errorf("expected batches 1 and 3 persisted (1500 rows), got %d", len(writer.rows))
	}
	if result.FailedBatches != 1 || result.Written != 1500 {
		t.Errorf("unexpected result %+v", result)
	}
	if result.Valid != 2500 {
		t.Errorf("reported count should include the failed batch: got %d, want 2500", result.Valid)
	}
}

func TestUpload_InvalidDropped(t *testing.T) {
	writer := newMemoryWriter()
	u := NewUpserter(writer, 1000, nil, discardLogger)

	noSport := testGame(1, 4328, "A vs B", nil)
	noSport.SportID.Valid = false
	noName := testGame(1, 4328, "", nil)

	result := u.Upload(context.Background(), VariantDay, []store.Game{noSport, noName, testGame(1, 4328, "C vs D", nil)}, store.ConflictOverwrite)

	if result.Invalid != 2 || result.Valid != 1 || result.Written != 1 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestUpload_NothingValidIsNoop(t *testing.T) {
	writer := newMemoryWriter()
	u := NewUpserter(writer, 1000, nil, discardLogger)

	bad := testGame(1, 4328, "", nil)
	result := u.Upload(context.Background(), VariantDay, []store.Game{bad}, store.ConflictOverwrite)

	if len(writer.calls) != 0 {
		t.Errorf("expected no write calls, got %v", writer.calls)
	}
	if result.Batches != 0 || result.Invalid != 1 {
		t.Errorf("unexpected result %+v", result)
	}
}
