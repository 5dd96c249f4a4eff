package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fortuna/huddle/internal/ingest"
	"github.com/fortuna/huddle/internal/runs"
	"github.com/fortuna/huddle/internal/scheduler"
	"github.com/fortuna/huddle/internal/service"
	"github.com/fortuna/huddle/internal/store"
	"github.com/fortuna/huddle/internal/store/repository"
)

type fakeRuns struct {
	err      error
	variants []ingest.Variant
	ctxErr   error
}

func (f *fakeRuns) Execute(ctx context.Context, variant ingest.Variant, trigger runs.Trigger) (*runs.Run, ingest.Summary, error) {
	f.variants = append(f.variants, variant)
	f.ctxErr = ctx.Err()
	run := &runs.Run{RunID: "0b7e6a36-5d59-4b47-9d3f-1e8f0c7e2a11", Variant: variant, Trigger: trigger}
	if f.err != nil {
		return run, ingest.Summary{Variant: variant}, f.err
	}
	return run, ingest.Summary{Variant: variant, Normalized: 2500, Unique: 2500, Valid: 2400, Written: 1500}, nil
}

func (f *fakeRuns) Recent(ctx context.Context, limit int) ([]*runs.Run, error) {
	return []*runs.Run{{RunID: "a"}, {RunID: "b"}}, nil
}

func (f *fakeRuns) Get(ctx context.Context, runID string) (*runs.Run, error) {
	if runID == "missing" {
		return nil, runs.ErrNotFound
	}
	return &runs.Run{RunID: runID}, nil
}

type fakeGames struct{}

func (fakeGames) ListSports(ctx context.Context) ([]store.Sport, error) {
	return []store.Sport{{ID: 1, Name: "Soccer", Leagues: []int64{4328}}}, nil
}

func (fakeGames) ListUpcomingGames(ctx context.Context, sportID int, afterID int64, limit int) (*service.GamePage, error) {
	return &service.GamePage{Games: []service.GameView{{ID: afterID + 1, SportID: int64(sportID)}}}, nil
}

func (fakeGames) GetGame(ctx context.Context, gameID int64) (*service.GameView, error) {
	if gameID == 404 {
		return nil, fmt.Errorf("fetching game: %w", repository.ErrNotFound)
	}
	return &service.GameView{ID: gameID}, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(ctx context.Context) error { return f.err }

type fakeSummaries struct{}

func (fakeSummaries) GetLastSummary(ctx context.Context, variant ingest.Variant) (ingest.Summary, bool, error) {
	if variant == ingest.VariantSeason {
		return ingest.Summary{}, false, nil
	}
	return ingest.Summary{Variant: variant, Valid: 12}, true, nil
}

type fakeScheduler struct{}

func (fakeScheduler) Status() scheduler.Status {
	return scheduler.Status{Enabled: true, Timezone: "UTC"}
}

func newTestHandler(rs *fakeRuns, dbErr error) http.Handler {
	return NewServer("0", Deps{
		Database:    fakeHealth{err: dbErr},
		Games:       fakeGames{},
		Runs:        rs,
		Summaries:   fakeSummaries{},
		Scheduler:   fakeScheduler{},
		CORSOrigins: []string{"*"},
		Logger:      log.New(io.Discard, "", 0),
	}).Handler()
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestTrigger_Success(t *testing.T) {
	tests := []struct {
		path    string
		variant ingest.Variant
	}{
		{"/api/fetchAllSports", ingest.VariantDay},
		{"/api/v1/ingest/day", ingest.VariantDay},
		{"/api/fetchSchedulesOld", ingest.VariantSeason},
		{"/api/v1/ingest/season", ingest.VariantSeason},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rs := &fakeRuns{}
			rec := do(newTestHandler(rs, nil), http.MethodPost, tt.path)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			body := decode(t, rec)
			if body["message"] != "Games fetched and processed" || body["count"] != float64(2500) {
				t.Errorf("unexpected body %v", body)
			}
			if body["run_id"] == "" {
				t.Error("missing run_id")
			}
			if len(rs.variants) != 1 || rs.variants[0] != tt.variant {
				t.Errorf("executed %v, want %s", rs.variants, tt.variant)
			}
		})
	}
}

func TestTrigger_Failure(t *testing.T) {
	rec := do(newTestHandler(&fakeRuns{err: errors.New("listing sports: db gone")}, nil), http.MethodPost, "/api/fetchSchedulesOld")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["error"] != "Failed to fetch or process games" || len(body) != 1 {
		t.Errorf("unexpected body %v", body)
	}
}

func TestTrigger_WrongMethod(t *testing.T) {
	rec := do(newTestHandler(&fakeRuns{}, nil), http.MethodGet, "/api/fetchAllSports")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestReadRoutes(t *testing.T) {
	h := newTestHandler(&fakeRuns{}, nil)

	tests := []struct {
		name     string
		path     string
		status   int
		contains string
	}{
		{"sports", "/api/v1/sports", 200, `"name":"Soccer"`},
		{"upcoming", "/api/v1/sports/1/games?after=10&limit=3", 200, `"id":11`},
		{"bad sport", "/api/v1/sports/abc/games", 400, "Invalid sport ID"},
		{"game", "/api/v1/games/7", 200, `"id":7`},
		{"missing game", "/api/v1/games/404", 404, "Game not found"},
		{"runs", "/api/v1/ingest/runs", 200, `"count":2`},
		{"run", "/api/v1/ingest/runs/abc", 200, `"run_id":"abc"`},
		{"missing run", "/api/v1/ingest/runs/missing", 404, "Run not found"},
		{"last day", "/api/v1/ingest/last/day", 200, `"valid":12`},
		{"last season none", "/api/v1/ingest/last/season", 404, "No completed run yet"},
		{"last unknown", "/api/v1/ingest/last/weekly", 400, "Unknown variant"},
		{"scheduler", "/api/v1/scheduler", 200, `"timezone":"UTC"`},
		{"user id", "/api/generateUserId", 200, `"userId"`},
		{"user id v1", "/api/v1/users/new", 200, `"userId"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodGet, tt.path)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("body %s missing %s", rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	if rec := do(newTestHandler(&fakeRuns{}, nil), http.MethodGet, "/health"); rec.Code != http.StatusOK {
		t.Errorf("healthy status = %d", rec.Code)
	}

	rec := do(newTestHandler(&fakeRuns{}, errors.New("connection refused")), http.MethodGet, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d", rec.Code)
	}
	if body := decode(t, rec); body["status"] != "unhealthy" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/ingest/day", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rec := httptest.NewRecorder()
	newTestHandler(&fakeRuns{}, nil).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
