package sportsdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const dayPayload = `{"events":[{"idEvent":"1","strEvent":"Lakers vs Celtics","strSport":"Basketball","idLeague":"4387","strTimestamp":"2024-10-22T23:30:00","strStatus":"NS","strHomeTeam":"Lakers","strAwayTeam":"Celtics"}]}`

type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *recordingSleeper, *int32) {
	t.Helper()

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "test"})
	sleeper := &recordingSleeper{}
	client.sleep = sleeper.sleep

	return client, sleeper, &hits
}

func TestEventsByDay_RateLimitedOnceThenOK(t *testing.T) {
	var calls int32
	client, sleeper, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/test/eventsday.php" || r.URL.Query().Get("d") != "2024-10-22" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(dayPayload))
	})

	events, err := client.EventsByDay(context.Background(), time.Date(2024, 10, 22, 15, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("EventsByDay returned error: %v", err)
	}

	if len(events) != 1 || events[0].Event != "Lakers vs Celtics" {
		t.Fatalf("unexpected events: %+v", events)
	}
	if got := atomic.LoadInt32(hits); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
	if len(sleeper.waits) != 1 || sleeper.waits[0] != 10*time.Second {
		t.Errorf("expected one 10s backoff, got %v", sleeper.waits)
	}
}

func TestEventsByDay_PersistentRateLimit(t *testing.T) {
	client, sleeper, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.EventsByDay(context.Background(), time.Now())
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Attempts != DefaultMaxAttempts {
		t.Errorf("expected FetchError with %d attempts, got %v", DefaultMaxAttempts, err)
	}
	if got := atomic.LoadInt32(hits); got != DefaultMaxAttempts {
		t.Errorf("expected %d attempts, got %d", DefaultMaxAttempts, got)
	}
	// No wait after the final attempt.
	if len(sleeper.waits) != DefaultMaxAttempts-1 {
		t.Errorf("expected %d backoffs, got %d", DefaultMaxAttempts-1, len(sleeper.waits))
	}
}

func TestEventsBySeason_HardErrorExhaustsBudget(t *testing.T) {
	client, sleeper, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.EventsBySeason(context.Background(), 4387, "2024-2025")

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected HTTPError 500, got %v", err)
	}
	if got := atomic.LoadInt32(hits); got != DefaultMaxAttempts {
		t.Errorf("expected %d attempts, got %d", DefaultMaxAttempts, got)
	}
	if len(sleeper.waits) != 0 {
		t.Errorf("hard errors should not back off, got %v", sleeper.waits)
	}
}

func TestEventsBySeason_RecoversAfterHardError(t *testing.T) {
	var calls int32
	client, _, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "4387" || r.URL.Query().Get("s") != "2024-2025" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(dayPayload))
	})

	events, err := client.EventsBySeason(context.Background(), 4387, "2024-2025")
	if err != nil {
		t.Fatalf("EventsBySeason returned error: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event, got %d", len(events))
	}
	if got := atomic.LoadInt32(hits); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestEventsByDay_NullEvents(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"events":null}`))
	})

	events, err := client.EventsByDay(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("EventsByDay returned error: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", events)
	}
}

func TestRawEvent_NullableFields(t *testing.T) {
	var env eventsEnvelope
	body := `{"events":[{"strEvent":"A vs B","strStatus":null,"strHomeTeam":"A"}]}`
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	ev := env.Events[0]
	if ev.Status != nil {
		t.Errorf("expected nil status, got %q", *ev.Status)
	}
	if ev.Timestamp != nil {
		t.Errorf("expected nil timestamp for missing key")
	}
	if ev.HomeTeam == nil || *ev.HomeTeam != "A" {
		t.Errorf("expected home team A, got %v", ev.HomeTeam)
	}
}
