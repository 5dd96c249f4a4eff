package websocket

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fortuna/huddle/internal/ingest"
)

func startTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(log.New(io.Discard, "", 0))
	go hub.Run(ctx)

	srv := NewServer(hub, log.New(io.Discard, "", 0))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return hub, ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/ingest" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_BroadcastsRunEvents(t *testing.T) {
	hub, ts := startTestServer(t)
	conn := dial(t, ts, "")
	waitForClients(t, hub, 1)

	hub.OnBatch(ingest.BatchResult{Variant: ingest.VariantSeason, Index: 2, Size: 1000, Err: errors.New("boom")})
	hub.OnRunComplete(ingest.Summary{Variant: ingest.VariantSeason, Valid: 2500, Written: 1500})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var batch Message
	if err := conn.ReadJSON(&batch); err != nil {
		t.Fatalf("read batch: %v", err)
	}
	if batch.Type != MessageTypeBatch || batch.Variant != ingest.VariantSeason {
		t.Errorf("unexpected message %+v", batch)
	}

	var done struct {
		Type    string         `json:"type"`
		Payload ingest.Summary `json:"payload"`
	}
	if err := conn.ReadJSON(&done); err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if done.Type != MessageTypeRunCompleted || done.Payload.Valid != 2500 {
		t.Errorf("unexpected summary message %+v", done)
	}
}

func TestHub_VariantFilter(t *testing.T) {
	hub, ts := startTestServer(t)
	conn := dial(t, ts, "?variant=day")
	waitForClients(t, hub, 1)

	hub.OnRunStart(ingest.VariantSeason)
	hub.OnRunStart(ingest.VariantDay)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Variant != ingest.VariantDay {
		t.Errorf("filtered client received %s event", msg.Variant)
	}
}

func TestServer_RejectsUnknownVariant(t *testing.T) {
	_, ts := startTestServer(t)

	resp, err := http.Get(ts.URL + "/ws/ingest?variant=weekly")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestServer_Health(t *testing.T) {
	hub, ts := startTestServer(t)
	dial(t, ts, "")
	waitForClients(t, hub, 1)

	resp, err := http.Get(ts.URL + "/ws/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"clients": 1`) {
		t.Errorf("unexpected health body %s", body)
	}
}
