package publisher

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/fortuna/huddle/internal/ingest"
)

func TestOnRunComplete_PublishesSummary(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	p := NewRedisStreamPublisher(client, log.New(io.Discard, "", 0))
	p.OnRunComplete(ingest.Summary{Variant: ingest.VariantDay, Normalized: 42, Valid: 42, Written: 40})

	entries, err := client.XRange(context.Background(), RunsStream, "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 stream entry, got %d", len(entries))
	}

	values := entries[0].Values
	if values["variant"] != "day" || values["count"] != "42" {
		t.Errorf("unexpected entry values %v", values)
	}

	var decoded ingest.Summary
	if err := json.Unmarshal([]byte(values["data"].(string)), &decoded); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if decoded.Written != 40 {
		t.Errorf("decoded written = %d, want 40", decoded.Written)
	}
}
