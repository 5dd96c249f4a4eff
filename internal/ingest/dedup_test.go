package ingest

import (
	"database/sql"
	"testing"
	"time"

	"github.com/fortuna/huddle/internal/store"
)

func testGame(sport, league int64, name string, start *time.Time) store.Game {
	g := store.Game{
		EventName: name,
		Status:    store.GameStatusScheduled,
		SportID:   sql.NullInt64{Int64: sport, Valid: true},
		LeagueID:  sql.NullInt64{Int64: league, Valid: true},
	}
	if start != nil {
		g.StartTime = sql.NullTime{Time: *start, Valid: true}
		g.EndTime = sql.NullTime{Time: start.Add(4 * time.Hour), Valid: true}
	}
	return g
}

func TestDeduplicate(t *testing.T) {
	t1 := time.Date(2024, 10, 22, 23, 30, 0, 0, time.UTC)
	t2 := time.Date(2024, 10, 23, 1, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		in        []store.Game
		wantNames []string
		wantStart []*time.Time
	}{
		{
			name:      "distinct keys kept in order",
			in:        []store.Game{testGame(1, 10, "B", nil), testGame(1, 10, "A", nil), testGame(2, 10, "A", nil)},
			wantNames: []string{"B", "A", "A"},
			wantStart: []*time.Time{nil, nil, nil},
		},
		{
			name:      "later concrete time replaces null",
			in:        []store.Game{testGame(1, 10, "A", nil), testGame(1, 10, "A", &t1)},
			wantNames: []string{"A"},
			wantStart: []*time.Time{&t1},
		},
		{
			name:      "first concrete time wins",
			in:        []store.Game{testGame(1, 10, "A", &t1), testGame(1, 10, "A", &t2), testGame(1, 10, "A", nil)},
			wantNames: []string{"A"},
			wantStart: []*time.Time{&t1},
		},
		{
			name:      "league is part of the key",
			in:        []store.Game{testGame(1, 10, "A", nil), testGame(1, 11, "A", nil)},
			wantNames: []string{"A", "A"},
			wantStart: []*time.Time{nil, nil},
		},
		{
			name:      "empty",
			in:        nil,
			wantNames: []string{},
			wantStart: []*time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Deduplicate(tt.in)
			if len(got) != len(tt.wantNames) {
				t.Fatalf("got %d games, want %d", len(got), len(tt.wantNames))
			}
			for i, g := range got {
				if g.EventName != tt.wantNames[i] {
					t.Errorf("[%d] name = %q, want %q", i, g.EventName, tt.wantNames[i])
				}
				want := tt.wantStart[i]
				if want == nil && g.StartTime.Valid {
					t.Errorf("[%d] expected null start, got %v", i, g.StartTime.Time)
				}
				if want != nil && (!g.StartTime.Valid || !g.StartTime.Time.Equal(*want)) {
					t.Errorf("[%d] start = %v, want %v", i, g.StartTime, *want)
				}
			}
		})
	}
}
