package store

import (
	"database/sql"
	"time"
)

// Game statuses. Ingestion only ever produces scheduled or finished; live is set out-of-band.
const (
	GameStatusScheduled = "scheduled"
	GameStatusLive      = "live"
	GameStatusFinished  = "finished"
)

// ConflictPolicy selects what an upsert does when a row with the same natural key already exists
type ConflictPolicy string

const (
	ConflictSkip      ConflictPolicy = "skip"
	ConflictOverwrite ConflictPolicy = "overwrite"
)

// Valid reports whether p is a known policy
func (p ConflictPolicy) Valid() bool {
	return p == ConflictSkip || p == ConflictOverwrite
}

// Sport is a catalog entry. Leagues holds TheSportsDB league ids polled for this sport.
type Sport struct {
	ID      int     `json:"id" db:"id"`
	Name    string  `json:"name" db:"name"`
	Leagues []int64 `json:"leagues" db:"leagues"`
}

// Game is a normalized schedule entry.
// Natural key: (sport_id, league_id, event_name).
type Game struct {
	ID        int64          `json:"id" db:"id"`
	HomeTeam  sql.NullString `json:"home_team" db:"home_team"`
	AwayTeam  sql.NullString `json:"away_team" db:"away_team"`
	EventName string         `json:"event_name" db:"event_name"`
	StartTime sql.NullTime   `json:"start_time" db:"start_time"`
	EndTime   sql.NullTime   `json:"end_time" db:"end_time"`
	Status    string         `json:"status" db:"status"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
	SportID   sql.NullInt64  `json:"sport_id" db:"sport_id"`
	LeagueID  sql.NullInt64  `json:"league_id" db:"league_id"`
}
