package ingest

import (
	"fmt"
	"strings"

	"github.com/fortuna/huddle/internal/store"
)

// ValidationError lists the required fields a game is missing
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid game, missing fields: %s", strings.Join(e.Missing, ", "))
}

// Validate checks the fields every stored game must carry. An unresolved sport
// (SportID not valid) is always dropped here.
func Validate(g store.Game) error {
	var missing []string
	if !g.SportID.Valid {
		missing = append(missing, "sport_id")
	}
	if !g.LeagueID.Valid {
		missing = append(missing, "league_id")
	}
	if g.EventName == "" {
		missing = append(missing, "event_name")
	}
	if g.Status == "" {
		missing = append(missing, "status")
	}

	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}
