package ingest

import (
	"fmt"

	"github.com/fortuna/huddle/internal/store"
)

// naturalKey identifies one logical game: (sport_id, league_id, event_name)
func naturalKey(g store.Game) string {
	return fmt.Sprintf("%d-%d-%s", g.SportID.Int64, g.LeagueID.Int64, g.EventName)
}

// Deduplicate keeps one game per natural key. The first game seen wins unless a later
// duplicate has a start time and the kept one does not. Output keeps first-seen order.
func Deduplicate(games []store.Game) []store.Game {
	index := make(map[string]int, len(games))
	unique := make([]store.Game, 0, len(games))

	for _, g := range games {
		key := naturalKey(g)
		pos, seen := index[key]
		if !seen {
			index[key] = len(unique)
			unique = append(unique, g)
			continue
		}
		if g.StartTime.Valid && !unique[pos].StartTime.Valid {
			unique[pos] = g
		}
	}

	return unique
}
