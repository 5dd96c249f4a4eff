package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fortuna/huddle/internal/store"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// gameInsertColumns is the column order used by UpsertGames; placeholders follow it
var gameInsertColumns = []string{
	"home_team", "away_team", "event_name", "start_time", "end_time",
	"status", "created_at", "sport_id", "league_id",
}

// maxQueryParams is PostgreSQL's limit on bind parameters per statement
const maxQueryParams = 65535

// MaxBatchSize is the largest batch UpsertGames can bind in one statement
var MaxBatchSize = maxQueryParams / len(gameInsertColumns)

const gameSelectColumns = `id, home_team, away_team, event_name, start_time, end_time,
			status, created_at, updated_at, sport_id, league_id`

// GameRepository handles game data access
type GameRepository struct {
	db *store.Database
}

// NewGameRepository creates a new game repository
func NewGameRepository(db *store.Database) *GameRepository {
	return &GameRepository{db: db}
}

// GetByID finds a game by its database ID
func (r *GameRepository) GetByID(ctx context.Context, gameID int64) (*store.Game, error) {
	query := `SELECT ` + gameSelectColumns + ` FROM games WHERE id = $1`

	game := &store.Game{}
	err := r.db.DB().QueryRowContext(ctx, query, gameID).Scan(
		&game.ID, &game.HomeTeam, &game.AwayTeam, &game.EventName, &game.StartTime, &game.EndTime,
		&game.Status, &game.CreatedAt, &game.UpdatedAt, &game.SportID, &game.LeagueID,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %d: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying game: %w", err)
	}

	return game, nil
}

// listUpcomingQuery pages with a keyset on (start_time NULLS LAST, id). The cursor is the
// id of the last game of the previous page; rows sorting after it are returned.
const listUpcomingQuery = `SELECT ` + gameSelectColumns + `
		FROM games
		WHERE sport_id = $1
			AND status IN ('live', 'scheduled')
			AND ($2::bigint = 0 OR EXISTS (
				SELECT 1 FROM games c
				WHERE c.id = $2
					AND (
						(c.start_time IS NULL AND games.start_time IS NULL AND games.id > c.id)
						OR (c.start_time IS NOT NULL AND (
							games.start_time IS NULL
							OR games.start_time > c.start_time
							OR (games.start_time = c.start_time AND games.id > c.id)
						))
					)
			))
		ORDER BY start_time ASC NULLS LAST, id ASC
		LIMIT $3
	`

// ListUpcoming returns live and scheduled games for a sport ordered by start time.
// afterID > 0 continues after that game ("load more").
func (r *GameRepository) ListUpcoming(ctx context.Context, sportID int, afterID int64, limit int) ([]*store.Game, error) {
	rows, err := r.db.DB().QueryContext(ctx, listUpcomingQuery, sportID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying upcoming games: %w", err)
	}
	defer rows.Close()

	return r.scanGames(rows)
}

// UpsertGames writes a batch with a single multi-row INSERT keyed on the natural key.
// It returns the number of rows inserted or updated; skipped duplicates are not counted.
func (r *GameRepository) UpsertGames(ctx context.Context, games []store.Game, policy store.ConflictPolicy) (int64, error) {
	if len(games) == 0 {
		return 0, nil
	}

	query, args, err := buildUpsertQuery(games, policy)
	if err != nil {
		return 0, err
	}

	result, err := r.db.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("upserting %d games: %w", len(games), err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}

	return affected, nil
}

func buildUpsertQuery(games []store.Game, policy store.ConflictPolicy) (string, []interface{}, error) {
	if !policy.Valid() {
		return "", nil, fmt.Errorf("unknown conflict policy %q", policy)
	}
	if len(games) > MaxBatchSize {
		return "", nil, fmt.Errorf("batch of %d games exceeds the %d row limit", len(games), MaxBatchSize)
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO games (")
	sb.WriteString(strings.Join(gameInsertColumns, ", "))
	sb.WriteString(") VALUES ")

	width := len(gameInsertColumns)
	args := make([]interface{}, 0, len(games)*width)
	for i, g := range games {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := 0; c < width; c++ {
			if c > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*width+c+1)
		}
		sb.WriteByte(')')

		args = append(args,
			g.HomeTeam, g.AwayTeam, g.EventName, g.StartTime, g.EndTime,
			g.Status, g.CreatedAt, g.SportID, g.LeagueID,
		)
	}

	sb.WriteString(" ON CONFLICT (sport_id, league_id, event_name) ")
	switch policy {
	case store.ConflictSkip:
		sb.WriteString("DO NOTHING")
	case store.ConflictOverwrite:
		// A known start time is never replaced by an unknown one.
		sb.WriteString(`DO UPDATE SET
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			start_time = COALESCE(EXCLUDED.start_time, games.start_time),
			end_time = COALESCE(EXCLUDED.end_time, games.end_time),
			status = EXCLUDED.status,
			updated_at = NOW()`)
	}

	return sb.String(), args, nil
}

// scanGames scans multiple game rows
func (r *GameRepository) scanGames(rows *sql.Rows) ([]*store.Game, error) {
	var games []*store.Game
	for rows.Next() {
		game := &store.Game{}
		err := rows.Scan(
			&game.ID, &game.HomeTeam, &game.AwayTeam, &game.EventName, &game.StartTime, &game.EndTime,
			&game.Status, &game.CreatedAt, &game.UpdatedAt, &game.SportID, &game.LeagueID,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		games = append(games, game)
	}

	return games, rows.Err()
}
