package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/huddle/internal/store"
	"github.com/lib/pq"
)

// SportRepository handles sport catalog access
type SportRepository struct {
	db *store.Database
}

// NewSportRepository creates a new sport repository
func NewSportRepository(db *store.Database) *SportRepository {
	return &SportRepository{db: db}
}

// ListSports returns every sport with its league list, ordered by name
func (r *SportRepository) ListSports(ctx context.Context) ([]store.Sport, error) {
	query := `
		SELECT id, name, leagues
		FROM sports
		ORDER BY name
	`

	rows, err := r.db.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying sports: %w", err)
	}
	defer rows.Close()

	var sports []store.Sport
	for rows.Next() {
		var sport store.Sport
		if err := rows.Scan(&sport.ID, &sport.Name, pq.Array(&sport.Leagues)); err != nil {
			return nil, fmt.Errorf("scanning sport: %w", err)
		}
		sports = append(sports, sport)
	}

	return sports, rows.Err()
}

// SportIDByName resolves a sport by exact name. found is false when no sport matches.
func (r *SportRepository) SportIDByName(ctx context.Context, name string) (id int, found bool, err error) {
	err = r.db.DB().QueryRowContext(ctx, `SELECT id FROM sports WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("querying sport %q: %w", name, err)
	}

	return id, true, nil
}
