package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fortuna/huddle/internal/store"
	"github.com/fortuna/huddle/internal/store/repository"
)

const (
	DefaultPageSize = 5
	MaxPageSize     = 100
)

type gameReader interface {
	GetByID(ctx context.Context, gameID int64) (*store.Game, error)
	ListUpcoming(ctx context.Context, sportID int, afterID int64, limit int) ([]*store.Game, error)
}

type sportLister interface {
	ListSports(ctx context.Context) ([]store.Sport, error)
}

// GameService handles the read side of sports and games
type GameService struct {
	gameRepo  gameReader
	sportRepo sportLister
}

// NewGameService creates a new game service
func NewGameService(db *store.Database) *GameService {
	return &GameService{
		gameRepo:  repository.NewGameRepository(db),
		sportRepo: repository.NewSportRepository(db),
	}
}

// ListSports returns every sport ordered by name
func (s *GameService) ListSports(ctx context.Context) ([]store.Sport, error) {
	sports, err := s.sportRepo.ListSports(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching sports: %w", err)
	}
	if sports == nil {
		sports = []store.Sport{}
	}
	return sports, nil
}

// ListUpcomingGames returns one page of live and scheduled games for a sport.
// limit <= 0 uses DefaultPageSize; larger values are capped at MaxPageSize.
func (s *GameService) ListUpcomingGames(ctx context.Context, sportID int, afterID int64, limit int) (*GamePage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	games, err := s.gameRepo.ListUpcoming(ctx, sportID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching upcoming games: %w", err)
	}

	page := &GamePage{Games: make([]GameView, 0, len(games))}
	for _, g := range games {
		page.Games = append(page.Games, NewGameView(g))
	}
	if len(games) == limit {
		page.NextAfter = games[len(games)-1].ID
	}

	return page, nil
}

// GetGame retrieves a game by ID; a missing game wraps repository.ErrNotFound
func (s *GameService) GetGame(ctx context.Context, gameID int64) (*GameView, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching game: %w", err)
	}

	view := NewGameView(game)
	return &view, nil
}

// GameView is the API representation of a game with plain nullable fields
type GameView struct {
	ID        int64      `json:"id"`
	EventName string     `json:"event_name"`
	HomeTeam  *string    `json:"home_team"`
	AwayTeam  *string    `json:"away_team"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Status    string     `json:"status"`
	SportID   int64      `json:"sport_id"`
	LeagueID  int64      `json:"league_id"`
}

// GamePage is one page of upcoming games. NextAfter is zero on the last page.
type GamePage struct {
	Games     []GameView `json:"games"`
	NextAfter int64      `json:"next_after,omitempty"`
}

// NewGameView converts a stored game
func NewGameView(g *store.Game) GameView {
	v := GameView{
		ID:        g.ID,
		EventName: g.EventName,
		Status:    g.Status,
		SportID:   g.SportID.Int64,
		LeagueID:  g.LeagueID.Int64,
	}
	if g.HomeTeam.Valid {
		home := g.HomeTeam.String
		v.HomeTeam = &home
	}
	if g.AwayTeam.Valid {
		away := g.AwayTeam.String
		v.AwayTeam = &away
	}
	if g.StartTime.Valid {
		start := g.StartTime.Time
		v.StartTime = &start
	}
	if g.EndTime.Valid {
		end := g.EndTime.Time
		v.EndTime = &end
	}
	return v
}
