package rest

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"github.com/fortuna/huddle/internal/ingest"
	"github.com/fortuna/huddle/internal/runs"
	"github.com/fortuna/huddle/internal/scheduler"
	"github.com/fortuna/huddle/internal/service"
	"github.com/fortuna/huddle/internal/store"
)

// HealthChecker is implemented by the database and the Redis cache
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// GameQueries is the read side served under /api/v1
type GameQueries interface {
	ListSports(ctx context.Context) ([]store.Sport, error)
	ListUpcomingGames(ctx context.Context, sportID int, afterID int64, limit int) (*service.GamePage, error)
	GetGame(ctx context.Context, gameID int64) (*service.GameView, error)
}

// RunService executes and lists ingestion runs
type RunService interface {
	Execute(ctx context.Context, variant ingest.Variant, trigger runs.Trigger) (*runs.Run, ingest.Summary, error)
	Recent(ctx context.Context, limit int) ([]*runs.Run, error)
	Get(ctx context.Context, runID string) (*runs.Run, error)
}

// SummaryReader returns the cached summary of the last successful run
type SummaryReader interface {
	GetLastSummary(ctx context.Context, variant ingest.Variant) (ingest.Summary, bool, error)
}

// SchedulerStatus reports the cron schedules
type SchedulerStatus interface {
	Status() scheduler.Status
}

// Deps wires the REST layer. Redis, Summaries, Scheduler and Metrics are optional.
type Deps struct {
	Database    HealthChecker
	Redis       HealthChecker
	Games       GameQueries
	Runs        RunService
	Summaries   SummaryReader
	Scheduler   SchedulerStatus
	Metrics     http.Handler
	CORSOrigins []string
	Logger      *log.Logger
}

// Server represents the REST API server
type Server struct {
	port    string
	server  *http.Server
	handler http.Handler
}

// NewServer creates a new REST API server
func NewServer(port string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(log.Writer(), "[rest] ", log.LstdFlags)
	}

	handler := NewHandler(deps)
	ingestHandler := NewIngestHandler(deps.Runs, deps.Summaries, deps.Scheduler)

	router := mux.NewRouter()

	// Apply middleware
	router.Use(RecoveryMiddleware(deps.Logger))
	router.Use(LoggingMiddleware(deps.Logger))

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics).Methods("GET")
	}

	// Routes kept for existing clients
	router.HandleFunc("/api/fetchAllSports", ingestHandler.TriggerDay).Methods("POST")
	router.HandleFunc("/api/fetchSchedulesOld", ingestHandler.TriggerSeason).Methods("POST")
	router.HandleFunc("/api/generateUserId", handler.GenerateUserID).Methods("GET")

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Ingestion
	api.HandleFunc("/ingest/day", ingestHandler.TriggerDay).Methods("POST")
	api.HandleFunc("/ingest/season", ingestHandler.TriggerSeason).Methods("POST")
	api.HandleFunc("/ingest/runs", ingestHandler.ListRuns).Methods("GET")
	api.HandleFunc("/ingest/runs/{runID}", ingestHandler.GetRun).Methods("GET")
	api.HandleFunc("/ingest/last/{variant}", ingestHandler.LastSummary).Methods("GET")
	api.HandleFunc("/scheduler", ingestHandler.SchedulerStatus).Methods("GET")

	// Sports and games
	api.HandleFunc("/sports", handler.GetSports).Methods("GET")
	api.HandleFunc("/sports/{sportID}/games", handler.GetUpcomingGames).Methods("GET")
	api.HandleFunc("/games/{gameID}", handler.GetGame).Methods("GET")

	// Users
	api.HandleFunc("/users/new", handler.GenerateUserID).Methods("GET")

	// CORS wraps the router so preflight requests never reach method matching.
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: deps.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})(router)

	return &Server{
		port:    port,
		handler: corsHandler,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%s", port),
			Handler: corsHandler,
		},
	}
}

// Handler returns the fully wired HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the REST API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
