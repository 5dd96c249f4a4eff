package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"

	"github.com/fortuna/huddle/internal/store/repository"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler contains dependencies for HTTP handlers
type Handler struct {
	db    HealthChecker
	redis HealthChecker
	games GameQueries
}

// NewHandler creates a new handler
func NewHandler(deps Deps) *Handler {
	return &Handler{
		db:    deps.Database,
		redis: deps.Redis,
		games: deps.Games,
	}
}

// HealthCheck reports database and Redis reachability
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{}

	for name, checker := range map[string]HealthChecker{"database": h.db, "redis": h.redis} {
		if checker == nil {
			continue
		}
		if err := checker.HealthCheck(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}

	respondJSON(w, status, map[string]interface{}{
		"status":  state,
		"service": "huddle",
		"checks":  checks,
	})
}

// GetSports returns every sport with its leagues
func (h *Handler) GetSports(w http.ResponseWriter, r *http.Request) {
	sports, err := h.games.ListSports(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch sports", err)
		return
	}

	respondJSON(w, http.StatusOK, sports)
}

// GetUpcomingGames returns live and scheduled games for a sport, one page at a time
func (h *Handler) GetUpcomingGames(w http.ResponseWriter, r *http.Request) {
	sportID, err := strconv.Atoi(mux.Vars(r)["sportID"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid sport ID", err)
		return
	}

	var afterID int64
	if raw := r.URL.Query().Get("after"); raw != "" {
		afterID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || afterID < 0 {
			respondError(w, http.StatusBadRequest, "Invalid after cursor", err)
			return
		}
	}

	limit := 0 // service default
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if l, err := strconv.Atoi(raw); err == nil && l > 0 {
			limit = l
		}
	}

	page, err := h.games.ListUpcomingGames(r.Context(), sportID, afterID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch upcoming games", err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

// GetGame returns a specific game by ID
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := strconv.ParseInt(mux.Vars(r)["gameID"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid game ID", err)
		return
	}

	game, err := h.games.GetGame(r.Context(), gameID)
	if errors.Is(err, repository.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Game not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch game", err)
		return
	}

	respondJSON(w, http.StatusOK, game)
}

// GenerateUserID returns a fresh random user id
func (h *Handler) GenerateUserID(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"userId": uuid.NewString()})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	respondJSON(w, status, response)
}
