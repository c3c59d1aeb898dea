package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/fortuna/propscout/internal/schedule"
	"github.com/fortuna/propscout/internal/scoring"
	"github.com/fortuna/propscout/internal/store"
)

// BoardProvider exposes the latest scored board
type BoardProvider interface {
	Latest() *scoring.Report
	GetStatus() map[string]interface{}
}

// TeamGameSource supplies a team's game dates
type TeamGameSource interface {
	TeamGames(ctx context.Context, team string) ([]store.TeamGame, error)
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	boards BoardProvider
	teams  TeamGameSource
	now    func() time.Time
}

// NewHandler creates a new handler
func NewHandler(boards BoardProvider, teams TeamGameSource) *Handler {
	return &Handler{
		boards: boards,
		teams:  teams,
		now:    time.Now,
	}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "propscout",
		"scheduler": h.boards.GetStatus(),
	})
}

// GetBoard returns the latest scored board.
// Query params: stat_type filters rows; sort=model_score orders by score, highest first.
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	report := h.boards.Latest()
	if report == nil {
		respondError(w, http.StatusServiceUnavailable, "No board scored yet", nil)
		return
	}

	rows := report.Rows
	if statType := r.URL.Query().Get("stat_type"); statType != "" {
		filtered := make([]store.ScoredProjection, 0, len(rows))
		for _, row := range rows {
			if row.ProjectionType == statType {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	switch r.URL.Query().Get("sort") {
	case "", "name":
	case "model_score":
		sorted := make([]store.ScoredProjection, len(rows))
		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].ModelScore > sorted[j].ModelScore
		})
		rows = sorted
	default:
		respondError(w, http.StatusBadRequest, "sort must be name or model_score", nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rows":     rows,
		"count":    len(rows),
		"warnings": report.Warnings,
	})
}

// GetExcluded returns the projections left off the latest board and why
func (h *Handler) GetExcluded(w http.ResponseWriter, r *http.Request) {
	report := h.boards.Latest()
	if report == nil {
		respondError(w, http.StatusServiceUnavailable, "No board scored yet", nil)
		return
	}
	respondJSON(w, http.StatusOK, report.Excluded)
}

// GetPlayerRows returns one player's rows from the latest board
func (h *Handler) GetPlayerRows(w http.ResponseWriter, r *http.Request) {
	report := h.boards.Latest()
	if report == nil {
		respondError(w, http.StatusServiceUnavailable, "No board scored yet", nil)
		return
	}

	name := mux.Vars(r)["name"]
	var rows []store.ScoredProjection
	for _, row := range report.Rows {
		if strings.EqualFold(row.Name, name) {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		respondError(w, http.StatusNotFound, "Player not on board", nil)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// GetTeamRest classifies a team's rest situation for today
func (h *Handler) GetTeamRest(w http.ResponseWriter, r *http.Request) {
	team := strings.ToUpper(mux.Vars(r)["team"])
	if len(team) != 3 {
		respondError(w, http.StatusBadRequest, "Team must be a 3-letter code", nil)
		return
	}

	games, err := h.teams.TeamGames(r.Context(), team)
	if errors.Is(err, store.ErrMissingData) {
		respondError(w, http.StatusNotFound, "No games for team", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusBadGateway, "Failed to fetch team games", err)
		return
	}

	rest, err := schedule.Classify(team, games, h.now())
	if errors.Is(err, store.ErrMissingData) {
		respondError(w, http.StatusNotFound, "No completed games for team", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to classify rest", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rest":        rest,
		"description": rest.Situation.Describe(team),
	})
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
