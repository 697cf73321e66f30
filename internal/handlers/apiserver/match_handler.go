package apiserver

import (
	"errors"
	"net/http"
	"strconv"

	"match-go/internal/middleware"
	"match-go/internal/services"

	"github.com/gorilla/mux"
)

const (
	defaultMatchPageSize = 50
	maxMatchPageSize     = 200
)

// MatchHandler exposes the match registry's read surface.
type MatchHandler struct {
	MatchService services.MatchService
}

// NewMatchHandler creates a new MatchHandler instance.
func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{MatchService: matchService}
}

// ListMatches handles GET /api/v1/matches?limit=&offset=.
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	limit := defaultMatchPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxMatchPageSize {
		limit = maxMatchPageSize
	}

	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	matches, err := h.MatchService.ListMatches(r.Context(), userID, limit, offset)
	if err != nil {
		writeJSONError(w, "failed to list matches", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusOK, matches)
}

// GetMatch handles GET /api/v1/matches/{pairKey}.
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	pairKey := mux.Vars(r)["pairKey"]
	match, err := h.MatchService.GetMatch(r.Context(), userID, pairKey)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMatchNotFound):
			writeJSONError(w, "match not found", http.StatusNotFound)
		case errors.Is(err, services.ErrNotMatchMember):
			writeJSONError(w, "not a member of this match", http.StatusForbidden)
		default:
			writeJSONError(w, "failed to load match", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, match)
}
