package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"match-go/internal/middleware"
	"match-go/internal/models"
	"match-go/internal/services"
)

// SwipeHandler exposes the swipe write path over HTTP.
type SwipeHandler struct {
	SwipeService services.SwipeService
}

// NewSwipeHandler creates a new SwipeHandler instance.
func NewSwipeHandler(swipeService services.SwipeService) *SwipeHandler {
	return &SwipeHandler{SwipeService: swipeService}
}

// SwipeRequest is the payload for recording a decision.
type SwipeRequest struct {
	TargetID  uint   `json:"targetId"`
	Direction string `json:"direction"`
}

// ResetSwipesResponse reports how many decisions a reset removed.
type ResetSwipesResponse struct {
	Deleted int64 `json:"deleted"`
}

// RecordSwipe handles POST /api/v1/swipes. The actor is always the
// authenticated user; the body only names the target and direction.
func (h *SwipeHandler) RecordSwipe(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	var req SwipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	result, err := h.SwipeService.RecordSwipe(r.Context(), actorID, req.TargetID, models.Direction(req.Direction))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidDirection):
			writeJSONError(w, "direction must be like or pass", http.StatusBadRequest)
		case errors.Is(err, services.ErrInvalidTarget):
			writeJSONError(w, "invalid swipe target", http.StatusBadRequest)
		case errors.Is(err, services.ErrAccountNotFound):
			writeJSONError(w, "account not found", http.StatusNotFound)
		case errors.Is(err, services.ErrQuotaExceeded):
			// The quota refusal carries a well-formed body so clients can
			// render the paywall without parsing the error string.
			writeJSONResponse(w, http.StatusTooManyRequests, result)
		case errors.Is(err, services.ErrTransactionConflict):
			writeJSONError(w, "storage conflict, please retry", http.StatusServiceUnavailable)
		default:
			writeJSONError(w, "failed to record swipe", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, result)
}

// ResetSwipes handles DELETE /api/v1/swipes. Debug facility: it clears
// the caller's own decisions, nothing else.
func (h *SwipeHandler) ResetSwipes(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	deleted, err := h.SwipeService.ResetSwipes(r.Context(), actorID)
	if err != nil {
		writeJSONError(w, "failed to reset swipes", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusOK, ResetSwipesResponse{Deleted: deleted})
}
