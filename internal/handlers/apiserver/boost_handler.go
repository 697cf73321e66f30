package apiserver

import (
	"errors"
	"net/http"
	"time"

	"match-go/internal/middleware"
	"match-go/internal/services"
)

// BoostHandler exposes boost activation.
type BoostHandler struct {
	BoostService services.BoostService
}

// NewBoostHandler creates a new BoostHandler instance.
func NewBoostHandler(boostService services.BoostService) *BoostHandler {
	return &BoostHandler{BoostService: boostService}
}

// BoostResponse is returned on successful activation.
type BoostResponse struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

// ActivateBoost handles POST /api/v1/boost.
func (h *BoostHandler) ActivateBoost(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	expiresAt, err := h.BoostService.ActivateBoost(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			writeJSONError(w, "account not found", http.StatusNotFound)
		case errors.Is(err, services.ErrBoostNotEntitled):
			writeJSONError(w, "subscription tier does not include boost", http.StatusForbidden)
		case errors.Is(err, services.ErrBoostAlreadyActive):
			writeJSONError(w, "a boost is already active", http.StatusConflict)
		default:
			writeJSONError(w, "failed to activate boost", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, BoostResponse{ExpiresAt: expiresAt})
}
