package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rentease/backend/internal/logger"
	"github.com/rentease/backend/internal/services"
	"github.com/rs/zerolog"
)

const (
	maxBodyBytes = 1_048_576
	defaultLimit = 50
	maxLimit     = 100
)

// decodeJSON reads exactly one JSON object into dst and writes a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

func parseLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, false
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, true
}

// respondError maps service errors onto status codes. Upstream failures are
// logged in full and reported to the caller generically.
func respondError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	var gwErr *services.GatewayError
	switch {
	case errors.Is(err, services.ErrPropertyNotFound):
		services.SendErrorResponse(w, "Property not found", http.StatusNotFound, nil)
	case errors.Is(err, services.ErrNoLandlord):
		services.SendErrorResponse(w, "Property landlord not found", http.StatusNotFound, nil)
	case errors.Is(err, services.ErrSelfDeal):
		services.SendErrorResponse(w, "You cannot pay rent into escrow for your own property", http.StatusBadRequest, nil)
	case errors.Is(err, services.ErrNotAuthorizedOrNotFound):
		services.SendErrorResponse(w, "Escrow not found or you are not authorized", http.StatusForbidden, nil)
	case errors.Is(err, services.ErrNotificationNotFound):
		services.SendErrorResponse(w, "Notification not found", http.StatusNotFound, nil)
	case errors.Is(err, services.ErrNotParticipant):
		services.SendErrorResponse(w, "You are not part of this conversation", http.StatusForbidden, nil)
	case errors.Is(err, services.ErrMessageBlocked):
		services.SendErrorResponse(w, "Message blocked: please keep contact details on the platform", http.StatusUnprocessableEntity, nil)
	case errors.As(err, &gwErr):
		logger.FromContext(r.Context(), log).Error().
			Err(err).
			Str("gateway_code", gwErr.Code).
			Int("gateway_status", gwErr.StatusCode).
			Str("path", r.URL.Path).
			Msg("payment gateway request failed")
		services.SendErrorResponse(w, "Payment processing failed", http.StatusInternalServerError, nil)
	default:
		logger.FromContext(r.Context(), log).Error().
			Err(err).
			Str("path", r.URL.Path).
			Msg("request failed")
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}
