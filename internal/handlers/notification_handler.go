package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rentease/backend/internal/middleware"
	"github.com/rentease/backend/internal/services"
	"github.com/rs/zerolog"
)

type NotificationHandler struct {
	notifications *services.NotificationService
	validator     *services.ValidationHelper
	log           zerolog.Logger
}

func NewNotificationHandler(notifications *services.NotificationService, log zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, validator: services.NewValidationHelper(), log: log}
}

// ListNotifications
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum rows (default 50, max 100)"
// @Success 200 {object} object{notifications=[]models.Notification,count=int}
// @Router /notifications [get]
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		services.SendErrorResponse(w, "limit must be a positive integer", http.StatusBadRequest, nil)
		return
	}

	list, err := h.notifications.ListForUser(r.Context(), middleware.UserID(r.Context()), limit)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	services.SendJSON(w, http.StatusOK, map[string]any{"notifications": list, "count": len(list)})
}

// MarkRead
// @Summary Mark notification read
// @Tags Notifications
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} services.ErrorResponse
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.validator.Var(id, "required,uuid"); err != nil {
		services.SendErrorResponse(w, "Invalid notification ID", http.StatusBadRequest, nil)
		return
	}

	if err := h.notifications.MarkRead(r.Context(), id, middleware.UserID(r.Context())); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	services.SendJSON(w, http.StatusOK, map[string]any{"success": true})
}
