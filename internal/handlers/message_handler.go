package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rentease/backend/internal/middleware"
	"github.com/rentease/backend/internal/services"
	"github.com/rs/zerolog"
)

type MessageHandler struct {
	messages  *services.MessageService
	validator *services.ValidationHelper
	log       zerolog.Logger
}

func NewMessageHandler(messages *services.MessageService, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, validator: services.NewValidationHelper(), log: log}
}

// SendMessage
// @Summary Send message
// @Description Contact details are masked; messages with too many are rejected
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param request body object{content=string} true "Message"
// @Success 201 {object} models.Message
// @Failure 403 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /conversations/{id}/messages [post]
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := h.validator.Var(conversationID, "required,uuid"); err != nil {
		services.SendErrorResponse(w, "Invalid conversation ID", http.StatusBadRequest, nil)
		return
	}

	var req struct {
		Content string `json:"content" validate:"required,max=4000"`
	}
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	msg, err := h.messages.Send(r.Context(), conversationID, middleware.UserID(r.Context()), req.Content)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	services.SendJSON(w, http.StatusCreated, msg)
}

// ListMessages
// @Summary List messages
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param limit query int false "Maximum rows (default 50, max 100)"
// @Success 200 {object} object{messages=[]models.Message,count=int}
// @Failure 403 {object} services.ErrorResponse
// @Router /conversations/{id}/messages [get]
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := h.validator.Var(conversationID, "required,uuid"); err != nil {
		services.SendErrorResponse(w, "Invalid conversation ID", http.StatusBadRequest, nil)
		return
	}
	limit, ok := parseLimit(r)
	if !ok {
		services.SendErrorResponse(w, "limit must be a positive integer", http.StatusBadRequest, nil)
		return
	}

	msgs, err := h.messages.List(r.Context(), conversationID, middleware.UserID(r.Context()), limit)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	services.SendJSON(w, http.StatusOK, map[string]any{"messages": msgs, "count": len(msgs)})
}
