package handlers

import (
	"io"
	"net/http"

	"github.com/rentease/backend/internal/logger"
	"github.com/rentease/backend/internal/services"
	"github.com/rs/zerolog"
)

type WebhookHandler struct {
	webhooks     *services.WebhookService
	maxBodyBytes int64
	log          zerolog.Logger
}

func NewWebhookHandler(webhooks *services.WebhookService, maxBodyBytes int64, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, maxBodyBytes: maxBodyBytes, log: log}
}

// StripeWebhook receives payment intent events from Stripe
// @Summary Stripe webhook
// @Description Signature is checked over the raw body. Any verified event is acknowledged with 200.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {object} object{received=bool}
// @Failure 400 {object} services.ErrorResponse
// @Router /webhooks/stripe [post]
func (h *WebhookHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.log)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	event, err := h.webhooks.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		log.Warn().Err(err).Msg("rejected webhook")
		services.SendErrorResponse(w, "Webhook signature verification failed", http.StatusBadRequest, nil)
		return
	}

	h.webhooks.Dispatch(r.Context(), event)

	services.SendJSON(w, http.StatusOK, map[string]bool{"received": true})
}
