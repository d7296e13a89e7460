package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rentease/backend/internal/middleware"
	"github.com/rentease/backend/internal/services"
	"github.com/rs/zerolog"
)

type EscrowHandler struct {
	escrow    *services.EscrowService
	validator *services.ValidationHelper
	log       zerolog.Logger
}

func NewEscrowHandler(escrow *services.EscrowService, log zerolog.Logger) *EscrowHandler {
	return &EscrowHandler{escrow: escrow, validator: services.NewValidationHelper(), log: log}
}

// ListEscrows returns escrows where the caller is tenant or landlord
// @Summary List escrows
// @Tags Escrows
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{escrows=[]models.EscrowTransaction,count=int}
// @Failure 401 {object} services.ErrorResponse
// @Router /escrows [get]
func (h *EscrowHandler) ListEscrows(w http.ResponseWriter, r *http.Request) {
	escrows, err := h.escrow.ListForUser(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	services.SendJSON(w, http.StatusOK, map[string]any{"escrows": escrows, "count": len(escrows)})
}

// GetEscrow returns one escrow the caller takes part in
// @Summary Get escrow
// @Tags Escrows
// @Produce json
// @Security BearerAuth
// @Param escrowId path string true "Escrow ID"
// @Success 200 {object} models.EscrowTransaction
// @Failure 403 {object} services.ErrorResponse
// @Router /escrows/{escrowId} [get]
func (h *EscrowHandler) GetEscrow(w http.ResponseWriter, r *http.Request) {
	escrowID := chi.URLParam(r, "escrowId")
	if err := h.validator.Var(escrowID, "required,uuid"); err != nil {
		services.SendErrorResponse(w, "Invalid escrow ID", http.StatusBadRequest, nil)
		return
	}

	escrow, err := h.escrow.Get(r.Context(), escrowID, middleware.UserID(r.Context()))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	services.SendJSON(w, http.StatusOK, escrow)
}

// CancelEscrow voids a pending escrow
// @Summary Cancel escrow (admin)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param escrowId path string true "Escrow ID"
// @Param request body object{notes=string} false "Cancellation notes"
// @Success 200 {object} object{success=bool}
// @Failure 403 {object} services.ErrorResponse
// @Router /admin/escrows/{escrowId}/cancel [post]
func (h *EscrowHandler) CancelEscrow(w http.ResponseWriter, r *http.Request) {
	escrowID := chi.URLParam(r, "escrowId")
	if err := h.validator.Var(escrowID, "required,uuid"); err != nil {
		services.SendErrorResponse(w, "Invalid escrow ID", http.StatusBadRequest, nil)
		return
	}

	var req struct {
		Notes *string `json:"notes" validate:"omitempty,max=1000"`
	}
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	escrow, err := h.escrow.Cancel(r.Context(), escrowID, req.Notes)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	logger := h.log.With().Str("admin_id", middleware.UserID(r.Context())).Logger()
	logger.Info().Str("escrow_id", escrow.ID).Msg("escrow cancelled by admin")

	services.SendJSON(w, http.StatusOK, map[string]any{"success": true})
}
