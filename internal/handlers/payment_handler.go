package handlers

import (
	"net/http"

	"github.com/rentease/backend/internal/middleware"
	"github.com/rentease/backend/internal/services"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const idempotencyHeader = "Idempotency-Key"

type PaymentHandler struct {
	escrow    *services.EscrowService
	wallet    *services.WalletService
	validator *services.ValidationHelper
	log       zerolog.Logger
}

func NewPaymentHandler(escrow *services.EscrowService, wallet *services.WalletService, log zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		escrow:    escrow,
		wallet:    wallet,
		validator: services.NewValidationHelper(),
		log:       log,
	}
}

type createEscrowRequest struct {
	PropertyID string          `json:"propertyId" validate:"required,uuid"`
	Amount     decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Email      string          `json:"email" validate:"required,email"`
	TenantID   string          `json:"tenantId" validate:"required,uuid"`
}

type walletDepositRequest struct {
	PropertyID string          `json:"propertyId" validate:"required,uuid"`
	Amount     decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Email      string          `json:"email" validate:"required,email"`
	UserID     string          `json:"userId" validate:"required,uuid"`
}

type releaseEscrowRequest struct {
	EscrowID string  `json:"escrowId" validate:"required,uuid"`
	UserID   string  `json:"userId" validate:"required,uuid"`
	Notes    *string `json:"notes" validate:"omitempty,max=1000"`
}

// actingAs rejects requests whose bearer token names a different user than the body.
func actingAs(w http.ResponseWriter, r *http.Request, userID string) bool {
	if authUser := middleware.UserID(r.Context()); authUser != "" && authUser != userID {
		services.SendErrorResponse(w, "Escrow not found or you are not authorized", http.StatusForbidden, nil)
		return false
	}
	return true
}

// CreateEscrowPayment opens a rent payment held in escrow
// @Summary Create escrow payment
// @Description Open a card payment for rent that is held until the tenant releases it
// @Tags Payments
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Forwarded to the card processor"
// @Param request body createEscrowRequest true "Escrow payment request"
// @Success 200 {object} services.OpenEscrowResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /payments/escrow [post]
func (h *PaymentHandler) CreateEscrowPayment(w http.ResponseWriter, r *http.Request) {
	var req createEscrowRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	if !actingAs(w, r, req.TenantID) {
		return
	}

	result, err := h.escrow.Open(r.Context(), services.OpenEscrowRequest{
		PropertyID:     req.PropertyID,
		TenantID:       req.TenantID,
		Amount:         req.Amount,
		CustomerEmail:  req.Email,
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	services.SendJSON(w, http.StatusOK, result)
}

// CreateWalletDeposit opens a card payment that funds the user's wallet
// @Summary Create wallet deposit
// @Tags Payments
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Forwarded to the card processor"
// @Param request body walletDepositRequest true "Wallet deposit request"
// @Success 200 {object} services.DepositResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /payments/wallet/deposit [post]
func (h *PaymentHandler) CreateWalletDeposit(w http.ResponseWriter, r *http.Request) {
	var req walletDepositRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	if !actingAs(w, r, req.UserID) {
		return
	}

	result, err := h.wallet.Deposit(r.Context(), services.DepositRequest{
		UserID:         req.UserID,
		Amount:         req.Amount,
		PropertyID:     req.PropertyID,
		CustomerEmail:  req.Email,
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	services.SendJSON(w, http.StatusOK, result)
}

// ReleaseEscrow pays a held escrow out to the landlord
// @Summary Release escrow
// @Description Only the tenant who funded the escrow can release it, once
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body releaseEscrowRequest true "Release request"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /payments/escrow/release [post]
func (h *PaymentHandler) ReleaseEscrow(w http.ResponseWriter, r *http.Request) {
	var req releaseEscrowRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	if !actingAs(w, r, req.UserID) {
		return
	}

	if _, err := h.escrow.Release(r.Context(), req.EscrowID, req.UserID, req.Notes); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	services.SendJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Payment released to landlord",
	})
}
