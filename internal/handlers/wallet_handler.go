package handlers

import (
	"net/http"

	"github.com/rentease/backend/internal/middleware"
	"github.com/rentease/backend/internal/services"
	"github.com/rs/zerolog"
)

type WalletHandler struct {
	ledger *services.LedgerService
	log    zerolog.Logger
}

func NewWalletHandler(ledger *services.LedgerService, log zerolog.Logger) *WalletHandler {
	return &WalletHandler{ledger: ledger, log: log}
}

// GetBalance returns the caller's wallet balance
// @Summary Wallet balance
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{userId=string,balance=string}
// @Failure 401 {object} services.ErrorResponse
// @Router /wallet/balance [get]
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	balance, err := h.ledger.GetBalance(r.Context(), userID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	services.SendJSON(w, http.StatusOK, map[string]any{
		"userId":  userID,
		"balance": balance.Balance,
	})
}

// ListTransactions returns the caller's ledger, newest first
// @Summary Wallet transactions
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum rows (default 50, max 100)"
// @Success 200 {object} object{transactions=[]models.Transaction,count=int}
// @Failure 400 {object} services.ErrorResponse
// @Router /wallet/transactions [get]
func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		services.SendErrorResponse(w, "limit must be a positive integer", http.StatusBadRequest, nil)
		return
	}

	txs, err := h.ledger.ListForUser(r.Context(), middleware.UserID(r.Context()), limit)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	services.SendJSON(w, http.StatusOK, map[string]any{"transactions": txs, "count": len(txs)})
}
