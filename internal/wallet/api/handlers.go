// Package api exposes dealer wallets and recharges over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tyremarket/internal/common/api"
	"tyremarket/internal/common/database"
	"tyremarket/internal/common/middleware"
	"tyremarket/internal/settlement"
	"tyremarket/internal/wallet"
)

// Handler handles wallet HTTP requests
type Handler struct {
	wallets    *wallet.Service
	settlement *settlement.Service
}

// NewHandler creates a new wallet handler
func NewHandler(wallets *wallet.Service, settlement *settlement.Service) *Handler {
	return &Handler{
		wallets:    wallets,
		settlement: settlement,
	}
}

// Routes returns the wallet routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetBalance)
	r.Get("/transactions", h.ListTransactions)
	r.Get("/packages", h.ListPackages)
	r.Post("/recharge", h.InitiateRecharge)
	r.Post("/recharge/verify", h.VerifyRecharge)

	return r
}

// GetBalance handles GET /wallet
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	dealerID := middleware.GetDealerID(r.Context())
	if dealerID == "" {
		api.Unauthorized(w, "dealer identity required")
		return
	}

	balance, err := h.wallets.Balance(r.Context(), dealerID)
	if err != nil {
		writeWalletError(w, err)
		return
	}

	api.WriteData(w, http.StatusOK, balance)
}

// ListTransactions handles GET /wallet/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	dealerID := middleware.GetDealerID(r.Context())
	if dealerID == "" {
		api.Unauthorized(w, "dealer identity required")
		return
	}

	pagination := api.GetPaginationParams(r, 20, 100)
	txns, err := h.wallets.History(r.Context(), dealerID, pagination.Limit, pagination.Offset)
	if err != nil {
		writeWalletError(w, err)
		return
	}

	api.WriteData(w, http.StatusOK, txns)
}

// ListPackages handles GET /wallet/packages
func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.wallets.Packages(r.Context())
	if err != nil {
		writeWalletError(w, err)
		return
	}

	api.WriteData(w, http.StatusOK, packages)
}

// InitiateRecharge handles POST /wallet/recharge
func (h *Handler) InitiateRecharge(w http.ResponseWriter, r *http.Request) {
	dealerID := middleware.GetDealerID(r.Context())
	if dealerID == "" {
		api.Unauthorized(w, "dealer identity required")
		return
	}

	var req struct {
		PackageID string `json:"package_id" validate:"required"`
	}
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	order, err := h.settlement.InitiateRecharge(r.Context(), dealerID, req.PackageID)
	if err != nil {
		writeWalletError(w, err)
		return
	}

	api.WriteData(w, http.StatusCreated, order)
}

// VerifyRecharge handles POST /wallet/recharge/verify
func (h *Handler) VerifyRecharge(w http.ResponseWriter, r *http.Request) {
	dealerID := middleware.GetDealerID(r.Context())
	if dealerID == "" {
		api.Unauthorized(w, "dealer identity required")
		return
	}

	var req struct {
		PackageID string `json:"package_id" validate:"required"`
		OrderID   string `json:"order_id" validate:"required"`
		PaymentID string `json:"payment_id" validate:"required"`
		Signature string `json:"signature" validate:"required"`
	}
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	wlt, err := h.settlement.Recharge(r.Context(), dealerID, settlement.Verification{
		PackageID: req.PackageID,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		writeWalletError(w, err)
		return
	}

	api.WriteData(w, http.StatusOK, wlt)
}

func writeWalletError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		api.NotFound(w, "not found")
	case errors.Is(err, database.ErrAlreadyExists):
		api.Conflict(w, "payment already processed")
	case errors.Is(err, settlement.ErrSignatureInvalid):
		api.WriteError(w, http.StatusBadRequest, api.ErrCodeSignatureInvalid, "payment signature verification failed")
	case errors.Is(err, settlement.ErrInvalidArgument):
		api.BadRequest(w, err.Error())
	default:
		api.InternalError(w, "request failed")
	}
}
