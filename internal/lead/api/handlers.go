// Package api exposes the lead marketplace over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tyremarket/internal/common/api"
	"tyremarket/internal/common/database"
	"tyremarket/internal/common/middleware"
	"tyremarket/internal/lead"
	"tyremarket/internal/settlement"
	"tyremarket/internal/wallet"
)

// Handler handles lead HTTP requests
type Handler struct {
	leads      *lead.Service
	settlement *settlement.Service
	leadCost   int
}

// NewHandler creates a new lead handler. leadCost is the credit price a
// dealer pays when a customer selects their offer.
func NewHandler(leads *lead.Service, settlement *settlement.Service, leadCost int) *Handler {
	return &Handler{
		leads:      leads,
		settlement: settlement,
		leadCost:   leadCost,
	}
}

// Routes returns the lead routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	// Customer routes
	r.Post("/", h.CreateLead)
	r.Get("/mine", h.ListMyLeads)
	r.Post("/{id}/verify", h.VerifyLead)
	r.Get("/{id}/offers", h.ListOffers)
	r.Post("/{id}/select/{dealerID}", h.SelectOffer)

	// Dealer routes
	r.Get("/", h.Discover)
	r.Get("/awarded", h.ListAwarded)
	r.Get("/{id}", h.GetLead)
	r.Post("/{id}/offers", h.SubmitOffer)
	r.Post("/{id}/close", h.CloseLead)

	return r
}

// CreateLead handles POST /leads
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.GetCustomerID(r.Context())
	if customerID == "" {
		api.Unauthorized(w, "customer identity required")
		return
	}

	var req struct {
		CustomerMobile string `json:"customer_mobile" validate:"required,len=10,numeric"`
		lead.CreateParams
	}
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	l, err := h.leads.Create(r.Context(), customerID, req.CustomerMobile, req.CreateParams)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	api.WriteData(w, http.StatusCreated, l.OwnerView())
}

// VerifyLead handles POST /leads/{id}/verify
func (h *Handler) VerifyLead(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.GetCustomerID(r.Context())
	if customerID == "" {
		api.Unauthorized(w, "customer identity required")
		return
	}
	leadID := chi.URLParam(r, "id")

	if err := h.leads.EnsureOwner(r.Context(), leadID, customerID); err != nil {
		writeLeadError(w, err)
		return
	}

	l, err := h.leads.Verify(r.Context(), leadID)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	api.WriteData(w, http.StatusOK, l.OwnerView())
}

// ListMyLeads handles GET /leads/mine
func (h *Handler) ListMyLeads(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.GetCustomerID(r.Context())
	if customerID == "" {
		api.Unauthorized(w, "customer identity required")
		return
	}

	views, err := h.leads.ListForCustomer(r.Context(), customerID)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	api.WriteData(w, http.StatusOK, views)
}

// Discover handles GET /leads
func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	dealerID := middleware.GetDealerID(r.Context())
	if dealerID == "" {
		api.Unauthorized(w, "dealer identity required")
		return
	}

	pagination := api.GetPaginationParams(r, 20, 100)
	f := lead.Filter{
		Limit:   pagination.Limit,
		Offset:  pagination.Offset,
		DateAsc: r.URL.Query().Get("order") == "oldest",
	}
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := lead.Status(statusStr)
		if !status.Valid() {
			api.BadRequest(w, "unknown status filter")
			return
		}
		f.Status = &status
	}

	views, total, err := h.leads.Discover(r.Context(), dealerID, f)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	api.WritePaginated(w, views, &api.Pagination{
		Limit:   f.Limit,
		Offset:  f.Offset,
		Total:   total,
		HasMore: int64(f.Offset+len(views)) < total,
	})
}

// ListAwarded handles GET /leads/awarded
func (h *Handler) ListAwarded(w http.ResponseWriter, r *http.Request) {
	dealerID := middleware.GetDealerID(r.Context())
	if dealerID == "" {
		api.Unauthorized(w, "dealer identity required")
		return
	}

	pagination := api.GetPaginationParams(r, 20, 100)
	views, total, err := h.leads.ListAwarded(r.Context(), dealerID, pagination.Limit, pagination.Offset)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	api.WritePaginated(w, views, &api.Pagination{
		Limit:   pagination.Limit,
		Offset:  pagination.Offset,
		Total:   total,
		HasMore: int64(pagination.Offset+len(views)) < total,
	})
}

// GetLead handles GET /leads/{id}
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	dealerID := middleware.GetDealerID(r.Context())
	if dealerID == "" {
		api.Unauthorized(w, "dealer identity required")
		return
	}

	view, err := h.leads.Get(r.Context(), chi.URLParam(r, "id"), dealerID)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	api.WriteData(w, http.StatusOK, view)
}

// SubmitOffer handles POST /leads/{id}/offers
func (h *Handler) SubmitOffer(w http.ResponseWriter, r *http.Request) {
	dealerID := middleware.GetDealerID(r.Context())
	if dealerID == "" {
		api.Unauthorized(w, "dealer identity required")
		return
	}

	var req lead.OfferParams
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	offer, err := h.leads.SubmitOffer(r.Context(), chi.URLParam(r, "id"), dealerID, req)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	api.WriteData(w, http.StatusCreated, offer)
}

// ListOffers handles GET /leads/{id}/offers
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.GetCustomerID(r.Context())
	if customerID == "" {
		api.Unauthorized(w, "customer identity required")
		return
	}
	leadID := chi.URLParam(r, "id")

	if err := h.leads.EnsureOwner(r.Context(), leadID, customerID); err != nil {
		writeLeadError(w, err)
		return
	}

	offers, err := h.leads.Offers(r.Context(), leadID)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	api.WriteData(w, http.StatusOK, offers)
}

// SelectOffer handles POST /leads/{id}/select/{dealerID}. The customer picks
// a dealer, the dealer's wallet is charged and the lead is awarded to them.
func (h *Handler) SelectOffer(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.GetCustomerID(r.Context())
	if customerID == "" {
		api.Unauthorized(w, "customer identity required")
		return
	}
	leadID := chi.URLParam(r, "id")
	dealerID := chi.URLParam(r, "dealerID")

	if err := h.leads.EnsureOwner(r.Context(), leadID, customerID); err != nil {
		writeLeadError(w, err)
		return
	}

	view, err := h.settlement.Settle(r.Context(), leadID, dealerID, h.leadCost)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	api.WriteData(w, http.StatusOK, view)
}

// CloseLead handles POST /leads/{id}/close
func (h *Handler) CloseLead(w http.ResponseWriter, r *http.Request) {
	dealerID := middleware.GetDealerID(r.Context())
	if dealerID == "" {
		api.Unauthorized(w, "dealer identity required")
		return
	}

	l, err := h.leads.Close(r.Context(), chi.URLParam(r, "id"), dealerID)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	api.WriteData(w, http.StatusOK, l.ViewFor(dealerID))
}

func writeLeadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		api.NotFound(w, "lead not found")
	case errors.Is(err, lead.ErrNotOwner), errors.Is(err, lead.ErrNotAwardedDealer):
		api.Forbidden(w, err.Error())
	case errors.Is(err, lead.ErrLeadUnavailable):
		api.WriteError(w, http.StatusConflict, api.ErrCodeLeadUnavailable, "lead is no longer available")
	case errors.Is(err, lead.ErrInvalidTransition):
		api.WriteError(w, http.StatusConflict, api.ErrCodeInvalidState, err.Error())
	case errors.Is(err, lead.ErrDuplicateOffer):
		api.Conflict(w, "dealer already offered on this lead")
	case errors.Is(err, wallet.ErrInsufficientFunds):
		api.WriteError(w, http.StatusPaymentRequired, api.ErrCodeInsufficientFunds, "wallet balance cannot cover the lead cost")
	case errors.Is(err, settlement.ErrInvalidArgument):
		api.BadRequest(w, err.Error())
	case errors.Is(err, database.ErrConflict):
		api.Conflict(w, "lead or wallet changed concurrently, retry")
	default:
		api.InternalError(w, "request failed")
	}
}
