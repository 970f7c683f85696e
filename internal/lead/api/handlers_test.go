package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tyremarket/internal/common/database"
	"tyremarket/internal/common/events"
	"tyremarket/internal/common/middleware"
	"tyremarket/internal/lead"
	"tyremarket/internal/settlement"
	"tyremarket/internal/wallet"
)

type memStorage struct {
	mu     sync.Mutex
	leads  map[string]*lead.Lead
	offers map[string][]*lead.Offer
}

func newMemStorage() *memStorage {
	return &memStorage{
		leads:  make(map[string]*lead.Lead),
		offers: make(map[string][]*lead.Offer),
	}
}

func (s *memStorage) Create(_ context.Context, l *lead.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.leads[l.ID] = &cp
	return nil
}

func (s *memStorage) Get(_ context.Context, id string) (*lead.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *memStorage) Mutate(_ context.Context, id string, fn func(*lead.Lead) error) (*lead.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *l
	if err := fn(&cp); err != nil {
		return nil, err
	}
	saved := cp
	s.leads[id] = &saved
	return &cp, nil
}

func (s *memStorage) List(_ context.Context, f lead.Filter) ([]*lead.Lead, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*lead.Lead
	for _, l := range s.leads {
		if f.Status != nil && l.Status != *f.Status {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (s *memStorage) ListByCustomer(_ context.Context, customerID string) ([]*lead.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*lead.Lead
	for _, l := range s.leads {
		if l.CustomerID == customerID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStorage) ListAwardedToDealer(_ context.Context, dealerID string, _, _ int) ([]*lead.Lead, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*lead.Lead
	for _, l := range s.leads {
		if l.AwardedDealerID == dealerID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (s *memStorage) SubmitOffer(_ context.Context, o *lead.Offer) (*lead.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[o.LeadID]
	if !ok {
		return nil, database.ErrNotFound
	}
	if !l.AcceptingOffers() {
		return nil, fmt.Errorf("lead %s: %w", o.LeadID, lead.ErrLeadUnavailable)
	}
	for _, existing := range s.offers[o.LeadID] {
		if existing.DealerID == o.DealerID {
			return nil, lead.ErrDuplicateOffer
		}
	}
	ocp := *o
	s.offers[o.LeadID] = append(s.offers[o.LeadID], &ocp)
	cp := *l
	if err := cp.MarkOfferReceived(); err != nil {
		return nil, err
	}
	saved := cp
	s.leads[o.LeadID] = &saved
	return &cp, nil
}

func (s *memStorage) ListOffers(_ context.Context, leadID string) ([]*lead.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offers[leadID], nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, *events.Event) error { return nil }

type acceptAllGateway struct{}

func (acceptAllGateway) CreateOrder(context.Context, int64) (string, error) { return "order_1", nil }
func (acceptAllGateway) VerifySignature(_, _, _ string) bool                { return true }

type fixture struct {
	router  chi.Router
	store   *memStorage
	repo    *settlement.MemoryRepo
	leadSvc *lead.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := newMemStorage()
	repo := settlement.NewMemoryRepo()

	leadSvc := lead.NewService(store, nopPublisher{}, logger)
	settleSvc := settlement.NewService(repo, acceptAllGateway{}, nopPublisher{}, logger)

	handler := NewHandler(leadSvc, settleSvc, 40)

	r := chi.NewRouter()
	r.Use(middleware.Identity)
	r.Mount("/leads", handler.Routes())

	return &fixture{router: r, store: store, repo: repo, leadSvc: leadSvc}
}

// seedLead puts the same lead into the discovery store and the settlement
// repository.
func (f *fixture) seedLead(t *testing.T, id string, status lead.Status) {
	t.Helper()
	l, err := lead.New(id, "cust_1", "9876543210")
	require.NoError(t, err)
	l.VehicleType = "4W"
	l.VehicleModel = "Swift"
	l.Status = status
	require.NoError(t, f.store.Create(context.Background(), l))
	f.repo.PutLead(l)
}

func (f *fixture) seedWallet(t *testing.T, dealerID string, purchased, bonus int) {
	t.Helper()
	w, err := wallet.New("wal_"+dealerID, dealerID)
	require.NoError(t, err)
	w.PurchasedCredits = purchased
	w.BonusCredits = bonus
	f.repo.PutWallet(w)
}

func (f *fixture) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reqBody)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func asDealer(id string) map[string]string   { return map[string]string{"X-Dealer-ID": id} }
func asCustomer(id string) map[string]string { return map[string]string{"X-Customer-ID": id} }

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestIdentityRequired(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/leads", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/leads", map[string]string{}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A customer header does not open dealer routes.
	rec = f.do(http.MethodGet, "/leads/awarded", nil, asCustomer("cust_1"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateLeadEndpoint(t *testing.T) {
	f := newFixture(t)

	body := map[string]any{
		"customer_mobile":  "9876543210",
		"vehicle_type":     "4W",
		"tyre_type":        "New",
		"tyre_brand":       "MRF",
		"vehicle_model":    "Swift",
		"location_area":    "Indiranagar",
		"location_pincode": "560038",
	}
	rec := f.do(http.MethodPost, "/leads", body, asCustomer("cust_1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var view lead.View
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &view))
	assert.Equal(t, lead.StatusNew, view.Status)
	assert.Equal(t, "9876543210", view.CustomerMobile)
}

func TestCreateLeadValidation(t *testing.T) {
	f := newFixture(t)

	body := map[string]any{
		"customer_mobile":  "9876543210",
		"vehicle_type":     "8W",
		"tyre_type":        "New",
		"tyre_brand":       "MRF",
		"vehicle_model":    "Swift",
		"location_area":    "Indiranagar",
		"location_pincode": "560038",
	}
	rec := f.do(http.MethodPost, "/leads", body, asCustomer("cust_1"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestDiscoverHidesMobile(t *testing.T) {
	f := newFixture(t)
	f.seedLead(t, "lead_1", lead.StatusVerified)

	rec := f.do(http.MethodGet, "/leads", nil, asDealer("dealer_1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []lead.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Empty(t, resp.Data[0].CustomerMobile)
	assert.Equal(t, "Swift", resp.Data[0].VehicleModel)
}

func TestGetLeadNotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/leads/missing", nil, asDealer("dealer_1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitOfferEndpoint(t *testing.T) {
	f := newFixture(t)
	f.seedLead(t, "lead_1", lead.StatusVerified)

	body := map[string]any{"price": 4500, "tyre_condition": "New", "stock_available": true}
	rec := f.do(http.MethodPost, "/leads/lead_1/offers", body, asDealer("dealer_1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Same dealer again conflicts.
	rec = f.do(http.MethodPost, "/leads/lead_1/offers", body, asDealer("dealer_1"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSelectOfferEndpoint(t *testing.T) {
	f := newFixture(t)
	f.seedLead(t, "lead_1", lead.StatusVerified)
	f.seedWallet(t, "dealer_1", 30, 20)

	rec := f.do(http.MethodPost, "/leads/lead_1/select/dealer_1", nil, asCustomer("cust_1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view lead.View
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &view))
	assert.Equal(t, lead.StatusAwarded, view.Status)
	assert.Equal(t, "9876543210", view.CustomerMobile)

	w, ok := f.repo.Wallet("dealer_1")
	require.True(t, ok)
	assert.Equal(t, 10, w.TotalCredits())

	// Another customer cannot settle someone else's lead.
	rec = f.do(http.MethodPost, "/leads/lead_1/select/dealer_1", nil, asCustomer("cust_2"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSelectOfferInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	f.seedLead(t, "lead_1", lead.StatusVerified)
	f.seedWallet(t, "dealer_1", 10, 5)

	rec := f.do(http.MethodPost, "/leads/lead_1/select/dealer_1", nil, asCustomer("cust_1"))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INSUFFICIENT_FUNDS", env.Error.Code)
}

func TestSelectOfferUnavailableLead(t *testing.T) {
	f := newFixture(t)
	f.seedLead(t, "lead_1", lead.StatusVerified)
	f.seedWallet(t, "dealer_1", 100, 0)
	f.seedWallet(t, "dealer_2", 100, 0)

	rec := f.do(http.MethodPost, "/leads/lead_1/select/dealer_1", nil, asCustomer("cust_1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/leads/lead_1/select/dealer_2", nil, asCustomer("cust_1"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "LEAD_UNAVAILABLE", env.Error.Code)
}

func TestVersionConflictMapsToConflict(t *testing.T) {
	rec := httptest.NewRecorder()
	writeLeadError(rec, database.ErrConflict)

	assert.Equal(t, http.StatusConflict, rec.Code)

	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}
