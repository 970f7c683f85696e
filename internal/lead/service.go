package lead

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"tyremarket/internal/common/events"
)

// Service-level errors.
var (
	// ErrNotAwardedDealer is returned when a dealer acts on a lead awarded
	// to someone else.
	ErrNotAwardedDealer = errors.New("lead is not awarded to this dealer")

	// ErrNotOwner is returned when a customer acts on another customer's
	// lead.
	ErrNotOwner = errors.New("lead belongs to another customer")
)

// Storage abstracts lead persistence for the service.
type Storage interface {
	Create(ctx context.Context, l *Lead) error
	Get(ctx context.Context, id string) (*Lead, error)
	Mutate(ctx context.Context, id string, fn func(*Lead) error) (*Lead, error)
	List(ctx context.Context, f Filter) ([]*Lead, int64, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*Lead, error)
	ListAwardedToDealer(ctx context.Context, dealerID string, limit, offset int) ([]*Lead, int64, error)
	SubmitOffer(ctx context.Context, o *Offer) (*Lead, error)
	ListOffers(ctx context.Context, leadID string) ([]*Offer, error)
}

// Service handles lead intake, verification and discovery.
type Service struct {
	store     Storage
	publisher events.Publisher
	logger    *slog.Logger
}

// NewService creates a new lead service
func NewService(store Storage, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateParams describes a customer's tyre requirement.
type CreateParams struct {
	VehicleType     string `json:"vehicle_type" validate:"required,oneof=2W 3W 4W"`
	TyreType        string `json:"tyre_type" validate:"required,oneof=New Used"`
	TyreBrand       string `json:"tyre_brand" validate:"required"`
	VehicleModel    string `json:"vehicle_model" validate:"required"`
	LocationArea    string `json:"location_area" validate:"required"`
	LocationPincode string `json:"location_pincode" validate:"required,len=6,numeric"`
}

// Create registers a new lead in the NEW state. It becomes visible to
// dealers only after verification.
func (s *Service) Create(ctx context.Context, customerID, customerMobile string, params CreateParams) (*Lead, error) {
	l, err := New(ulid.Make().String(), customerID, customerMobile)
	if err != nil {
		return nil, err
	}
	l.VehicleType = params.VehicleType
	l.TyreType = params.TyreType
	l.TyreBrand = params.TyreBrand
	l.VehicleModel = params.VehicleModel
	l.LocationArea = params.LocationArea
	l.LocationPincode = params.LocationPincode

	if err := s.store.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("creating lead: %w", err)
	}

	s.logger.Info("lead created",
		"lead_id", l.ID,
		"customer_id", l.CustomerID,
		"vehicle_type", l.VehicleType,
	)

	s.publish(ctx, events.SubjectLeads, events.TypeLeadCreated, l.ID, events.LeadCreatedData{
		LeadID:          l.ID,
		CustomerID:      l.CustomerID,
		VehicleType:     l.VehicleType,
		LocationPincode: l.LocationPincode,
	})

	return l, nil
}

// Verify confirms the customer's contact number and opens the lead for
// offers.
func (s *Service) Verify(ctx context.Context, leadID string) (*Lead, error) {
	l, err := s.store.Mutate(ctx, leadID, func(l *Lead) error {
		return l.Verify()
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("lead verified", "lead_id", l.ID)
	return l, nil
}

// Get returns the lead projected for the given viewer.
func (s *Service) Get(ctx context.Context, leadID, viewerDealerID string) (View, error) {
	l, err := s.store.Get(ctx, leadID)
	if err != nil {
		return View{}, err
	}
	return l.ViewFor(viewerDealerID), nil
}

// EnsureOwner verifies that the lead belongs to the given customer.
func (s *Service) EnsureOwner(ctx context.Context, leadID, customerID string) error {
	l, err := s.store.Get(ctx, leadID)
	if err != nil {
		return err
	}
	if l.CustomerID != customerID {
		return fmt.Errorf("lead %s: %w", leadID, ErrNotOwner)
	}
	return nil
}

// Discover lists leads for a browsing dealer. Protected fields stay hidden
// unless the dealer holds the award.
func (s *Service) Discover(ctx context.Context, viewerDealerID string, f Filter) ([]View, int64, error) {
	leads, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	views := make([]View, 0, len(leads))
	for _, l := range leads {
		views = append(views, l.ViewFor(viewerDealerID))
	}
	return views, total, nil
}

// ListForCustomer returns the customer's own leads, contact number included.
func (s *Service) ListForCustomer(ctx context.Context, customerID string) ([]View, error) {
	leads, err := s.store.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(leads))
	for _, l := range leads {
		views = append(views, l.OwnerView())
	}
	return views, nil
}

// ListAwarded returns the leads a dealer has won, with full contact details.
func (s *Service) ListAwarded(ctx context.Context, dealerID string, limit, offset int) ([]View, int64, error) {
	leads, total, err := s.store.ListAwardedToDealer(ctx, dealerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	views := make([]View, 0, len(leads))
	for _, l := range leads {
		views = append(views, l.ViewFor(dealerID))
	}
	return views, total, nil
}

// OfferParams describes a dealer's quote.
type OfferParams struct {
	Price          int      `json:"price" validate:"required,gt=0"`
	TyreCondition  string   `json:"tyre_condition" validate:"omitempty,oneof=New Used"`
	StockAvailable bool     `json:"stock_available"`
	ImageURLs      []string `json:"image_urls" validate:"max=5,dive,url"`
}

// SubmitOffer records a dealer's quote against a lead. The first offer moves
// the lead to OFFER_RECEIVED.
func (s *Service) SubmitOffer(ctx context.Context, leadID, dealerID string, params OfferParams) (*Offer, error) {
	o, err := NewOffer(ulid.Make().String(), leadID, dealerID,
		params.Price, params.TyreCondition, params.StockAvailable, params.ImageURLs)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.SubmitOffer(ctx, o); err != nil {
		return nil, err
	}

	s.logger.Info("offer submitted",
		"lead_id", leadID,
		"dealer_id", dealerID,
		"offer_id", o.ID,
		"price", o.Price,
	)

	s.publish(ctx, events.SubjectLeads, events.TypeLeadOfferReceived, leadID, events.LeadOfferReceivedData{
		LeadID:   leadID,
		DealerID: dealerID,
		OfferID:  o.ID,
		Price:    o.Price,
	})

	return o, nil
}

// Offers lists the quotes submitted against a lead.
func (s *Service) Offers(ctx context.Context, leadID string) ([]*Offer, error) {
	return s.store.ListOffers(ctx, leadID)
}

// Close finishes an awarded lead. Only the awarded dealer may close it.
func (s *Service) Close(ctx context.Context, leadID, dealerID string) (*Lead, error) {
	l, err := s.store.Mutate(ctx, leadID, func(l *Lead) error {
		if !l.AwardedTo(dealerID) {
			return fmt.Errorf("lead %s: %w", leadID, ErrNotAwardedDealer)
		}
		return l.Close()
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("lead closed", "lead_id", l.ID, "dealer_id", dealerID)

	s.publish(ctx, events.SubjectLeads, events.TypeLeadClosed, l.ID, events.LeadClosedData{
		LeadID:   l.ID,
		DealerID: dealerID,
	})

	return l, nil
}

func (s *Service) publish(ctx context.Context, subject, eventType, aggregateID string, data interface{}) {
	event, err := events.New(eventType, "lead", aggregateID, data)
	if err != nil {
		s.logger.Error("building event", "type", eventType, "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		s.logger.Error("publishing event", "type", eventType, "error", err)
	}
}
