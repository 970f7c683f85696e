package lead

import (
	"errors"
	"time"
)

// ErrDuplicateOffer is returned when a dealer offers twice on one lead.
var ErrDuplicateOffer = errors.New("dealer already offered on this lead")

// Offer is a dealer's quote against a lead. One offer per dealer per lead.
type Offer struct {
	ID             string    `json:"id"`
	LeadID         string    `json:"lead_id"`
	DealerID       string    `json:"dealer_id"`
	Price          int       `json:"price"`
	TyreCondition  string    `json:"tyre_condition"`
	StockAvailable bool      `json:"stock_available"`
	ImageURLs      []string  `json:"image_urls,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewOffer creates an offer against a lead.
func NewOffer(id, leadID, dealerID string, price int, tyreCondition string, stockAvailable bool, imageURLs []string) (*Offer, error) {
	if id == "" {
		return nil, errors.New("id is required")
	}
	if leadID == "" {
		return nil, errors.New("lead_id is required")
	}
	if dealerID == "" {
		return nil, errors.New("dealer_id is required")
	}
	if price <= 0 {
		return nil, errors.New("price must be positive")
	}

	return &Offer{
		ID:             id,
		LeadID:         leadID,
		DealerID:       dealerID,
		Price:          price,
		TyreCondition:  tyreCondition,
		StockAvailable: stockAvailable,
		ImageURLs:      imageURLs,
		CreatedAt:      time.Now().UTC(),
	}, nil
}
