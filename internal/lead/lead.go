// Package lead provides tyre-requirement leads, their lifecycle state
// machine and the discovery queries dealers browse them through.
package lead

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors.
var (
	ErrInvalidTransition = errors.New("invalid lead state transition")
	ErrLeadUnavailable   = errors.New("lead already awarded or closed")
)

// Status represents the lifecycle state of a lead.
type Status string

const (
	StatusNew           Status = "NEW"
	StatusVerified      Status = "VERIFIED"
	StatusOfferReceived Status = "OFFER_RECEIVED"
	StatusAwarded       Status = "AWARDED"
	StatusClosed        Status = "CLOSED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusVerified, StatusOfferReceived, StatusAwarded, StatusClosed:
		return true
	}
	return false
}

// Lead is a customer's tyre requirement, tradeable among dealers. The
// customer mobile number is protected: views expose it only to the dealer
// the lead was awarded to.
type Lead struct {
	ID             string `json:"id"`
	CustomerID     string `json:"customer_id"`
	CustomerMobile string `json:"customer_mobile"`

	VehicleType     string `json:"vehicle_type"` // 2W, 3W, 4W
	TyreType        string `json:"tyre_type"`    // New, Used
	TyreBrand       string `json:"tyre_brand"`
	VehicleModel    string `json:"vehicle_model"`
	LocationArea    string `json:"location_area"`
	LocationPincode string `json:"location_pincode"`

	Status          Status     `json:"status"`
	AwardedDealerID string     `json:"awarded_dealer_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	AwardedAt       *time.Time `json:"awarded_at,omitempty"`
}

// New creates a lead in the NEW state.
func New(id, customerID, customerMobile string) (*Lead, error) {
	if id == "" {
		return nil, errors.New("id is required")
	}
	if customerID == "" {
		return nil, errors.New("customer_id is required")
	}
	if customerMobile == "" {
		return nil, errors.New("customer_mobile is required")
	}

	return &Lead{
		ID:             id,
		CustomerID:     customerID,
		CustomerMobile: customerMobile,
		Status:         StatusNew,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Verify moves a NEW lead to VERIFIED and stamps the verification time.
func (l *Lead) Verify() error {
	if l.Status != StatusNew {
		return fmt.Errorf("%w: cannot verify lead in status %s", ErrInvalidTransition, l.Status)
	}
	now := time.Now().UTC()
	l.Status = StatusVerified
	l.VerifiedAt = &now
	return nil
}

// MarkOfferReceived records that the lead has at least one offer. Only the
// first offer changes the status.
func (l *Lead) MarkOfferReceived() error {
	switch l.Status {
	case StatusVerified:
		l.Status = StatusOfferReceived
		return nil
	case StatusOfferReceived:
		return nil
	default:
		return fmt.Errorf("%w: lead in status %s is not accepting offers", ErrInvalidTransition, l.Status)
	}
}

// AcceptingOffers reports whether dealers may still submit offers.
func (l *Lead) AcceptingOffers() bool {
	return l.Status == StatusVerified || l.Status == StatusOfferReceived
}

// Award commits the lead to exactly one dealer. Legal only from VERIFIED
// or OFFER_RECEIVED; the awarded dealer is never reassigned afterwards.
func (l *Lead) Award(dealerID string) error {
	if dealerID == "" {
		return errors.New("dealer_id is required")
	}
	if l.Status != StatusVerified && l.Status != StatusOfferReceived {
		return fmt.Errorf("%w: cannot award lead in status %s", ErrInvalidTransition, l.Status)
	}
	now := time.Now().UTC()
	l.Status = StatusAwarded
	l.AwardedDealerID = dealerID
	l.AwardedAt = &now
	return nil
}

// Close finishes an awarded lead. CLOSED is terminal: no transition leaves
// it, including re-closing with a different outcome.
func (l *Lead) Close() error {
	if l.Status != StatusAwarded {
		return fmt.Errorf("%w: cannot close lead in status %s", ErrInvalidTransition, l.Status)
	}
	l.Status = StatusClosed
	return nil
}

// Available reports whether the lead can still be awarded.
func (l *Lead) Available() bool {
	return l.Status == StatusVerified || l.Status == StatusOfferReceived
}

// AwardedTo reports whether the lead is held by the given dealer.
func (l *Lead) AwardedTo(dealerID string) bool {
	return l.AwardedDealerID != "" && l.AwardedDealerID == dealerID
}

// View is the caller-facing projection of a lead. CustomerMobile is empty
// unless the viewer is the awarded dealer.
type View struct {
	ID              string     `json:"id"`
	VehicleType     string     `json:"vehicle_type"`
	TyreType        string     `json:"tyre_type"`
	TyreBrand       string     `json:"tyre_brand"`
	VehicleModel    string     `json:"vehicle_model"`
	LocationArea    string     `json:"location_area"`
	LocationPincode string     `json:"location_pincode"`
	Status          Status     `json:"status"`
	AwardedDealerID string     `json:"awarded_dealer_id,omitempty"`
	CustomerMobile  string     `json:"customer_mobile,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	AwardedAt       *time.Time `json:"awarded_at,omitempty"`
}

// ViewFor projects the lead for the given viewer. The protected mobile
// number is disclosed only to the awarded dealer, on every read path.
func (l *Lead) ViewFor(viewerDealerID string) View {
	v := View{
		ID:              l.ID,
		VehicleType:     l.VehicleType,
		TyreType:        l.TyreType,
		TyreBrand:       l.TyreBrand,
		VehicleModel:    l.VehicleModel,
		LocationArea:    l.LocationArea,
		LocationPincode: l.LocationPincode,
		Status:          l.Status,
		AwardedDealerID: l.AwardedDealerID,
		CreatedAt:       l.CreatedAt,
		VerifiedAt:      l.VerifiedAt,
		AwardedAt:       l.AwardedAt,
	}
	if viewerDealerID != "" && l.AwardedTo(viewerDealerID) {
		v.CustomerMobile = l.CustomerMobile
	}
	return v
}

// OwnerView projects the lead for its customer, who always sees their own
// mobile number.
func (l *Lead) OwnerView() View {
	v := l.ViewFor(l.AwardedDealerID)
	v.CustomerMobile = l.CustomerMobile
	return v
}
