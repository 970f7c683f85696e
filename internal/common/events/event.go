// Package events defines the domain event envelope published to NATS.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event types emitted by the marketplace.
const (
	TypeLeadCreated       = "lead.created"
	TypeLeadOfferReceived = "lead.offer_received"
	TypeLeadAwarded       = "lead.awarded"
	TypeLeadClosed        = "lead.closed"
	TypeWalletCredited    = "wallet.credited"
	TypeWalletDebited     = "wallet.debited"
)

// NATS subjects for marketplace events.
const (
	SubjectLeads   = "marketplace.leads"
	SubjectWallets = "marketplace.wallets"
)

// Event represents a domain event envelope
type Event struct {
	ID            string          `json:"event_id"`
	Type          string          `json:"type"`
	Version       int             `json:"version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Data          json.RawMessage `json:"data"`
}

// New creates a new event
func New(eventType, aggregateType, aggregateID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            ulid.Make().String(),
		Type:          eventType,
		Version:       1,
		OccurredAt:    time.Now().UTC(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Data:          dataBytes,
	}, nil
}

// WithCorrelation sets the correlation ID
func (e *Event) WithCorrelation(correlationID string) *Event {
	e.CorrelationID = correlationID
	return e
}

// DecodeData decodes the event data into a struct
func (e *Event) DecodeData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Publisher publishes events to a message broker
type Publisher interface {
	Publish(ctx context.Context, subject string, event *Event) error
}

// LeadAwardedData is the payload of a lead.awarded event.
type LeadAwardedData struct {
	LeadID         string `json:"lead_id"`
	DealerID       string `json:"dealer_id"`
	Cost           int    `json:"cost"`
	PurchasedDrawn int    `json:"purchased_drawn"`
	BonusDrawn     int    `json:"bonus_drawn"`
	TransactionID  string `json:"transaction_id"`
}

// WalletCreditedData is the payload of a wallet.credited event.
type WalletCreditedData struct {
	WalletID      string `json:"wallet_id"`
	DealerID      string `json:"dealer_id"`
	Purchased     int    `json:"purchased"`
	Bonus         int    `json:"bonus"`
	PaymentID     string `json:"payment_id"`
	TransactionID string `json:"transaction_id"`
}

// LeadCreatedData is the payload of a lead.created event.
type LeadCreatedData struct {
	LeadID          string `json:"lead_id"`
	CustomerID      string `json:"customer_id"`
	VehicleType     string `json:"vehicle_type"`
	LocationPincode string `json:"location_pincode"`
}

// LeadClosedData is the payload of a lead.closed event.
type LeadClosedData struct {
	LeadID   string `json:"lead_id"`
	DealerID string `json:"dealer_id"`
}

// LeadOfferReceivedData is the payload of a lead.offer_received event.
type LeadOfferReceivedData struct {
	LeadID   string `json:"lead_id"`
	DealerID string `json:"dealer_id"`
	OfferID  string `json:"offer_id"`
	Price    int    `json:"price"`
}
