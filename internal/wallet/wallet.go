// Package wallet provides dealer credit wallets with purchased and bonus
// pools and the recharge operations that fund them.
package wallet

import (
	"errors"
	"time"
)

// Domain errors.
var (
	ErrInvalidAmount     = errors.New("amount cannot be negative")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Wallet holds a dealer's prepaid credits, split into a purchased pool
// (real money) and a bonus pool (promotional grants). Exactly one wallet
// exists per dealer. Balances are mutated only through Deduct and Credit;
// persistence and concurrency control belong to the caller.
type Wallet struct {
	ID               string    `json:"id"`
	DealerID         string    `json:"dealer_id"`
	PurchasedCredits int       `json:"purchased_credits"`
	BonusCredits     int       `json:"bonus_credits"`
	Version          int64     `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// New creates an empty wallet for a dealer.
func New(id, dealerID string) (*Wallet, error) {
	if id == "" {
		return nil, errors.New("id is required")
	}
	if dealerID == "" {
		return nil, errors.New("dealer_id is required")
	}

	now := time.Now().UTC()
	return &Wallet{
		ID:        id,
		DealerID:  dealerID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TotalCredits returns the combined balance of both pools.
func (w *Wallet) TotalCredits() int {
	return w.PurchasedCredits + w.BonusCredits
}

// CanAfford reports whether the wallet covers the given cost.
func (w *Wallet) CanAfford(cost int) (bool, error) {
	if cost < 0 {
		return false, ErrInvalidAmount
	}
	return w.TotalCredits() >= cost, nil
}

// DeductionBreakdown records how a debit was split across the two pools.
type DeductionBreakdown struct {
	Purchased int `json:"purchased"`
	Bonus     int `json:"bonus"`
}

// Total returns the combined amount drawn.
func (b DeductionBreakdown) Total() int {
	return b.Purchased + b.Bonus
}

// Deduct removes amount from the wallet, drawing purchased credits first
// and only then bonus credits. The draw-down order is a fixed business
// rule. On ErrInvalidAmount or ErrInsufficientFunds both pools are left
// untouched.
func (w *Wallet) Deduct(amount int) (DeductionBreakdown, error) {
	if amount < 0 {
		return DeductionBreakdown{}, ErrInvalidAmount
	}
	if w.TotalCredits() < amount {
		return DeductionBreakdown{}, ErrInsufficientFunds
	}

	var breakdown DeductionBreakdown
	if w.PurchasedCredits >= amount {
		w.PurchasedCredits -= amount
		breakdown.Purchased = amount
	} else {
		breakdown.Purchased = w.PurchasedCredits
		breakdown.Bonus = amount - w.PurchasedCredits
		w.PurchasedCredits = 0
		w.BonusCredits -= breakdown.Bonus
	}

	w.UpdatedAt = time.Now().UTC()
	return breakdown, nil
}

// Credit adds to the purchased and bonus pools independently.
func (w *Wallet) Credit(purchased, bonus int) error {
	if purchased < 0 || bonus < 0 {
		return ErrInvalidAmount
	}
	w.PurchasedCredits += purchased
	w.BonusCredits += bonus
	w.UpdatedAt = time.Now().UTC()
	return nil
}
