// Package ledger provides the append-only transaction record for wallet
// credits and debits. Entries are never updated or deleted; a wallet's
// balances must always equal the fold of its entries.
package ledger

import (
	"errors"
	"time"
)

// Direction represents whether a transaction credits or debits a wallet.
type Direction string

const (
	DirectionCredit Direction = "CREDIT"
	DirectionDebit  Direction = "DEBIT"
)

// Transaction is one immutable ledger entry. Amount is always the sum of
// the purchased and bonus components. PaymentID carries the external
// gateway payment id for recharges and is empty for internal debits; it is
// unique when present, which is what makes recharge replays detectable.
type Transaction struct {
	ID          string    `json:"id"`
	WalletID    string    `json:"wallet_id"`
	DealerID    string    `json:"dealer_id"`
	Direction   Direction `json:"direction"`
	Amount      int       `json:"amount"`
	Purchased   int       `json:"purchased"`
	Bonus       int       `json:"bonus"`
	Description string    `json:"description"`
	PaymentID   string    `json:"payment_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// New creates a ledger transaction, enforcing the component-sum invariant.
func New(id, walletID, dealerID string, direction Direction, purchased, bonus int, description, paymentID string) (*Transaction, error) {
	if id == "" {
		return nil, errors.New("id is required")
	}
	if walletID == "" {
		return nil, errors.New("wallet_id is required")
	}
	if dealerID == "" {
		return nil, errors.New("dealer_id is required")
	}
	if direction != DirectionCredit && direction != DirectionDebit {
		return nil, errors.New("direction must be CREDIT or DEBIT")
	}
	if purchased < 0 || bonus < 0 {
		return nil, errors.New("amounts cannot be negative")
	}
	if purchased+bonus == 0 {
		return nil, errors.New("amount must be positive")
	}

	return &Transaction{
		ID:          id,
		WalletID:    walletID,
		DealerID:    dealerID,
		Direction:   direction,
		Amount:      purchased + bonus,
		Purchased:   purchased,
		Bonus:       bonus,
		Description: description,
		PaymentID:   paymentID,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Balances holds per-pool balances reconstructed from the ledger.
type Balances struct {
	Purchased int
	Bonus     int
}

// Total returns the combined balance.
func (b Balances) Total() int {
	return b.Purchased + b.Bonus
}

// Fold replays transactions and returns the resulting pool balances:
// credits add, debits subtract. The result must match the stored wallet
// balances exactly.
func Fold(txns []*Transaction) Balances {
	var b Balances
	for _, t := range txns {
		switch t.Direction {
		case DirectionCredit:
			b.Purchased += t.Purchased
			b.Bonus += t.Bonus
		case DirectionDebit:
			b.Purchased -= t.Purchased
			b.Bonus -= t.Bonus
		}
	}
	return b
}
