package ledger

import (
	"context"
	"fmt"

	"tyremarket/internal/common/database"
)

// Store provides append-only access to the transaction ledger. There are
// deliberately no update or delete operations.
type Store struct {
	db *database.DB
}

// NewStore creates a new ledger store
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

const insertQuery = `
	INSERT INTO wallet_transactions (
		id, wallet_id, dealer_id, direction, amount, purchased, bonus,
		description, payment_id, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10)
`

// Append inserts a transaction using the given querier, which may be an
// open transaction when the append is part of a settlement.
func (s *Store) Append(ctx context.Context, q database.Querier, t *Transaction) error {
	_, err := q.Exec(ctx, insertQuery,
		t.ID,
		t.WalletID,
		t.DealerID,
		t.Direction,
		t.Amount,
		t.Purchased,
		t.Bonus,
		t.Description,
		t.PaymentID,
		t.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("transaction for payment %s: %w", t.PaymentID, database.ErrAlreadyExists)
		}
		return fmt.Errorf("appending transaction: %w", err)
	}
	return nil
}

// ExistsByPaymentID reports whether a transaction already carries the
// given external payment id.
func (s *Store) ExistsByPaymentID(ctx context.Context, q database.Querier, paymentID string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM wallet_transactions WHERE payment_id = $1)`,
		paymentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking payment id: %w", err)
	}
	return exists, nil
}

const selectColumns = `
	SELECT id, wallet_id, dealer_id, direction, amount, purchased, bonus,
		   COALESCE(description, ''), COALESCE(payment_id, ''), created_at
	FROM wallet_transactions
`

// ListByDealer returns a dealer's transactions, newest first.
func (s *Store) ListByDealer(ctx context.Context, dealerID string, limit, offset int) ([]*Transaction, error) {
	rows, err := s.db.Query(ctx,
		selectColumns+` WHERE dealer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		dealerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txns []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(
			&t.ID, &t.WalletID, &t.DealerID, &t.Direction, &t.Amount,
			&t.Purchased, &t.Bonus, &t.Description, &t.PaymentID, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txns = append(txns, &t)
	}
	return txns, rows.Err()
}

// ListByWallet returns every transaction for a wallet in append order,
// suitable for balance reconstruction.
func (s *Store) ListByWallet(ctx context.Context, walletID string) ([]*Transaction, error) {
	rows, err := s.db.Query(ctx,
		selectColumns+` WHERE wallet_id = $1 ORDER BY created_at, id`,
		walletID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing wallet transactions: %w", err)
	}
	defer rows.Close()

	var txns []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(
			&t.ID, &t.WalletID, &t.DealerID, &t.Direction, &t.Amount,
			&t.Purchased, &t.Bonus, &t.Description, &t.PaymentID, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txns = append(txns, &t)
	}
	return txns, rows.Err()
}
