package wallet

import (
	"context"
	"fmt"

	"tyremarket/internal/common/database"
)

// Store provides wallet and recharge-package data access
type Store struct {
	db *database.DB
}

// NewStore creates a new wallet store
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

const walletColumns = `
	id, dealer_id, purchased_credits, bonus_credits, version, created_at, updated_at
`

// Create inserts a new wallet. The dealer_id unique constraint enforces
// one wallet per dealer.
func (s *Store) Create(ctx context.Context, w *Wallet) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO wallets (id, dealer_id, purchased_credits, bonus_credits, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		w.ID, w.DealerID, w.PurchasedCredits, w.BonusCredits, w.Version, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("wallet for dealer %s: %w", w.DealerID, database.ErrAlreadyExists)
		}
		return fmt.Errorf("creating wallet: %w", err)
	}
	return nil
}

// GetByDealer retrieves a dealer's wallet without locking.
func (s *Store) GetByDealer(ctx context.Context, dealerID string) (*Wallet, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE dealer_id = $1`, dealerID)
	return scanWallet(row)
}

// GetByDealerForUpdate retrieves a dealer's wallet holding an exclusive
// row lock until the surrounding transaction ends. Settlement paths take
// this lock only after the lead lock, never before.
func (s *Store) GetByDealerForUpdate(ctx context.Context, q database.Querier, dealerID string) (*Wallet, error) {
	row := q.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE dealer_id = $1 FOR UPDATE`, dealerID)
	return scanWallet(row)
}

// Save persists wallet balances with an optimistic version check. The
// exclusive row lock is the primary guard; a version mismatch here means
// something bypassed it, and the whole unit of work aborts with
// database.ErrConflict.
func (s *Store) Save(ctx context.Context, q database.Querier, w *Wallet) error {
	tag, err := q.Exec(ctx, `
		UPDATE wallets
		SET purchased_credits = $2, bonus_credits = $3, version = version + 1, updated_at = $4
		WHERE id = $1 AND version = $5`,
		w.ID, w.PurchasedCredits, w.BonusCredits, w.UpdatedAt, w.Version,
	)
	if err != nil {
		return fmt.Errorf("saving wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet %s version %d: %w", w.ID, w.Version, database.ErrConflict)
	}
	w.Version++
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWallet(row rowScanner) (*Wallet, error) {
	var w Wallet
	err := row.Scan(
		&w.ID, &w.DealerID, &w.PurchasedCredits, &w.BonusCredits,
		&w.Version, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("scanning wallet: %w", err)
	}
	return &w, nil
}

// GetPackage retrieves a recharge package by id.
func (s *Store) GetPackage(ctx context.Context, q database.Querier, id string) (*RechargePackage, error) {
	var p RechargePackage
	err := q.QueryRow(ctx, `
		SELECT id, name, price_paise, base_credits, bonus_credits, popular, active
		FROM recharge_packages WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.PricePaise, &p.BaseCredits, &p.BonusCredits, &p.Popular, &p.Active)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("getting package: %w", err)
	}
	return &p, nil
}

// ListActivePackages returns purchasable packages, popular first.
func (s *Store) ListActivePackages(ctx context.Context) ([]*RechargePackage, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, price_paise, base_credits, bonus_credits, popular, active
		FROM recharge_packages
		WHERE active
		ORDER BY popular DESC, price_paise`)
	if err != nil {
		return nil, fmt.Errorf("listing packages: %w", err)
	}
	defer rows.Close()

	var packages []*RechargePackage
	for rows.Next() {
		var p RechargePackage
		if err := rows.Scan(&p.ID, &p.Name, &p.PricePaise, &p.BaseCredits, &p.BonusCredits, &p.Popular, &p.Active); err != nil {
			return nil, fmt.Errorf("scanning package: %w", err)
		}
		packages = append(packages, &p)
	}
	return packages, rows.Err()
}
