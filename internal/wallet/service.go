package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"tyremarket/internal/common/database"
	"tyremarket/internal/ledger"
)

// Storage abstracts wallet persistence for the service.
type Storage interface {
	Create(ctx context.Context, w *Wallet) error
	GetByDealer(ctx context.Context, dealerID string) (*Wallet, error)
	ListActivePackages(ctx context.Context) ([]*RechargePackage, error)
}

// LedgerStorage is the read side of the transaction ledger.
type LedgerStorage interface {
	ListByDealer(ctx context.Context, dealerID string, limit, offset int) ([]*ledger.Transaction, error)
	ListByWallet(ctx context.Context, walletID string) ([]*ledger.Transaction, error)
}

// Service serves wallet views, recharge packages and ledger history.
type Service struct {
	store  Storage
	ledger LedgerStorage
	logger *slog.Logger
}

// NewService creates a new wallet service
func NewService(store Storage, ledger LedgerStorage, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		ledger: ledger,
		logger: logger,
	}
}

// EnsureWallet returns the dealer's wallet, creating an empty one on first
// use.
func (s *Service) EnsureWallet(ctx context.Context, dealerID string) (*Wallet, error) {
	w, err := s.store.GetByDealer(ctx, dealerID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	w, err = New(ulid.Make().String(), dealerID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, w); err != nil {
		// Lost a race against a concurrent first request for the same dealer.
		if errors.Is(err, database.ErrAlreadyExists) {
			return s.store.GetByDealer(ctx, dealerID)
		}
		return nil, fmt.Errorf("creating wallet for dealer %s: %w", dealerID, err)
	}

	s.logger.Info("wallet created", "wallet_id", w.ID, "dealer_id", dealerID)
	return w, nil
}

// BalanceView is the dealer-facing wallet summary.
type BalanceView struct {
	WalletID         string `json:"wallet_id"`
	DealerID         string `json:"dealer_id"`
	PurchasedCredits int    `json:"purchased_credits"`
	BonusCredits     int    `json:"bonus_credits"`
	TotalCredits     int    `json:"total_credits"`
}

// Balance returns the dealer's current pools.
func (s *Service) Balance(ctx context.Context, dealerID string) (*BalanceView, error) {
	w, err := s.EnsureWallet(ctx, dealerID)
	if err != nil {
		return nil, err
	}
	return &BalanceView{
		WalletID:         w.ID,
		DealerID:         w.DealerID,
		PurchasedCredits: w.PurchasedCredits,
		BonusCredits:     w.BonusCredits,
		TotalCredits:     w.TotalCredits(),
	}, nil
}

// History returns the dealer's ledger entries, newest first.
func (s *Service) History(ctx context.Context, dealerID string, limit, offset int) ([]*ledger.Transaction, error) {
	return s.ledger.ListByDealer(ctx, dealerID, limit, offset)
}

// Packages lists the recharge packages on sale.
func (s *Service) Packages(ctx context.Context) ([]*RechargePackage, error) {
	return s.store.ListActivePackages(ctx)
}

// Audit replays the dealer's full ledger and compares the result against the
// stored balances. A mismatch means the ledger and the wallet diverged.
func (s *Service) Audit(ctx context.Context, dealerID string) error {
	w, err := s.store.GetByDealer(ctx, dealerID)
	if err != nil {
		return err
	}
	txns, err := s.ledger.ListByWallet(ctx, w.ID)
	if err != nil {
		return err
	}

	replayed := ledger.Fold(txns)
	if replayed.Purchased != w.PurchasedCredits || replayed.Bonus != w.BonusCredits {
		return fmt.Errorf("wallet %s balances (%d, %d) diverge from ledger (%d, %d)",
			w.ID, w.PurchasedCredits, w.BonusCredits, replayed.Purchased, replayed.Bonus)
	}
	return nil
}
