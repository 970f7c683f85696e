package settlement

import (
	"context"

	"tyremarket/internal/lead"
	"tyremarket/internal/ledger"
	"tyremarket/internal/wallet"
)

// Repo gives the orchestrator transactional access to leads, wallets and
// the ledger. An implementation must guarantee that everything done inside
// InTx commits or rolls back as one unit, and that the ForUpdate reads
// hold exclusive per-record locks until then.
type Repo interface {
	// InTx runs fn inside one unit of work.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// RechargePackage looks up a recharge package outside any settlement.
	RechargePackage(ctx context.Context, id string) (*wallet.RechargePackage, error)
}

// Tx is the set of operations available inside one unit of work. Callers
// must acquire the lead lock before the wallet lock on every settlement
// path; the fixed order is what rules out lock-ordering deadlocks.
type Tx interface {
	LeadForUpdate(ctx context.Context, leadID string) (*lead.Lead, error)
	SaveLead(ctx context.Context, l *lead.Lead) error

	WalletForUpdate(ctx context.Context, dealerID string) (*wallet.Wallet, error)
	SaveWallet(ctx context.Context, w *wallet.Wallet) error

	AppendTransaction(ctx context.Context, t *ledger.Transaction) error
	PaymentProcessed(ctx context.Context, paymentID string) (bool, error)
	Package(ctx context.Context, id string) (*wallet.RechargePackage, error)
}
