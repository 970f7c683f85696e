package settlement

import (
	"context"

	"github.com/jackc/pgx/v5"

	"tyremarket/internal/common/database"
	"tyremarket/internal/lead"
	"tyremarket/internal/ledger"
	"tyremarket/internal/wallet"
)

// PostgresRepo implements Repo on top of the entity stores, using row
// locks (SELECT ... FOR UPDATE) scoped to a single pgx transaction.
type PostgresRepo struct {
	db      *database.DB
	leads   *lead.Store
	wallets *wallet.Store
	ledger  *ledger.Store
}

var _ Repo = (*PostgresRepo)(nil)

// NewPostgresRepo creates a new settlement repository
func NewPostgresRepo(db *database.DB, leads *lead.Store, wallets *wallet.Store, ledgerStore *ledger.Store) *PostgresRepo {
	return &PostgresRepo{
		db:      db,
		leads:   leads,
		wallets: wallets,
		ledger:  ledgerStore,
	}
}

// InTx runs fn inside one database transaction.
func (r *PostgresRepo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return r.db.WithTx(ctx, func(pgtx pgx.Tx) error {
		return fn(&postgresTx{repo: r, tx: pgtx})
	})
}

// RechargePackage looks up a recharge package outside any transaction.
func (r *PostgresRepo) RechargePackage(ctx context.Context, id string) (*wallet.RechargePackage, error) {
	return r.wallets.GetPackage(ctx, r.db, id)
}

type postgresTx struct {
	repo *PostgresRepo
	tx   pgx.Tx
}

func (t *postgresTx) LeadForUpdate(ctx context.Context, leadID string) (*lead.Lead, error) {
	return t.repo.leads.GetForUpdate(ctx, t.tx, leadID)
}

func (t *postgresTx) SaveLead(ctx context.Context, l *lead.Lead) error {
	return t.repo.leads.Save(ctx, t.tx, l)
}

func (t *postgresTx) WalletForUpdate(ctx context.Context, dealerID string) (*wallet.Wallet, error) {
	return t.repo.wallets.GetByDealerForUpdate(ctx, t.tx, dealerID)
}

func (t *postgresTx) SaveWallet(ctx context.Context, w *wallet.Wallet) error {
	return t.repo.wallets.Save(ctx, t.tx, w)
}

func (t *postgresTx) AppendTransaction(ctx context.Context, txn *ledger.Transaction) error {
	return t.repo.ledger.Append(ctx, t.tx, txn)
}

func (t *postgresTx) PaymentProcessed(ctx context.Context, paymentID string) (bool, error) {
	return t.repo.ledger.ExistsByPaymentID(ctx, t.tx, paymentID)
}

func (t *postgresTx) Package(ctx context.Context, id string) (*wallet.RechargePackage, error) {
	return t.repo.wallets.GetPackage(ctx, t.tx, id)
}
