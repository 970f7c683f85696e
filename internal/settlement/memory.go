package settlement

import (
	"context"
	"fmt"
	"sync"

	"tyremarket/internal/common/database"
	"tyremarket/internal/lead"
	"tyremarket/internal/ledger"
	"tyremarket/internal/wallet"
)

// MemoryRepo implements Repo entirely in memory. It reproduces the same
// locking contract as the Postgres implementation: each ForUpdate read
// takes a per-entity mutex that is held until the unit of work ends, and
// writes are staged so a failed unit of work leaves no trace. Callers keep
// the lead-then-wallet acquisition order, which is what keeps concurrent
// units of work deadlock free.
type MemoryRepo struct {
	mu          sync.Mutex
	leadLocks   map[string]*sync.Mutex
	walletLocks map[string]*sync.Mutex

	leads    map[string]*lead.Lead
	wallets  map[string]*wallet.Wallet // keyed by dealer id
	packages map[string]*wallet.RechargePackage
	txns     []*ledger.Transaction
	payments map[string]bool
}

var _ Repo = (*MemoryRepo)(nil)

// NewMemoryRepo creates an empty in-memory repository
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		leadLocks:   make(map[string]*sync.Mutex),
		walletLocks: make(map[string]*sync.Mutex),
		leads:       make(map[string]*lead.Lead),
		wallets:     make(map[string]*wallet.Wallet),
		packages:    make(map[string]*wallet.RechargePackage),
		payments:    make(map[string]bool),
	}
}

// PutLead stores a lead.
func (r *MemoryRepo) PutLead(l *lead.Lead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.leads[l.ID] = &cp
}

// PutWallet stores a wallet.
func (r *MemoryRepo) PutWallet(w *wallet.Wallet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.DealerID] = &cp
}

// PutPackage stores a recharge package.
func (r *MemoryRepo) PutPackage(p *wallet.RechargePackage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.packages[p.ID] = &cp
}

// Lead returns a copy of the stored lead.
func (r *MemoryRepo) Lead(id string) (*lead.Lead, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, false
	}
	cp := *l
	return &cp, true
}

// Wallet returns a copy of the stored wallet for a dealer.
func (r *MemoryRepo) Wallet(dealerID string) (*wallet.Wallet, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[dealerID]
	if !ok {
		return nil, false
	}
	cp := *w
	return &cp, true
}

// Transactions returns a snapshot of the ledger in append order.
func (r *MemoryRepo) Transactions() []*ledger.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ledger.Transaction, len(r.txns))
	for i, t := range r.txns {
		cp := *t
		out[i] = &cp
	}
	return out
}

// RechargePackage looks up a recharge package.
func (r *MemoryRepo) RechargePackage(_ context.Context, id string) (*wallet.RechargePackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.packages[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// InTx runs fn as one unit of work. Entity locks taken by fn are released
// only after the staged writes are applied (commit) or discarded
// (rollback).
func (r *MemoryRepo) InTx(_ context.Context, fn func(tx Tx) error) error {
	tx := &memoryTx{
		repo:          r,
		stagedLeads:   make(map[string]*lead.Lead),
		stagedWallets: make(map[string]*wallet.Wallet),
	}
	defer tx.unlockAll()

	if err := fn(tx); err != nil {
		return err
	}

	tx.commit()
	return nil
}

type memoryTx struct {
	repo   *MemoryRepo
	locked []*sync.Mutex

	stagedLeads   map[string]*lead.Lead
	stagedWallets map[string]*wallet.Wallet
	stagedTxns    []*ledger.Transaction
}

func (t *memoryTx) lockEntity(locks map[string]*sync.Mutex, key string) *sync.Mutex {
	t.repo.mu.Lock()
	mu, ok := locks[key]
	if !ok {
		mu = &sync.Mutex{}
		locks[key] = mu
	}
	t.repo.mu.Unlock()

	mu.Lock()
	t.locked = append(t.locked, mu)
	return mu
}

func (t *memoryTx) unlockAll() {
	for i := len(t.locked) - 1; i >= 0; i-- {
		t.locked[i].Unlock()
	}
	t.locked = nil
}

func (t *memoryTx) commit() {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	for id, l := range t.stagedLeads {
		cp := *l
		t.repo.leads[id] = &cp
	}
	for dealerID, w := range t.stagedWallets {
		cp := *w
		cp.Version++
		t.repo.wallets[dealerID] = &cp
	}
	for _, txn := range t.stagedTxns {
		cp := *txn
		t.repo.txns = append(t.repo.txns, &cp)
		if cp.PaymentID != "" {
			t.repo.payments[cp.PaymentID] = true
		}
	}
}

func (t *memoryTx) LeadForUpdate(_ context.Context, leadID string) (*lead.Lead, error) {
	t.lockEntity(t.repo.leadLocks, leadID)

	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	l, ok := t.repo.leads[leadID]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (t *memoryTx) SaveLead(_ context.Context, l *lead.Lead) error {
	cp := *l
	t.stagedLeads[l.ID] = &cp
	return nil
}

func (t *memoryTx) WalletForUpdate(_ context.Context, dealerID string) (*wallet.Wallet, error) {
	t.lockEntity(t.repo.walletLocks, dealerID)

	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	w, ok := t.repo.wallets[dealerID]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (t *memoryTx) SaveWallet(_ context.Context, w *wallet.Wallet) error {
	t.repo.mu.Lock()
	current, ok := t.repo.wallets[w.DealerID]
	t.repo.mu.Unlock()
	if !ok {
		return database.ErrNotFound
	}
	if current.Version != w.Version {
		return fmt.Errorf("wallet %s version %d: %w", w.ID, w.Version, database.ErrConflict)
	}

	cp := *w
	t.stagedWallets[w.DealerID] = &cp
	return nil
}

func (t *memoryTx) AppendTransaction(_ context.Context, txn *ledger.Transaction) error {
	// Mirrors the unique constraint on payment_id: a duplicate external
	// payment fails the whole unit of work.
	if txn.PaymentID != "" {
		t.repo.mu.Lock()
		dup := t.repo.payments[txn.PaymentID]
		t.repo.mu.Unlock()
		if dup {
			return fmt.Errorf("transaction for payment %s: %w", txn.PaymentID, database.ErrAlreadyExists)
		}
	}

	cp := *txn
	t.stagedTxns = append(t.stagedTxns, &cp)
	return nil
}

func (t *memoryTx) PaymentProcessed(_ context.Context, paymentID string) (bool, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	return t.repo.payments[paymentID], nil
}

func (t *memoryTx) Package(ctx context.Context, id string) (*wallet.RechargePackage, error) {
	return t.repo.RechargePackage(ctx, id)
}
