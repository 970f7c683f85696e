// Package settlement orchestrates the transactional core of the
// marketplace: awarding a lead to a dealer while debiting the dealer's
// wallet, and crediting wallets from verified gateway payments. Both
// operations are atomic units of work and safe to retry.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"tyremarket/internal/common/events"
	"tyremarket/internal/lead"
	"tyremarket/internal/ledger"
	"tyremarket/internal/wallet"
)

// ErrSignatureInvalid is returned when gateway payment verification fails.
var ErrSignatureInvalid = errors.New("payment signature verification failed")

// ErrInvalidArgument is returned for malformed settlement input.
var ErrInvalidArgument = errors.New("invalid argument")

// Gateway is the payment gateway collaborator. The orchestrator treats
// verification as an opaque boolean oracle.
type Gateway interface {
	CreateOrder(ctx context.Context, amountPaise int64) (orderID string, err error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// Service is the settlement orchestrator
type Service struct {
	repo      Repo
	gateway   Gateway
	publisher events.Publisher
	logger    *slog.Logger
}

// NewService creates a new settlement service
func NewService(repo Repo, gateway Gateway, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		logger:    logger,
	}
}

// Settle awards a lead to a dealer and debits the dealer's wallet by cost,
// as one atomic unit of work:
//
//  1. lock the lead row,
//  2. return the current view unchanged if this dealer already holds the
//     award (retry no-op),
//  3. fail with lead.ErrLeadUnavailable if another dealer holds it or the
//     lead is closed,
//  4. lock the wallet row (always after the lead lock),
//  5. deduct, award, persist both, append exactly one DEBIT ledger entry.
//
// Any failure rolls the whole unit of work back; there is never a debit
// without an award or an award without a ledger entry.
func (s *Service) Settle(ctx context.Context, leadID, dealerID string, cost int) (lead.View, error) {
	if leadID == "" || dealerID == "" {
		return lead.View{}, fmt.Errorf("%w: lead and dealer ids are required", ErrInvalidArgument)
	}
	if cost <= 0 {
		return lead.View{}, fmt.Errorf("%w: cost must be positive", ErrInvalidArgument)
	}

	var (
		view      lead.View
		breakdown wallet.DeductionBreakdown
		txnID     string
		replayed  bool
	)

	err := s.repo.InTx(ctx, func(tx Tx) error {
		l, err := tx.LeadForUpdate(ctx, leadID)
		if err != nil {
			return err
		}

		// A retry after a timeout lands here: same dealer, already
		// awarded. Success, nothing else to do.
		if l.AwardedTo(dealerID) {
			view = l.ViewFor(dealerID)
			replayed = true
			return nil
		}

		// Unavailable means gone: held by another dealer or closed. An
		// unverified lead falls through to the award guard instead, which
		// reports the state-machine violation.
		if l.Status == lead.StatusAwarded || l.Status == lead.StatusClosed {
			return fmt.Errorf("lead %s: %w", leadID, lead.ErrLeadUnavailable)
		}

		w, err := tx.WalletForUpdate(ctx, dealerID)
		if err != nil {
			return err
		}

		breakdown, err = w.Deduct(cost)
		if err != nil {
			return err
		}

		if err := l.Award(dealerID); err != nil {
			return err
		}

		if err := tx.SaveWallet(ctx, w); err != nil {
			return err
		}
		if err := tx.SaveLead(ctx, l); err != nil {
			return err
		}

		txnID = ulid.Make().String()
		txn, err := ledger.New(
			txnID, w.ID, dealerID, ledger.DirectionDebit,
			breakdown.Purchased, breakdown.Bonus,
			fmt.Sprintf("Lead won: %s", l.VehicleModel),
			"",
		)
		if err != nil {
			return err
		}
		if err := tx.AppendTransaction(ctx, txn); err != nil {
			return err
		}

		view = l.ViewFor(dealerID)
		return nil
	})
	if err != nil {
		return lead.View{}, err
	}

	if replayed {
		return view, nil
	}

	s.logger.Info("lead settled",
		"lead_id", leadID,
		"dealer_id", dealerID,
		"cost", cost,
		"purchased_drawn", breakdown.Purchased,
		"bonus_drawn", breakdown.Bonus,
	)

	s.publish(ctx, events.SubjectLeads, events.TypeLeadAwarded, "lead", leadID, events.LeadAwardedData{
		LeadID:         leadID,
		DealerID:       dealerID,
		Cost:           cost,
		PurchasedDrawn: breakdown.Purchased,
		BonusDrawn:     breakdown.Bonus,
		TransactionID:  txnID,
	})

	return view, nil
}

// PaymentOrder describes a gateway order awaiting customer payment.
type PaymentOrder struct {
	OrderID     string `json:"order_id"`
	AmountPaise int64  `json:"amount_paise"`
	Currency    string `json:"currency"`
	PackageName string `json:"package_name"`
}

// InitiateRecharge creates a gateway order for a recharge package.
func (s *Service) InitiateRecharge(ctx context.Context, dealerID, packageID string) (*PaymentOrder, error) {
	if dealerID == "" || packageID == "" {
		return nil, fmt.Errorf("%w: dealer and package ids are required", ErrInvalidArgument)
	}

	pkg, err := s.repo.RechargePackage(ctx, packageID)
	if err != nil {
		return nil, err
	}

	orderID, err := s.gateway.CreateOrder(ctx, pkg.PricePaise)
	if err != nil {
		return nil, fmt.Errorf("creating gateway order: %w", err)
	}

	s.logger.Info("recharge initiated",
		"dealer_id", dealerID,
		"package_id", packageID,
		"order_id", orderID,
		"amount_paise", pkg.PricePaise,
	)

	return &PaymentOrder{
		OrderID:     orderID,
		AmountPaise: pkg.PricePaise,
		Currency:    "INR",
		PackageName: pkg.Name,
	}, nil
}

// Verification carries the gateway's payment confirmation.
type Verification struct {
	PackageID string
	OrderID   string
	PaymentID string
	Signature string
}

// Recharge turns a verified gateway payment into wallet credits. The
// signature is checked before any lock is taken; the credit, the wallet
// save and the CREDIT ledger entry then run as one atomic unit. A payment
// id seen before short-circuits to the current wallet state, so a caller
// retrying after a timeout can never double credit.
func (s *Service) Recharge(ctx context.Context, dealerID string, v Verification) (*wallet.Wallet, error) {
	if dealerID == "" || v.PackageID == "" || v.PaymentID == "" {
		return nil, fmt.Errorf("%w: dealer, package and payment ids are required", ErrInvalidArgument)
	}

	if !s.gateway.VerifySignature(v.OrderID, v.PaymentID, v.Signature) {
		return nil, fmt.Errorf("payment %s: %w", v.PaymentID, ErrSignatureInvalid)
	}

	var (
		result   *wallet.Wallet
		pkg      *wallet.RechargePackage
		txnID    string
		replayed bool
	)

	err := s.repo.InTx(ctx, func(tx Tx) error {
		w, err := tx.WalletForUpdate(ctx, dealerID)
		if err != nil {
			return err
		}

		// Checked under the wallet lock: a concurrent duplicate submit
		// serializes here and observes the winner's ledger row.
		processed, err := tx.PaymentProcessed(ctx, v.PaymentID)
		if err != nil {
			return err
		}
		if processed {
			result = w
			replayed = true
			return nil
		}

		pkg, err = tx.Package(ctx, v.PackageID)
		if err != nil {
			return err
		}

		if err := w.Credit(pkg.BaseCredits, pkg.BonusCredits); err != nil {
			return err
		}
		if err := tx.SaveWallet(ctx, w); err != nil {
			return err
		}

		txnID = ulid.Make().String()
		txn, err := ledger.New(
			txnID, w.ID, dealerID, ledger.DirectionCredit,
			pkg.BaseCredits, pkg.BonusCredits,
			fmt.Sprintf("Package purchase: %s", pkg.Name),
			v.PaymentID,
		)
		if err != nil {
			return err
		}
		if err := tx.AppendTransaction(ctx, txn); err != nil {
			return err
		}

		result = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	if replayed {
		return result, nil
	}

	s.logger.Info("wallet recharged",
		"dealer_id", dealerID,
		"package_id", v.PackageID,
		"payment_id", v.PaymentID,
		"purchased", pkg.BaseCredits,
		"bonus", pkg.BonusCredits,
	)

	s.publish(ctx, events.SubjectWallets, events.TypeWalletCredited, "wallet", result.ID, events.WalletCreditedData{
		WalletID:      result.ID,
		DealerID:      dealerID,
		Purchased:     pkg.BaseCredits,
		Bonus:         pkg.BonusCredits,
		PaymentID:     v.PaymentID,
		TransactionID: txnID,
	})

	return result, nil
}

func (s *Service) publish(ctx context.Context, subject, eventType, aggregateType, aggregateID string, data interface{}) {
	event, err := events.New(eventType, aggregateType, aggregateID, data)
	if err != nil {
		s.logger.Error("building event", "type", eventType, "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		s.logger.Error("publishing event", "type", eventType, "error", err)
	}
}
