package lead

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tyremarket/internal/common/database"
)

// Store provides lead data access
type Store struct {
	db *database.DB
}

// NewStore creates a new lead store
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

const leadColumns = `
	id, customer_id, customer_mobile, vehicle_type, tyre_type, tyre_brand,
	vehicle_model, location_area, location_pincode, status,
	COALESCE(awarded_dealer_id, ''), created_at, verified_at, awarded_at
`

// Create inserts a new lead.
func (s *Store) Create(ctx context.Context, l *Lead) error {
	query := `
		INSERT INTO leads (
			id, customer_id, customer_mobile, vehicle_type, tyre_type,
			tyre_brand, vehicle_model, location_area, location_pincode,
			status, awarded_dealer_id, created_at, verified_at, awarded_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13, $14
		)
	`

	_, err := s.db.Exec(ctx, query,
		l.ID, l.CustomerID, l.CustomerMobile, l.VehicleType, l.TyreType,
		l.TyreBrand, l.VehicleModel, l.LocationArea, l.LocationPincode,
		l.Status, l.AwardedDealerID, l.CreatedAt, l.VerifiedAt, l.AwardedAt,
	)
	if err != nil {
		return fmt.Errorf("creating lead: %w", err)
	}
	return nil
}

// Get retrieves a lead by id.
func (s *Store) Get(ctx context.Context, id string) (*Lead, error) {
	row := s.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

// GetForUpdate retrieves a lead by id holding an exclusive row lock until
// the surrounding transaction commits or rolls back. Every settlement path
// takes this lock before touching any wallet.
func (s *Store) GetForUpdate(ctx context.Context, q database.Querier, id string) (*Lead, error) {
	row := q.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, id)
	return scanLead(row)
}

// Save persists the mutable lifecycle fields of a lead. Callers must hold
// the row lock for l, taken via GetForUpdate in the same transaction;
// writing a lead read without the lock could overwrite a concurrently
// committed award.
func (s *Store) Save(ctx context.Context, q database.Querier, l *Lead) error {
	tag, err := q.Exec(ctx, `
		UPDATE leads
		SET status = $2, awarded_dealer_id = NULLIF($3, ''), verified_at = $4, awarded_at = $5
		WHERE id = $1`,
		l.ID, l.Status, l.AwardedDealerID, l.VerifiedAt, l.AwardedAt,
	)
	if err != nil {
		return fmt.Errorf("saving lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

// Mutate applies fn to the current committed lead under its row lock and
// persists the result, all in one transaction. Lifecycle writes outside
// settlement go through here so they can never clobber an award committed
// between a read and a save.
func (s *Store) Mutate(ctx context.Context, id string, fn func(*Lead) error) (*Lead, error) {
	var l *Lead
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		l, err = s.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(l); err != nil {
			return err
		}
		return s.Save(ctx, tx, l)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// SubmitOffer inserts an offer and moves the lead to OFFER_RECEIVED as one
// transaction. The lead is re-checked under its row lock, so an award that
// landed since the caller last saw the lead rejects the offer instead of
// being overwritten.
func (s *Store) SubmitOffer(ctx context.Context, o *Offer) (*Lead, error) {
	var l *Lead
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		l, err = s.GetForUpdate(ctx, tx, o.LeadID)
		if err != nil {
			return err
		}
		if !l.AcceptingOffers() {
			return fmt.Errorf("lead %s: %w", o.LeadID, ErrLeadUnavailable)
		}
		if err := s.CreateOffer(ctx, tx, o); err != nil {
			return err
		}
		if err := l.MarkOfferReceived(); err != nil {
			return err
		}
		return s.Save(ctx, tx, l)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Filter narrows and orders lead listings.
type Filter struct {
	Status  *Status
	DateAsc bool
	Limit   int
	Offset  int
}

// List returns leads matching the filter plus the total match count.
func (s *Store) List(ctx context.Context, f Filter) ([]*Lead, int64, error) {
	countQuery := `SELECT COUNT(*) FROM leads`
	query := `SELECT ` + leadColumns + ` FROM leads`

	var args []interface{}
	if f.Status != nil {
		countQuery += ` WHERE status = $1`
		query += ` WHERE status = $1`
		args = append(args, *f.Status)
	}

	var total int64
	if err := s.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting leads: %w", err)
	}

	order := ` ORDER BY created_at DESC`
	if f.DateAsc {
		order = ` ORDER BY created_at ASC`
	}
	query += order + fmt.Sprintf(` LIMIT %d OFFSET %d`, f.Limit, f.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing leads: %w", err)
	}
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		l, err := scanLeadRows(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, l)
	}
	return leads, total, rows.Err()
}

// ListByCustomer returns a customer's leads, newest first.
func (s *Store) ListByCustomer(ctx context.Context, customerID string) ([]*Lead, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE customer_id = $1 ORDER BY created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing customer leads: %w", err)
	}
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		l, err := scanLeadRows(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// ListAwardedToDealer returns the leads a dealer has won.
func (s *Store) ListAwardedToDealer(ctx context.Context, dealerID string, limit, offset int) ([]*Lead, int64, error) {
	var total int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM leads WHERE awarded_dealer_id = $1`, dealerID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting awarded leads: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+leadColumns+` FROM leads
		 WHERE awarded_dealer_id = $1
		 ORDER BY awarded_at DESC LIMIT $2 OFFSET $3`,
		dealerID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing awarded leads: %w", err)
	}
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		l, err := scanLeadRows(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, l)
	}
	return leads, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLead(row rowScanner) (*Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.CustomerID, &l.CustomerMobile, &l.VehicleType, &l.TyreType,
		&l.TyreBrand, &l.VehicleModel, &l.LocationArea, &l.LocationPincode,
		&l.Status, &l.AwardedDealerID, &l.CreatedAt, &l.VerifiedAt, &l.AwardedAt,
	)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("scanning lead: %w", err)
	}
	return &l, nil
}

func scanLeadRows(rows rowScanner) (*Lead, error) {
	return scanLead(rows)
}

// CreateOffer inserts a dealer's offer. The (lead_id, dealer_id) unique
// constraint turns a second offer into ErrDuplicateOffer.
func (s *Store) CreateOffer(ctx context.Context, q database.Querier, o *Offer) error {
	_, err := q.Exec(ctx, `
		INSERT INTO lead_offers (
			id, lead_id, dealer_id, price, tyre_condition, stock_available,
			image_urls, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.LeadID, o.DealerID, o.Price, o.TyreCondition, o.StockAvailable,
		o.ImageURLs, o.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateOffer
		}
		return fmt.Errorf("creating offer: %w", err)
	}
	return nil
}

// ListOffers returns the offers submitted against a lead, newest first.
func (s *Store) ListOffers(ctx context.Context, leadID string) ([]*Offer, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, lead_id, dealer_id, price, COALESCE(tyre_condition, ''),
			   stock_available, image_urls, created_at
		FROM lead_offers
		WHERE lead_id = $1
		ORDER BY created_at DESC`,
		leadID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing offers: %w", err)
	}
	defer rows.Close()

	var offers []*Offer
	for rows.Next() {
		var o Offer
		if err := rows.Scan(
			&o.ID, &o.LeadID, &o.DealerID, &o.Price, &o.TyreCondition,
			&o.StockAvailable, &o.ImageURLs, &o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning offer: %w", err)
		}
		offers = append(offers, &o)
	}
	return offers, rows.Err()
}
