package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrPurchaseNotFound = errors.New("purchase not found")
	ErrSessionConflict  = errors.New("provider session already recorded")
)

const PurchaseStatusCompleted = "completed"

type PurchaseRepo struct {
	pool *pgxpool.Pool
}

// PurchaseRecord is one completed checkout. Rows are append-only: nothing in
// the reconciliation path updates or deletes them.
type PurchaseRecord struct {
	ID              int64
	UserID          int64
	SessionID       string
	CustomerID      *string
	PaymentIntentID *string
	Tier            string
	AmountTotal     int64
	Currency        string
	Status          string
	CreatedAt       time.Time
}

type CreatePurchase struct {
	UserID          int64
	SessionID       string
	CustomerID      string
	PaymentIntentID string
	Tier            string
	AmountTotal     int64
	Currency        string
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

// CreateCompleted inserts the purchase row with status completed. A unique
// violation on the provider session id maps to ErrSessionConflict so the
// caller can fold a lost insert race into the already-processed path.
func (r *PurchaseRepo) CreateCompleted(ctx context.Context, in CreatePurchase) (PurchaseRecord, error) {
	if r.pool == nil {
		return PurchaseRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if in.UserID <= 0 || strings.TrimSpace(in.SessionID) == "" || strings.TrimSpace(in.Tier) == "" {
		return PurchaseRecord{}, fmt.Errorf("invalid purchase create payload")
	}

	record, err := scanPurchase(r.pool.QueryRow(ctx, `
INSERT INTO purchases (
	user_id,
	stripe_session_id,
	stripe_customer_id,
	stripe_payment_intent_id,
	tier,
	amount_total,
	currency,
	status,
	created_at
) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, 'completed', NOW())
RETURNING id, user_id, stripe_session_id, stripe_customer_id, stripe_payment_intent_id, tier, amount_total, currency, status, created_at
`,
		in.UserID,
		strings.TrimSpace(in.SessionID),
		strings.TrimSpace(in.CustomerID),
		strings.TrimSpace(in.PaymentIntentID),
		strings.ToLower(strings.TrimSpace(in.Tier)),
		in.AmountTotal,
		strings.ToLower(strings.TrimSpace(in.Currency)),
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return PurchaseRecord{}, ErrSessionConflict
		}
		return PurchaseRecord{}, fmt.Errorf("create completed purchase: %w", err)
	}

	return record, nil
}

func (r *PurchaseRepo) FindByID(ctx context.Context, purchaseID int64) (PurchaseRecord, error) {
	if r.pool == nil {
		return PurchaseRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if purchaseID <= 0 {
		return PurchaseRecord{}, fmt.Errorf("invalid purchase id")
	}

	record, err := scanPurchase(r.pool.QueryRow(ctx, `
SELECT id, user_id, stripe_session_id, stripe_customer_id, stripe_payment_intent_id, tier, amount_total, currency, status, created_at
FROM purchases
WHERE id = $1
LIMIT 1
`, purchaseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseRecord{}, ErrPurchaseNotFound
		}
		return PurchaseRecord{}, fmt.Errorf("find purchase by id: %w", err)
	}

	return record, nil
}

func (r *PurchaseRepo) FindBySessionID(ctx context.Context, sessionID string) (PurchaseRecord, error) {
	if r.pool == nil {
		return PurchaseRecord{}, fmt.Errorf("postgres pool is nil")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return PurchaseRecord{}, fmt.Errorf("session id is required")
	}

	record, err := scanPurchase(r.pool.QueryRow(ctx, `
SELECT id, user_id, stripe_session_id, stripe_customer_id, stripe_payment_intent_id, tier, amount_total, currency, status, created_at
FROM purchases
WHERE stripe_session_id = $1
LIMIT 1
`, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseRecord{}, ErrPurchaseNotFound
		}
		return PurchaseRecord{}, fmt.Errorf("find purchase by session id: %w", err)
	}

	return record, nil
}

// FindByCustomerIDOtherUser returns any purchase binding the provider customer
// id to a user other than the given one.
func (r *PurchaseRepo) FindByCustomerIDOtherUser(ctx context.Context, customerID string, userID int64) (PurchaseRecord, error) {
	if r.pool == nil {
		return PurchaseRecord{}, fmt.Errorf("postgres pool is nil")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" || userID <= 0 {
		return PurchaseRecord{}, fmt.Errorf("invalid customer lookup payload")
	}

	record, err := scanPurchase(r.pool.QueryRow(ctx, `
SELECT id, user_id, stripe_session_id, stripe_customer_id, stripe_payment_intent_id, tier, amount_total, currency, status, created_at
FROM purchases
WHERE stripe_customer_id = $1
  AND user_id <> $2
LIMIT 1
`, customerID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseRecord{}, ErrPurchaseNotFound
		}
		return PurchaseRecord{}, fmt.Errorf("find purchase by customer id: %w", err)
	}

	return record, nil
}

func scanPurchase(row pgx.Row) (PurchaseRecord, error) {
	var record PurchaseRecord
	if err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.SessionID,
		&record.CustomerID,
		&record.PaymentIntentID,
		&record.Tier,
		&record.AmountTotal,
		&record.Currency,
		&record.Status,
		&record.CreatedAt,
	); err != nil {
		return PurchaseRecord{}, err
	}
	return record, nil
}
