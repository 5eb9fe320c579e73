package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEntitlementNotFound = errors.New("entitlement not found")

type EntitlementRepo struct {
	pool *pgxpool.Pool
}

type EntitlementRecord struct {
	UserID     int64
	Key        string
	Active     bool
	PurchaseID *int64
	CreatedAt  time.Time
}

func NewEntitlementRepo(pool *pgxpool.Pool) *EntitlementRepo {
	return &EntitlementRepo{pool: pool}
}

// Grant upserts an active entitlement bound to the given purchase. The
// conflict target on (user_id, entitlement_key) makes retried commits
// converge on one row; created_at of the original grant is preserved.
func (r *EntitlementRepo) Grant(ctx context.Context, userID int64, key string, purchaseID int64, now time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if userID <= 0 || key == "" || purchaseID <= 0 {
		return fmt.Errorf("invalid entitlement grant payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO entitlements (
	user_id,
	entitlement_key,
	active,
	purchase_id,
	created_at
) VALUES ($1, $2, TRUE, $3, $4)
ON CONFLICT (user_id, entitlement_key) DO UPDATE SET
	active = TRUE,
	purchase_id = EXCLUDED.purchase_id
`, userID, key, purchaseID, now.UTC()); err != nil {
		return fmt.Errorf("grant entitlement: %w", err)
	}

	return nil
}

func (r *EntitlementRepo) FindActive(ctx context.Context, userID int64, key string) (EntitlementRecord, error) {
	if r.pool == nil {
		return EntitlementRecord{}, fmt.Errorf("postgres pool is nil")
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if userID <= 0 || key == "" {
		return EntitlementRecord{}, fmt.Errorf("invalid entitlement lookup payload")
	}

	var record EntitlementRecord
	err := r.pool.QueryRow(ctx, `
SELECT user_id, entitlement_key, active, purchase_id, created_at
FROM entitlements
WHERE user_id = $1
  AND entitlement_key = $2
  AND active = TRUE
LIMIT 1
`, userID, key).Scan(
		&record.UserID,
		&record.Key,
		&record.Active,
		&record.PurchaseID,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EntitlementRecord{}, ErrEntitlementNotFound
		}
		return EntitlementRecord{}, fmt.Errorf("find active entitlement: %w", err)
	}

	return record, nil
}
