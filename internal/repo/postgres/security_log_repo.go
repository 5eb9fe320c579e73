package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Security log event types. Entries are append-only and read by operators
// out-of-band, never by request handling.
const (
	EventPurchaseCompleted           = "purchase_completed"
	EventDuplicateSessionOtherUser   = "duplicate_session_different_user"
	EventCustomerBoundToOtherUser    = "customer_id_bound_to_other_user"
	EventEntitlementPurchaseMismatch = "entitlement_purchase_mismatch"
)

type SecurityLogRepo struct {
	pool *pgxpool.Pool
}

type SecurityEvent struct {
	Type       string
	UserID     int64
	SessionID  string
	CustomerID string
	Details    map[string]any
}

func NewSecurityLogRepo(pool *pgxpool.Pool) *SecurityLogRepo {
	return &SecurityLogRepo{pool: pool}
}

func (r *SecurityLogRepo) Append(ctx context.Context, event SecurityEvent) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(event.Type) == "" || event.UserID <= 0 {
		return fmt.Errorf("invalid security event payload")
	}

	detailsJSON, err := marshalDetails(event.Details)
	if err != nil {
		return err
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO security_log (
	id,
	event_type,
	user_id,
	session_id,
	customer_id,
	details,
	created_at
) VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6::jsonb, NOW())
`,
		uuid.NewString(),
		strings.TrimSpace(event.Type),
		event.UserID,
		strings.TrimSpace(event.SessionID),
		strings.TrimSpace(event.CustomerID),
		detailsJSON,
	); err != nil {
		return fmt.Errorf("append security event: %w", err)
	}

	return nil
}

func marshalDetails(details map[string]any) (string, error) {
	if len(details) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("marshal security event details: %w", err)
	}
	return string(raw), nil
}
