package entitlements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mkrivosheev/globetrek/backend/internal/domain/enums"
	pgrepo "github.com/mkrivosheev/globetrek/backend/internal/repo/postgres"
)

var (
	ErrValidation = errors.New("validation error")
	ErrUnknownKey = errors.New("unknown entitlement key")
)

type EntitlementStore interface {
	FindActive(ctx context.Context, userID int64, key string) (pgrepo.EntitlementRecord, error)
}

type PurchaseStore interface {
	FindByID(ctx context.Context, purchaseID int64) (pgrepo.PurchaseRecord, error)
}

type SecurityLog interface {
	Append(ctx context.Context, event pgrepo.SecurityEvent) error
}

// Service answers entitlement checks. The entitlement row alone is never
// sufficient: when it references a purchase, the purchase must still exist,
// belong to the same user, and be completed. A row with no purchase
// reference is an administrative grant and is trusted as-is.
type Service struct {
	entitlements EntitlementStore
	purchases    PurchaseStore
	securityLog  SecurityLog
}

type Dependencies struct {
	Entitlements EntitlementStore
	Purchases    PurchaseStore
	SecurityLog  SecurityLog
}

type CheckResult struct {
	Entitled bool
	Key      string
	Since    *time.Time
}

func NewService(deps Dependencies) *Service {
	return &Service{
		entitlements: deps.Entitlements,
		purchases:    deps.Purchases,
		securityLog:  deps.SecurityLog,
	}
}

func (s *Service) Check(ctx context.Context, userID int64, rawKey string) (CheckResult, error) {
	if userID <= 0 {
		return CheckResult{}, ErrValidation
	}
	if s.entitlements == nil || s.purchases == nil || s.securityLog == nil {
		return CheckResult{}, fmt.Errorf("entitlements dependencies are not configured")
	}

	key := enums.DefaultEntitlementKey
	if strings.TrimSpace(rawKey) != "" {
		parsed, ok := enums.ParseEntitlementKey(rawKey)
		if !ok {
			return CheckResult{}, ErrUnknownKey
		}
		key = parsed
	}

	record, err := s.entitlements.FindActive(ctx, userID, string(key))
	if err != nil {
		if errors.Is(err, pgrepo.ErrEntitlementNotFound) {
			// Most users simply have not purchased; not an error.
			return CheckResult{Entitled: false, Key: string(key)}, nil
		}
		return CheckResult{}, err
	}

	if record.PurchaseID != nil {
		reason, err := s.verifyProvenance(ctx, userID, *record.PurchaseID)
		if err != nil {
			return CheckResult{}, err
		}
		if reason != "" {
			if logErr := s.securityLog.Append(ctx, pgrepo.SecurityEvent{
				Type:   pgrepo.EventEntitlementPurchaseMismatch,
				UserID: userID,
				Details: map[string]any{
					"entitlement_key": string(key),
					"purchase_id":     *record.PurchaseID,
					"reason":          reason,
				},
			}); logErr != nil {
				return CheckResult{}, logErr
			}
			return CheckResult{Entitled: false, Key: string(key)}, nil
		}
	}

	since := record.CreatedAt
	return CheckResult{Entitled: true, Key: string(key), Since: &since}, nil
}

// verifyProvenance walks the grant back to its purchase; a non-empty reason
// means the tables have drifted and access must be denied.
func (s *Service) verifyProvenance(ctx context.Context, userID, purchaseID int64) (string, error) {
	purchase, err := s.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPurchaseNotFound) {
			return "purchase_missing", nil
		}
		return "", err
	}
	if purchase.UserID != userID {
		return "owner_mismatch", nil
	}
	if !strings.EqualFold(purchase.Status, pgrepo.PurchaseStatusCompleted) {
		return "status_not_completed", nil
	}
	return "", nil
}
