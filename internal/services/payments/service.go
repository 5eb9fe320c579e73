package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mkrivosheev/globetrek/backend/internal/domain/enums"
	pgrepo "github.com/mkrivosheev/globetrek/backend/internal/repo/postgres"
)

// EventCheckoutCompleted is the only provider event type this engine acts
// on; every other type is accepted and ignored by design.
const EventCheckoutCompleted = "checkout.session.completed"

var (
	ErrValidation       = errors.New("validation error")
	ErrSignatureInvalid = errors.New("invalid webhook signature")
	ErrMissingUserID    = errors.New("event metadata has no user id")
	ErrUnsupportedTier  = errors.New("unsupported product tier")
	ErrSessionReplay    = errors.New("session already claimed by another user")
	ErrCustomerReuse    = errors.New("customer id bound to another user")
)

type PurchaseStore interface {
	CreateCompleted(ctx context.Context, in pgrepo.CreatePurchase) (pgrepo.PurchaseRecord, error)
	FindBySessionID(ctx context.Context, sessionID string) (pgrepo.PurchaseRecord, error)
	FindByCustomerIDOtherUser(ctx context.Context, customerID string, userID int64) (pgrepo.PurchaseRecord, error)
}

type EntitlementStore interface {
	Grant(ctx context.Context, userID int64, key string, purchaseID int64, now time.Time) error
}

type ProfileStore interface {
	MarkPaidUnlocked(ctx context.Context, userID int64, tier string) error
}

type SecurityLog interface {
	Append(ctx context.Context, event pgrepo.SecurityEvent) error
}

type Config struct {
	// WebhookSecret empty means signature verification is disabled; the app
	// logs the degraded mode loudly at startup.
	WebhookSecret      string
	SignatureTolerance time.Duration
}

type Service struct {
	purchases    PurchaseStore
	entitlements EntitlementStore
	profiles     ProfileStore
	securityLog  SecurityLog
	cfg          Config
	now          func() time.Time
}

type Dependencies struct {
	Purchases    PurchaseStore
	Entitlements EntitlementStore
	Profiles     ProfileStore
	SecurityLog  SecurityLog
}

type EventResult struct {
	Received   bool
	Ignored    bool
	Duplicate  bool
	PurchaseID int64
	UserID     int64
	Tier       string
}

type eventEnvelope struct {
	Type string `json:"type"`
	Data struct {
		Object checkoutSession `json:"object"`
	} `json:"data"`
}

type checkoutSession struct {
	ID            string            `json:"id"`
	Customer      string            `json:"customer"`
	PaymentIntent string            `json:"payment_intent"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

func NewService(deps Dependencies, cfg Config) *Service {
	return &Service{
		purchases:    deps.Purchases,
		entitlements: deps.Entitlements,
		profiles:     deps.Profiles,
		securityLog:  deps.SecurityLog,
		cfg:          cfg,
		now:          time.Now,
	}
}

// HandleEvent runs the reconciliation algorithm for one delivery. It is safe
// under arbitrary redelivery: a replayed event for an already-recorded
// session owned by the same user re-applies the entitlement upserts (which
// repairs a crash between the purchase insert and the grant) and reports a
// benign duplicate.
func (s *Service) HandleEvent(ctx context.Context, body []byte, sigHeader string) (EventResult, error) {
	if s.purchases == nil || s.entitlements == nil || s.profiles == nil || s.securityLog == nil {
		return EventResult{}, fmt.Errorf("payments dependencies are not configured")
	}

	if s.cfg.WebhookSecret != "" {
		if err := VerifySignature(body, sigHeader, s.cfg.WebhookSecret, s.cfg.SignatureTolerance, s.now()); err != nil {
			return EventResult{}, err
		}
	}

	var env eventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return EventResult{}, ErrValidation
	}
	if env.Type != EventCheckoutCompleted {
		return EventResult{Received: true, Ignored: true}, nil
	}

	sess := env.Data.Object
	sessionID := strings.TrimSpace(sess.ID)
	if sessionID == "" {
		return EventResult{}, ErrValidation
	}

	userID, err := userIDFromMetadata(sess.Metadata)
	if err != nil {
		return EventResult{}, err
	}
	tier, ok := enums.ParseProductTier(sess.Metadata["tier"])
	if !ok {
		return EventResult{}, ErrUnsupportedTier
	}

	existing, err := s.purchases.FindBySessionID(ctx, sessionID)
	switch {
	case err == nil:
		return s.resolveExistingSession(ctx, existing, userID)
	case !errors.Is(err, pgrepo.ErrPurchaseNotFound):
		return EventResult{}, err
	}

	customerID := strings.TrimSpace(sess.Customer)
	if customerID != "" {
		other, lookupErr := s.purchases.FindByCustomerIDOtherUser(ctx, customerID, userID)
		switch {
		case lookupErr == nil:
			if logErr := s.securityLog.Append(ctx, pgrepo.SecurityEvent{
				Type:       pgrepo.EventCustomerBoundToOtherUser,
				UserID:     userID,
				SessionID:  sessionID,
				CustomerID: customerID,
				Details: map[string]any{
					"owner_user_id":     other.UserID,
					"attempted_user_id": userID,
				},
			}); logErr != nil {
				return EventResult{}, logErr
			}
			return EventResult{}, ErrCustomerReuse
		case !errors.Is(lookupErr, pgrepo.ErrPurchaseNotFound):
			return EventResult{}, lookupErr
		}
	}

	record, err := s.purchases.CreateCompleted(ctx, pgrepo.CreatePurchase{
		UserID:          userID,
		SessionID:       sessionID,
		CustomerID:      customerID,
		PaymentIntentID: strings.TrimSpace(sess.PaymentIntent),
		Tier:            string(tier),
		AmountTotal:     sess.AmountTotal,
		Currency:        sess.Currency,
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrSessionConflict) {
			// Lost the insert race; the unique constraint is the arbiter.
			winner, lookupErr := s.purchases.FindBySessionID(ctx, sessionID)
			if lookupErr != nil {
				return EventResult{}, lookupErr
			}
			return s.resolveExistingSession(ctx, winner, userID)
		}
		return EventResult{}, err
	}

	if err := s.applyGrants(ctx, record); err != nil {
		return EventResult{}, err
	}

	_ = s.securityLog.Append(ctx, pgrepo.SecurityEvent{
		Type:       pgrepo.EventPurchaseCompleted,
		UserID:     record.UserID,
		SessionID:  record.SessionID,
		CustomerID: customerID,
		Details: map[string]any{
			"purchase_id":  record.ID,
			"tier":         record.Tier,
			"amount_total": record.AmountTotal,
			"currency":     record.Currency,
		},
	})

	return EventResult{
		Received:   true,
		PurchaseID: record.ID,
		UserID:     record.UserID,
		Tier:       record.Tier,
	}, nil
}

// resolveExistingSession handles a session id we already recorded: the same
// user is a benign redelivery (no new rows, no new log entries), a different
// user is a replay attack that must be logged and rejected.
func (s *Service) resolveExistingSession(ctx context.Context, existing pgrepo.PurchaseRecord, userID int64) (EventResult, error) {
	if existing.UserID != userID {
		if logErr := s.securityLog.Append(ctx, pgrepo.SecurityEvent{
			Type:      pgrepo.EventDuplicateSessionOtherUser,
			UserID:    userID,
			SessionID: existing.SessionID,
			Details: map[string]any{
				"owner_user_id":     existing.UserID,
				"attempted_user_id": userID,
			},
		}); logErr != nil {
			return EventResult{}, logErr
		}
		return EventResult{}, ErrSessionReplay
	}

	if err := s.applyGrants(ctx, existing); err != nil {
		return EventResult{}, err
	}

	return EventResult{
		Received:   true,
		Duplicate:  true,
		PurchaseID: existing.ID,
		UserID:     existing.UserID,
		Tier:       existing.Tier,
	}, nil
}

// applyGrants upserts every entitlement the stored tier carries and flips
// the profile paid flag. All writes are idempotent, so re-running after a
// partial failure converges.
func (s *Service) applyGrants(ctx context.Context, record pgrepo.PurchaseRecord) error {
	tier, ok := enums.ParseProductTier(record.Tier)
	if !ok {
		return ErrUnsupportedTier
	}

	now := s.now().UTC()
	for _, key := range tier.EntitlementKeys() {
		if err := s.entitlements.Grant(ctx, record.UserID, string(key), record.ID, now); err != nil {
			return err
		}
	}

	return s.profiles.MarkPaidUnlocked(ctx, record.UserID, string(tier))
}

func userIDFromMetadata(metadata map[string]string) (int64, error) {
	raw := strings.TrimSpace(metadata["user_id"])
	if raw == "" {
		return 0, ErrMissingUserID
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrMissingUserID
	}
	return userID, nil
}
