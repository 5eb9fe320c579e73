package payments

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestVerifySignatureAcceptsSignedPayload(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"type":"checkout.session.completed"}`)

	header := SignPayload(payload, "whsec_test", now)
	if err := VerifySignature(payload, header, "whsec_test", 5*time.Minute, now); err != nil {
		t.Fatalf("expected signature to verify, got %v", err)
	}
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"type":"checkout.session.completed"}`)

	header := SignPayload(payload, "whsec_test", now)
	err := VerifySignature(payload, header, "whsec_other", 5*time.Minute, now)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"amount_total":500}`)

	header := SignPayload(payload, "whsec_test", now)
	err := VerifySignature([]byte(`{"amount_total":50000}`), header, "whsec_test", 5*time.Minute, now)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifySignatureRejectsStaleTimestamp(t *testing.T) {
	signedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := signedAt.Add(10 * time.Minute)
	payload := []byte(`{}`)

	header := SignPayload(payload, "whsec_test", signedAt)
	err := VerifySignature(payload, header, "whsec_test", 5*time.Minute, now)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifySignatureAcceptsRotatedSecretCandidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{}`)

	stale := SignPayload(payload, "whsec_old", now)
	fresh := SignPayload(payload, "whsec_new", now)
	header := stale + ",v1=" + strings.SplitN(fresh, "v1=", 2)[1]

	if err := VerifySignature(payload, header, "whsec_new", 5*time.Minute, now); err != nil {
		t.Fatalf("expected rotated candidate to verify, got %v", err)
	}
}

func TestVerifySignatureRejectsMissingHeader(t *testing.T) {
	err := VerifySignature([]byte(`{}`), "", "whsec_test", 5*time.Minute, time.Now())
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}
