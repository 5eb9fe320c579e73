package apiapp

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	redrepo "github.com/mkrivosheev/globetrek/backend/internal/repo/redis"
	authsvc "github.com/mkrivosheev/globetrek/backend/internal/services/auth"
	ratesvc "github.com/mkrivosheev/globetrek/backend/internal/services/rate"
)

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	jwtManager := authsvc.NewJWTManager("test-secret", time.Hour)
	mw := AuthMiddleware(jwtManager, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/entitlements/check", nil)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not be called without a token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareRejectsForeignToken(t *testing.T) {
	jwtManager := authsvc.NewJWTManager("test-secret", time.Hour)
	foreign := authsvc.NewJWTManager("other-secret", time.Hour)
	mw := AuthMiddleware(jwtManager, zap.NewNop())

	token, _, err := foreign.GenerateAccessToken(7, "user")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/entitlements/check", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not be called with a foreign token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareSetsIdentity(t *testing.T) {
	jwtManager := authsvc.NewJWTManager("test-secret", time.Hour)
	mw := AuthMiddleware(jwtManager, zap.NewNop())

	token, _, err := jwtManager.GenerateAccessToken(7, "admin")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/progress/reset", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity missing in context")
		}
		if identity.UserID != 7 || identity.Role != "admin" {
			t.Fatalf("unexpected identity: %+v", identity)
		}
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestWebhookRateLimitBlocksAboveBudget(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter := ratesvc.NewLimiter(redrepo.NewRateRepo(redrepo.NewClient(mr.Addr(), "", 0)), 1)
	mw := WebhookRateLimit(limiter, zap.NewNop())

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", nil)
	req.RemoteAddr = "198.51.100.7:4242"
	handler.ServeHTTP(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("first delivery: got %d want %d", first.Code, http.StatusOK)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second delivery: got %d want %d", second.Code, http.StatusTooManyRequests)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on blocked delivery")
	}
}

func TestWebhookRateLimitFailsOpenWhenStoreDown(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter := ratesvc.NewLimiter(redrepo.NewRateRepo(redrepo.NewClient(mr.Addr(), "", 0)), 1)
	mr.Close()
	mw := WebhookRateLimit(limiter, zap.NewNop())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", nil)
	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected fail-open delivery, got %d", rr.Code)
	}
}
