package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mkrivosheev/globetrek/backend/internal/config"
	authsvc "github.com/mkrivosheev/globetrek/backend/internal/services/auth"
	entsvc "github.com/mkrivosheev/globetrek/backend/internal/services/entitlements"
	paymentsvc "github.com/mkrivosheev/globetrek/backend/internal/services/payments"
	progresssvc "github.com/mkrivosheev/globetrek/backend/internal/services/progress"
	ratesvc "github.com/mkrivosheev/globetrek/backend/internal/services/rate"
	"github.com/mkrivosheev/globetrek/backend/internal/transport/http/handlers"
)

type Dependencies struct {
	PaymentService     *paymentsvc.Service
	EntitlementService *entsvc.Service
	ProgressService    *progresssvc.Service
	JWTManager         *authsvc.JWTManager
	RateLimiter        *ratesvc.Limiter
	Logger             *zap.Logger
	Config             config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	webhookHandler := handlers.NewWebhookHandler(deps.PaymentService)
	entitlementHandler := handlers.NewEntitlementHandler(deps.EntitlementService)
	adminResetHandler := handlers.NewAdminResetHandler(deps.ProgressService)
	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)
	webhookRateMW := WebhookRateLimit(deps.RateLimiter, deps.Logger)

	r.Get("/healthz", healthHandler.Get)
	r.With(webhookRateMW).Post("/billing/webhook", webhookHandler.Handle)
	r.With(authMW).Post("/entitlements/check", entitlementHandler.Check)
	r.With(authMW).Post("/admin/progress/reset", adminResetHandler.Reset)

	r.Route("/v1", func(r chi.Router) {
		r.With(webhookRateMW).Post("/billing/webhook", webhookHandler.Handle)
		r.With(authMW).Post("/entitlements/check", entitlementHandler.Check)
		r.With(authMW).Post("/admin/progress/reset", adminResetHandler.Reset)
	})
}
