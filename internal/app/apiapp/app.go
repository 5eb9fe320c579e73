package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mkrivosheev/globetrek/backend/internal/config"
	pgrepo "github.com/mkrivosheev/globetrek/backend/internal/repo/postgres"
	redrepo "github.com/mkrivosheev/globetrek/backend/internal/repo/redis"
	authsvc "github.com/mkrivosheev/globetrek/backend/internal/services/auth"
	entsvc "github.com/mkrivosheev/globetrek/backend/internal/services/entitlements"
	paymentsvc "github.com/mkrivosheev/globetrek/backend/internal/services/payments"
	progresssvc "github.com/mkrivosheev/globetrek/backend/internal/services/progress"
	ratesvc "github.com/mkrivosheev/globetrek/backend/internal/services/rate"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateRepo := redrepo.NewRateRepo(redisClient)
	purchaseRepo := pgrepo.NewPurchaseRepo(pool)
	entitlementRepo := pgrepo.NewEntitlementRepo(pool)
	profileRepo := pgrepo.NewProfileRepo(pool)
	securityLogRepo := pgrepo.NewSecurityLogRepo(pool)
	roleRepo := pgrepo.NewRoleRepo(pool)
	countryRepo := pgrepo.NewCountryRepo(pool)
	progressRepo := pgrepo.NewProgressRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Payments.WebhookRatePerMinute)

	if cfg.Payments.WebhookSecret == "" {
		log.Warn("webhook secret is empty, signature verification runs in trust-all mode")
	}
	paymentService := paymentsvc.NewService(paymentsvc.Dependencies{
		Purchases:    purchaseRepo,
		Entitlements: entitlementRepo,
		Profiles:     profileRepo,
		SecurityLog:  securityLogRepo,
	}, paymentsvc.Config{
		WebhookSecret:      cfg.Payments.WebhookSecret,
		SignatureTolerance: cfg.Payments.SignatureTolerance,
	})
	entitlementService := entsvc.NewService(entsvc.Dependencies{
		Entitlements: entitlementRepo,
		Purchases:    purchaseRepo,
		SecurityLog:  securityLogRepo,
	})
	progressService := progresssvc.NewService(progresssvc.Dependencies{
		Pool:      pool,
		Roles:     roleRepo,
		Profiles:  profileRepo,
		Countries: countryRepo,
		Progress:  progressRepo,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		PaymentService:     paymentService,
		EntitlementService: entitlementService,
		ProgressService:    progressService,
		JWTManager:         jwtManager,
		RateLimiter:        rateLimiter,
		Logger:             log,
		Config:             cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
