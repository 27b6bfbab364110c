package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/mozz-online/mozz-backend/api/controllers"
	"github.com/mozz-online/mozz-backend/api/routes"
	"github.com/mozz-online/mozz-backend/internal/auth"
	"github.com/mozz-online/mozz-backend/internal/invitations"
	"github.com/mozz-online/mozz-backend/internal/memberships"
	"github.com/mozz-online/mozz-backend/internal/pizzas"
	"github.com/mozz-online/mozz-backend/internal/stores"
	"github.com/mozz-online/mozz-backend/internal/toppings"
	"github.com/mozz-online/mozz-backend/internal/uniqueness"
	"github.com/mozz-online/mozz-backend/internal/users"
	"github.com/mozz-online/mozz-backend/pkg/auth/session"
	"github.com/mozz-online/mozz-backend/pkg/config"
	"github.com/mozz-online/mozz-backend/pkg/db"
	"github.com/mozz-online/mozz-backend/pkg/instance"
	"github.com/mozz-online/mozz-backend/pkg/logger"
	"github.com/mozz-online/mozz-backend/pkg/metrics"
	"github.com/mozz-online/mozz-backend/pkg/migrate"
	"github.com/mozz-online/mozz-backend/pkg/outbox"
	"github.com/mozz-online/mozz-backend/pkg/redis"
	"github.com/mozz-online/mozz-backend/pkg/security"
)

const (
	serviceName     = "api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	bootCtx := context.Background()

	if cfg.Sentry.Enabled() {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      sentryEnvironment(cfg),
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			return err
		}
		defer sentry.Flush(2 * time.Second)
	}

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	memberRepo := memberships.NewRepository(conn)
	storeRepo := stores.NewRepository(conn)
	toppingRepo := toppings.NewRepository(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	validator, err := uniqueness.NewValidator(uniqueness.NewRepository(conn))
	if err != nil {
		return err
	}

	domainMetrics := metrics.NewDomainMetrics(prometheus.DefaultRegisterer)
	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:        userRepo,
		MembershipsRepo: memberRepo,
		SessionManager:  sessionManager,
		Hasher:          security.NewHasher(cfg.Password),
		JWTConfig:       cfg.JWT,
		Logger:          logg,
	})
	if err != nil {
		return err
	}
	unsubscribe := authSvc.Subscribe(func(evt auth.Event) {
		domainMetrics.AuthEvent(evt.Type.String())
	})
	defer unsubscribe()

	storeSvc, err := stores.NewService(storeRepo, memberRepo, dbClient, logg)
	if err != nil {
		return err
	}
	memberSvc, err := memberships.NewService(memberRepo, dbClient, outboxSvc, logg)
	if err != nil {
		return err
	}
	toppingSvc, err := toppings.NewService(toppingRepo, memberRepo, validator, dbClient, logg)
	if err != nil {
		return err
	}
	pizzaSvc, err := pizzas.NewService(pizzas.ServiceParams{
		Repo:      pizzas.NewRepository(conn),
		Toppings:  toppingRepo,
		Roles:     memberRepo,
		Validator: validator,
		Tx:        dbClient,
		Logger:    logg,
	})
	if err != nil {
		return err
	}
	inviteSvc, err := invitations.NewService(invitations.ServiceParams{
		Memberships: memberRepo,
		Stores:      storeRepo,
		Identity:    authSvc,
		Tx:          dbClient,
		Outbox:      outboxSvc,
		LinkBaseURL: cfg.App.LinkBaseURL(),
		Recorder:    domainMetrics,
		Logger:      logg,
	})
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Sessions:    sessionManager,
		RateLimiter: redisClient,
		Idempotency: redisClient,
		Roles:       memberRepo,
		Auth:        authSvc,
		Invitations: inviteSvc,
		Stores:      storeSvc,
		Members:     memberSvc,
		Toppings:    toppingSvc,
		Pizzas:      pizzaSvc,
		ReadyChecks: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		HTTPMetrics: httpMetrics,
		Gatherer:    prometheus.DefaultGatherer,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(bootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     server.Addr,
		"instance": instance.GetID("local"),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(gctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func sentryEnvironment(cfg *config.Config) string {
	if cfg.Sentry.Environment != "" {
		return cfg.Sentry.Environment
	}
	return cfg.App.Env
}
