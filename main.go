package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"event-storefront/config"
	"event-storefront/diagnostics"
	"event-storefront/handlers"
	"event-storefront/logging"
	"event-storefront/middleware"
	"event-storefront/services/payment"
	"event-storefront/services/pricing"
	"event-storefront/store"
	"event-storefront/storefront"
	"event-storefront/worker"
)

func main() {
	logger, err := logging.New(envOr("LOG_LEVEL", "info"))
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
	logger.Info("server exited properly")
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load(logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	profile, err := store.ProfileByName(cfg.Billing.Profile)
	if err != nil {
		return err
	}
	unit, err := cfg.Currency()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		reporter    diagnostics.Reporter = diagnostics.NewLogReporter(logger)
		rateLimiter *middleware.RateLimiter
		redisPing   handlers.Pinger
		failureLog  handlers.FailureLog
	)
	if cfg.Redis.URL != "" {
		redisReporter, err := diagnostics.NewRedisReporter(ctx, cfg.Redis.URL, diagnostics.DefaultListName, logger)
		if err != nil {
			return err
		}
		defer redisReporter.Close()
		reporter = diagnostics.Multi{diagnostics.NewLogReporter(logger), redisReporter}
		redisPing = func(ctx context.Context) error { return redisReporter.Client().Ping(ctx).Err() }
		failureLog = redisReporter

		rateLimiter, err = middleware.NewRateLimiter(ctx, cfg.Redis.URL, logger)
		if err != nil {
			return err
		}
		defer rateLimiter.Close()
		logger.Info("connected to Redis")
	}

	transport := pricing.NewTransport()
	manager := storefront.NewManager(storefront.Options{
		Profile:     profile,
		Window:      cfg.Throttle.Window,
		IdleTimeout: cfg.Session.IdleTimeout,
		Billing:     payment.Billing{MerchantName: cfg.Billing.MerchantName, Currency: unit},
		Signer:      payment.NewHandleSigner(cfg.Session.HandleSecret),
		Reporter:    reporter,
		NewService: func() (pricing.Service, error) {
			return pricing.NewClient(cfg.Pricing.BaseURL, transport, cfg.Pricing.Timeout, logger)
		},
		Logger: logger,
	})

	cookies := middleware.NewSessionCookies(middleware.CookieOptions{
		Secret: cfg.Session.Secret,
		Domain: cfg.Session.Domain,
		MaxAge: cfg.Session.MaxAge,
		Secure: cfg.Session.Secure,
	})

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", handlers.NewHealthHandler(manager, redisPing).Health).Methods(http.MethodGet)
	handlers.NewStorefrontHandler(manager, cookies, logger).RegisterRoutes(api)
	if failureLog != nil && cfg.Admin.Token != "" {
		handlers.NewDiagnosticsHandler(failureLog, logger).RegisterRoutes(api, cfg.Admin.Token)
	}

	chain := chi.Chain(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.AccessLog(logger, cfg.SlowRequestThreshold()),
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.SecurityHeaders,
	)
	if rateLimiter != nil {
		chain = append(chain, rateLimiter.Middleware)
	}

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:        chain.Handler(router),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   cfg.Pricing.Timeout + 15*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("profile", profile.Name))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return worker.NewSweeper(manager, cfg.Session.SweepEvery, logger).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, gracefully shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		transport.CloseIdleConnections()
		return nil
	})

	return g.Wait()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
