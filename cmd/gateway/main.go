package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/riandyrn/otelchi"

	httpAdapter "github.com/Odiabackend099/voxanne-console/internal/adapters/primary/http"
	mw "github.com/Odiabackend099/voxanne-console/internal/adapters/primary/http/middleware"
	"github.com/Odiabackend099/voxanne-console/internal/adapters/primary/websocket"
	"github.com/Odiabackend099/voxanne-console/internal/adapters/secondary/backend"
	"github.com/Odiabackend099/voxanne-console/internal/auth"
	"github.com/Odiabackend099/voxanne-console/internal/config"
	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
	"github.com/Odiabackend099/voxanne-console/internal/core/ports"
	"github.com/Odiabackend099/voxanne-console/internal/core/services"
	"github.com/Odiabackend099/voxanne-console/internal/infrastructure/logging"
	"github.com/Odiabackend099/voxanne-console/internal/infrastructure/telemetry"
	"github.com/Odiabackend099/voxanne-console/internal/realtime"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Initialize Telemetry
	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		Exporter:       cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		logging.Fatal(logger, "failed to initialize telemetry", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// 4. Initialize Security & Backend Components
	verifier, err := auth.NewVerifier(auth.Config{
		Secret:  cfg.JWT.Secret,
		JWKSURL: cfg.JWT.JWKSURL,
		Issuer:  cfg.JWT.Issuer,
	}, logger)
	if err != nil {
		logging.Fatal(logger, "failed to initialize token verifier", err)
	}
	defer verifier.Close()

	backendClient := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout, logger)

	// 5. Real-time Components: upstream bus feeding the relay hub
	hub := websocket.NewHub(logger)
	go hub.Run()

	bus, err := realtime.New(realtime.Config{
		BackendURL: cfg.Backend.URL,
		TrackingID: cfg.Realtime.TrackingID,
		Policy: realtime.RetryPolicy{
			BaseDelay:  cfg.Realtime.ReconnectBaseDelay,
			Multiplier: 2,
			Ceiling:    cfg.Realtime.ReconnectCeiling,
		},
	}, realtime.WithLogger(logger))
	if err != nil {
		logging.Fatal(logger, "failed to initialize event bus", err)
	}

	// Every upstream event is fanned out to connected dashboards.
	bus.Subscribe(domain.KindAny, func(ev domain.StreamEvent) {
		_ = hub.Broadcast(ev)
	})
	go func() {
		if err := bus.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("event bus stopped", "error", err)
		}
	}()

	// 6. Dependency Injection (Wiring the Hexagon)
	clock := clockwork.NewRealClock()

	errorHandler := httpAdapter.NewErrorHandler(logger)

	leadService := services.NewLeadService(
		backendClient,
		cfg.Leads.DedupWindow,
		cfg.Leads.DefaultPhoneRegion,
		clock,
		logger,
	)

	// Guards carry per-check state; each request gets a fresh one.
	guardFactory := mw.GuardFactory(func(nav ports.Navigator) ports.OrgGuard {
		return services.NewOrgAccessGuard(backendClient, nav, clock, logger)
	})

	// Handlers (Primary Adapters)
	leadHandler := httpAdapter.NewLeadHandler(leadService, errorHandler, logger)
	oauthHandler := httpAdapter.NewOAuthHandler(backendClient, logger)
	orgHandler := httpAdapter.NewOrgHandler(backendClient, errorHandler, logger)
	callsHandler := httpAdapter.NewCallsHandler(backendClient, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, verifier, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(backendClient, bus, cfg.App.Version)

	// 7. Rate Limiters
	var generalRateLimiter, leadRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		leadRateLimiter = mw.NewRateLimiter(
			mw.LeadRateLimiterConfig(cfg.RateLimit.LeadRPS, cfg.RateLimit.LeadBurst))
	}

	// 8. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(otelchi.Middleware(cfg.App.Name, otelchi.WithChiRoutes(r)))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	// Health check endpoints (outside /api for standard probe paths)
	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Public lead intake with stricter rate limiting
		r.Group(func(r chi.Router) {
			if leadRateLimiter != nil {
				r.Use(leadRateLimiter.Middleware)
			}
			r.Post("/leads", leadHandler.HandleSubmit)
		})

		// OAuth callback (the provider redirects the browser here)
		r.Get("/oauth/callback", oauthHandler.HandleCallback)

		// WebSocket route (Authentication is handled inside the handler)
		r.Get("/ws/live-calls", wsHandler.ServeHTTP)

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(verifier))
			r.Get("/orgs/validate/{orgID}", orgHandler.HandleValidate)

			r.Group(func(r chi.Router) {
				r.Use(mw.OrgAccess(guardFactory, logger))
				r.Get("/calls/dashboard", callsHandler.HandleDashboard)
			})
		})
	})

	// 9. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal(logger, "server error", err)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Fatal(logger, "server shutdown error", err)
	}

	logger.Info("server shutdown complete")
}
