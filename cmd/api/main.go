package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/propertydeck/leadsync/config"
	"github.com/propertydeck/leadsync/pkg/api/handlers"
	"github.com/propertydeck/leadsync/pkg/importer"
	"github.com/propertydeck/leadsync/pkg/jobs"
	"github.com/propertydeck/leadsync/pkg/logger"
	"github.com/propertydeck/leadsync/pkg/metrics"
	custommiddleware "github.com/propertydeck/leadsync/pkg/middleware"
	"github.com/propertydeck/leadsync/pkg/permissions"
	"github.com/propertydeck/leadsync/pkg/recordstore"
	"github.com/propertydeck/leadsync/pkg/session"
)

// roleDefaults maps a role to its default grants. The upstream role
// management service owns these; this table mirrors its current policy.
func roleDefaults(role string) permissions.Defaults {
	switch role {
	case "manager":
		return permissions.Defaults{View: true, Edit: true, Delete: true}
	case "agent":
		return permissions.Defaults{View: true, Edit: true, Delete: false}
	case "viewer":
		return permissions.Defaults{View: true, Edit: false, Delete: false}
	}
	return permissions.Defaults{View: true, Edit: false, Delete: false}
}

func main() {
	// Load configuration
	cfg := config.Load()
	appLog := logger.New(cfg.LogLevel, cfg.LogFormat)
	appLog.Info("🔧 configuration loaded", "environment", cfg.APIEnvironment)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
		})
		if err != nil {
			appLog.Warn("⚠️  failed to initialize Sentry", "error", err)
		} else {
			appLog.Info("✅ Sentry initialized", "environment", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		appLog.Info("ℹ️  Sentry disabled (no DSN configured)")
	}

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New()

	// Remote record store client
	store := recordstore.NewClient(cfg.RecordStoreURL, cfg.RecordStoreToken, cfg.RecordStoreTimeout).
		WithObserver(prometheusMetrics.RecordStoreRequest)
	appLog.Info("✅ record store client ready", "url", cfg.RecordStoreURL)

	// Per-operator sessions and the services over them
	sessions := session.NewManager(store, appLog, cfg.SessionTTL, cfg.DebounceInterval, cfg.BoardPageSize, cfg.BoardHardCap, roleDefaults)
	importService := importer.NewService(store, appLog, cfg.ImportMaxBytes, cfg.ImportMaxRows, cfg.DefaultPhoneRegion)

	// Scheduled session sweeping
	cronManager := jobs.NewCronManager(sessions, prometheusMetrics, appLog)
	if err := cronManager.SetupJobs(); err != nil {
		log.Fatalf("❌ failed to set up cron jobs: %v", err)
	}
	cronManager.Start()
	defer cronManager.Stop()

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)

	// Global middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			appLog.Info("request", "method", c.Request().Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	e.Use(prometheusMetrics.Middleware())
	e.Use(middleware.CORSWithConfig(custommiddleware.CORSConfig(cfg.CORSAllowedOrigins)))
	e.Use(middleware.Gzip())
	e.Use(middleware.Secure())
	e.Use(globalRateLimiter.Middleware())

	// Health check endpoints (public)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "LeadSync API",
			"version":     "0.1.0",
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":   "healthy",
			"sessions": sessions.Active(),
		})
	})

	// Prometheus metrics endpoint (public)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes, identity asserted by the upstream proxy
	v1 := e.Group("/api/v1")
	v1.Use(custommiddleware.Identity())

	leadHandler := handlers.NewLeadHandler(sessions, store, importService, prometheusMetrics, appLog)
	leadHandler.Register(v1)

	// Start server
	go func() {
		addr := cfg.APIHost + ":" + cfg.APIPort
		appLog.Info("🚀 server starting", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		appLog.Error("shutdown error", "error", err)
	}
}
