// Package main is the entry point for the shopfront BFF server.
// It wires all dependencies together and starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/harborline/shopfront/internal/access"
	"github.com/harborline/shopfront/internal/cart"
	"github.com/harborline/shopfront/internal/commerce"
	"github.com/harborline/shopfront/internal/config"
	"github.com/harborline/shopfront/internal/listview"
	"github.com/harborline/shopfront/internal/notify"
	"github.com/harborline/shopfront/internal/observability"
	"github.com/harborline/shopfront/internal/openapi"
	"github.com/harborline/shopfront/internal/schema"
	"github.com/harborline/shopfront/internal/transport"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "shopfront-bff", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// Commerce API schema index. Everything the list views serve derives
	// from this one document.
	oaIndex := openapi.NewIndex()
	if err := oaIndex.Load(cfg.Commerce.SpecFile); err != nil {
		logger.Error("commerce API spec load failed", zap.Error(err))
		return 1
	}

	policy, err := access.NewStaticPolicy(cfg.Access.PolicyFile)
	if err != nil {
		logger.Error("access policy load failed", zap.Error(err))
		return 1
	}

	notifier := notify.NewRegistry(cfg.Notifications.ActiveTTL, metrics.NotificationsSuppressed)
	client := commerce.NewClient(cfg.Commerce, oaIndex, metrics)
	projector := schema.NewProjector(oaIndex, cfg.Schema)

	listView := listview.NewProvider(projector, client, policy, notifier, cfg.Schema, metrics, logger)
	cartService := cart.NewService(client, notifier, metrics, logger)

	jwks := transport.NewJWKSClient(cfg.Identity.JWKSURL, cfg.Identity.JWKSCacheTTL, logger)

	router := transport.NewRouter(transport.Dependencies{
		Config:             cfg,
		Logger:             logger,
		Authenticate:       transport.JWTAuthenticator(cfg.Identity, jwks),
		CapabilityResolver: policy,
		ListView:           listView,
		Cart:               cartService,
		Notifier:           notifier,
		Metrics:            metrics,
		Readiness: observability.ReadinessChecks{
			SchemaLoaded: func() bool { return len(oaIndex.ResourceNames()) > 0 },
			PolicyLoaded: policy.Loaded,
		},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int("resources", len(oaIndex.ResourceNames())),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new connections and drain in-flight requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}
