package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cartloom/gmo-payment-service/internal/adapters/database"
	"github.com/cartloom/gmo-payment-service/internal/adapters/gmo"
	"github.com/cartloom/gmo-payment-service/internal/adapters/postgres"
	"github.com/cartloom/gmo-payment-service/internal/config"
	paymenthandler "github.com/cartloom/gmo-payment-service/internal/handlers/payment"
	vaulthandler "github.com/cartloom/gmo-payment-service/internal/handlers/vault"
	"github.com/cartloom/gmo-payment-service/internal/logging"
	paymentservice "github.com/cartloom/gmo-payment-service/internal/services/payment"
	vaultservice "github.com/cartloom/gmo-payment-service/internal/services/vault"
	pkghttp "github.com/cartloom/gmo-payment-service/pkg/http"
	"github.com/cartloom/gmo-payment-service/pkg/middleware"
	"github.com/cartloom/gmo-payment-service/pkg/observability"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Gateway credentials
	secretStore, err := newSecretStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create secret store: %w", err)
	}
	defer func() { _ = secretStore.Close() }()

	if err := resolveGatewaySecrets(ctx, cfg, secretStore); err != nil {
		return err
	}

	// Database
	dbCfg := database.DefaultPostgreSQLConfig(cfg.Database.ConnectionString())
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns
	db, err := database.NewPostgreSQLAdapter(ctx, dbCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	loggerAdapter := logging.NewZapLogger(logger)

	// Gateway client on a transport tuned for the single gateway host
	timeout := time.Duration(cfg.Gateway.Timeout) * time.Second
	httpClient := pkghttp.NewHTTPClient(pkghttp.GMOClientConfig(), timeout)
	gatewayClient := gmo.NewClient(gmo.Credentials{
		SiteID:   cfg.Gateway.SiteID,
		SitePass: cfg.Gateway.SitePass,
		ShopID:   cfg.Gateway.ShopID,
		ShopPass: cfg.Gateway.ShopPass,
	}, cfg.Gateway.BaseURL, httpClient, loggerAdapter)

	// Services
	vaultRepo := postgres.NewCardVaultRepository(db.Pool(), loggerAdapter)
	vaultService := vaultservice.NewService(gatewayClient, vaultRepo, loggerAdapter)
	paymentService := paymentservice.NewService(gatewayClient, vaultService, paymentservice.Config{
		OrderIDPrefix: cfg.Gateway.OrderIDPrefix,
	}, loggerAdapter)

	// HTTP API
	router := mux.NewRouter()
	rateLimiter := middleware.NewRateLimiter(50, 100)
	defer rateLimiter.Shutdown()
	router.Use(observability.HTTPMiddleware, rateLimiter.Middleware)

	paymenthandler.NewHandler(paymentService, loggerAdapter).RegisterRoutes(router)
	vaulthandler.NewHandler(vaultService, loggerAdapter).RegisterRoutes(router)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	// Metrics and health on a separate port
	metricsServer := observability.StartMetricsServer(
		fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		map[string]observability.HealthCheck{
			"database": db.HealthCheck,
		},
	)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", server.Addr),
			zap.Int("metrics_port", cfg.Server.MetricsPort),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown failed", zap.Error(err))
	}
	if err := observability.ShutdownMetricsServer(metricsServer); err != nil {
		logger.Warn("Metrics server shutdown failed", zap.Error(err))
	}

	return nil
}

func initLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
