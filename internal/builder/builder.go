package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/futig/dashboard-backend/internal/api"
	"github.com/futig/dashboard-backend/internal/api/dashboard"
	"github.com/futig/dashboard-backend/internal/auth"
	"github.com/futig/dashboard-backend/internal/config"
	"github.com/futig/dashboard-backend/internal/integration/upstream"
	"github.com/futig/dashboard-backend/internal/pkg/email"
	"github.com/futig/dashboard-backend/internal/refresh"
	"github.com/futig/dashboard-backend/internal/usecase/metrics"
	"github.com/futig/dashboard-backend/internal/usecase/populate"
	"github.com/futig/dashboard-backend/internal/usecase/reports"
	"github.com/futig/dashboard-backend/internal/usecase/sessions"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

func Build() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	// Token store backs every upstream call
	tokens := auth.NewStore(cfg.AuthCfg.TokenFile)

	// Upstream connector
	upstreamConn := upstream.NewConnector(cfg.UpstreamCfg, tokens, logger)
	logger.Info("Upstream connector initialized", zap.String("base_url", cfg.UpstreamCfg.Url))

	// Service login when credentials are configured and no valid token
	// is stored yet
	if cfg.AuthCfg.ServiceEmail != "" && !tokens.Authenticated() {
		ctx := ctxzap.ToContext(context.Background(), logger)
		if _, err := upstreamConn.Login(ctx, cfg.AuthCfg.ServiceEmail, cfg.AuthCfg.ServicePassword, cfg.AuthCfg.DefaultTokenTTL); err != nil {
			// Not fatal. The dashboard stays up and surfaces auth
			// errors until an operator signs in.
			logger.Warn("service login failed", zap.Error(err))
		}
	}

	// Initialize use cases
	metricsUC := metrics.NewUsecase(
		upstreamConn,
		upstreamConn,
		cfg.InactiveThresholdDays,
		cfg.CacheCfg.SnapshotTTL,
		logger,
	)

	sessionsUC := sessions.NewUsecase(upstreamConn, cfg.CacheCfg.SessionsTTL, logger)

	populateManager := populate.NewManager(
		upstreamConn,
		sessionsUC,
		cfg.PopulateCfg.PollInterval,
		cfg.PopulateCfg.MaxPolls,
		cfg.PopulateCfg.SettleDelay,
		logger,
	)

	reportsUC := reports.NewUsecase(metricsUC, sessionsUC, logger)
	logger.Info("Use cases initialized")

	// Outreach email sender
	emailSvc := email.NewService(cfg.EmailCfg, logger)
	if !emailSvc.Enabled() {
		logger.Info("Outreach email disabled, no SendGrid key configured")
	}

	// Realtime refresh: push channel with polling fallback
	refresher := refresh.NewRefresher(
		cfg.RefreshCfg,
		refresh.NewWebSocketTransport(),
		func(ctx context.Context) {
			ctx = ctxzap.ToContext(ctx, logger)
			if _, err := metricsUC.Refresh(ctx); err != nil {
				logger.Warn("background snapshot refresh failed", zap.Error(err))
			}
		},
		logger,
	)

	// Setup API handlers
	dashboardHandler := dashboard.NewHandler(
		metricsUC,
		sessionsUC,
		populateManager,
		reportsUC,
		emailSvc,
		upstreamConn,
		cfg.AuthCfg.DefaultTokenTTL,
	)
	logger.Info("API handlers initialized")

	// Setup router
	router := api.SetupRouter(dashboardHandler, logger)
	logger.Info("HTTP router configured")

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server:    server,
		refresher: refresher,
		logger:    logger,
	}, nil
}
