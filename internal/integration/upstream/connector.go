package upstream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/futig/dashboard-backend/internal/auth"
	"github.com/futig/dashboard-backend/internal/config"
	"github.com/futig/dashboard-backend/internal/entity"
	pkghttp "github.com/futig/dashboard-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const dashboardPrefix = "/dashboard"

// Connector is the typed client for the upstream clinical REST API.
// Read endpoints are retried with exponential backoff; 401/403 are
// never retried and clear the stored token.
type Connector struct {
	config    config.UpstreamConfig
	connector *pkghttp.Connector
	tokens    *auth.Store
	retryOpts []retry.Option
	logger    *zap.Logger
}

func NewConnector(
	cfg config.UpstreamConfig,
	tokens *auth.Store,
	logger *zap.Logger,
) *Connector {
	connCfg := &pkghttp.ConnectorConfig{
		Logger:  logger,
		BaseURL: cfg.Url,
	}

	conn := pkghttp.NewConnector(
		connCfg,
		pkghttp.WithRequestTimeout(cfg.RequestTimeout),
		pkghttp.WithConnClientTimeout(cfg.ConnTimeout),
		pkghttp.WithClientKeepAlive(cfg.KeepAlive),
		pkghttp.WithIdleConnTimeout(cfg.IdleConnTimeout),
		pkghttp.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		pkghttp.WithRequestLogging(),
		pkghttp.WithTokenProvider(func() string {
			token, _ := tokens.Token()
			return token
		}),
	)

	return &Connector{
		config:    cfg,
		connector: conn,
		tokens:    tokens,
		retryOpts: cfg.Retry.ToRetryOptions(),
		logger:    logger,
	}
}

// getWithRetry performs a GET with the configured backoff. Auth errors
// short-circuit the retry loop: exactly one request is made, the stored
// token is cleared, and the error is returned as-is.
func (c *Connector) getWithRetry(ctx context.Context, endpoint string, out any, opts ...pkghttp.RequestOpt) error {
	options := append([]retry.Option{
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			return !pkghttp.IsAuthError(err)
		}),
	}, c.retryOpts...)

	err := retry.Do(func() error {
		return c.connector.DoRequest(ctx, http.MethodGet, endpoint, nil, out, opts...)
	}, options...)

	if pkghttp.IsAuthError(err) {
		ctxzap.Warn(ctx, "upstream rejected credentials, clearing stored token",
			zap.String("endpoint", endpoint))
		c.tokens.Clear()
	}

	return err
}

// post performs a mutation. Mutations are never retried.
func (c *Connector) post(ctx context.Context, endpoint string, in, out any) error {
	err := c.connector.DoRequest(ctx, http.MethodPost, endpoint, in, out)
	if pkghttp.IsAuthError(err) {
		ctxzap.Warn(ctx, "upstream rejected credentials, clearing stored token",
			zap.String("endpoint", endpoint))
		c.tokens.Clear()
	}
	return err
}

// Login authenticates against the upstream service and persists the
// returned bearer token with its expiry.
func (c *Connector) Login(ctx context.Context, email, password string, defaultTTL time.Duration) (*entity.LoginResponse, error) {
	ctxzap.Info(ctx, "logging in to upstream service")

	var resp entity.LoginResponse
	req := entity.LoginRequest{Email: email, Password: password}
	if err := c.connector.DoRequest(ctx, http.MethodPost, "/login", req, &resp); err != nil {
		return nil, err
	}

	ttl := defaultTTL
	if resp.ExpiresIn > 0 {
		ttl = time.Duration(resp.ExpiresIn) * time.Second
	}

	if err := c.tokens.SetToken(resp.AccessToken, time.Now().Add(ttl)); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	ctxzap.Info(ctx, "login successful", zap.Duration("token_ttl", ttl))

	return &resp, nil
}

// Health checks the upstream dashboard health endpoint.
func (c *Connector) Health(ctx context.Context) error {
	return c.getWithRetry(ctx, dashboardPrefix+"/health", nil)
}

// UsersToday fetches today's headline metric.
func (c *Connector) UsersToday(ctx context.Context) (*entity.UsersToday, error) {
	var out entity.UsersToday
	if err := c.getWithRetry(ctx, dashboardPrefix+"/users-today", &out); err != nil {
		return nil, fmt.Errorf("fetch users today: %w", err)
	}
	return &out, nil
}

// LastUse fetches the inactive-user feed (server-filtered to >36h).
func (c *Connector) LastUse(ctx context.Context) ([]entity.LastUseEntry, error) {
	var out []entity.LastUseEntry
	if err := c.getWithRetry(ctx, dashboardPrefix+"/last-use", &out); err != nil {
		return nil, fmt.Errorf("fetch last use: %w", err)
	}
	return out, nil
}

// DAU fetches the daily-active-users series.
func (c *Connector) DAU(ctx context.Context) ([]entity.DAUPoint, error) {
	var out []entity.DAUPoint
	if err := c.getWithRetry(ctx, dashboardPrefix+"/dau", &out); err != nil {
		return nil, fmt.Errorf("fetch dau: %w", err)
	}
	return out, nil
}

// WeeklyUsers fetches the weekly-users series.
func (c *Connector) WeeklyUsers(ctx context.Context) ([]entity.WeeklyPoint, error) {
	var out []entity.WeeklyPoint
	if err := c.getWithRetry(ctx, dashboardPrefix+"/weekly-users", &out); err != nil {
		return nil, fmt.Errorf("fetch weekly users: %w", err)
	}
	return out, nil
}

// SessionsTodayByUser fetches today's per-user session aggregates.
func (c *Connector) SessionsTodayByUser(ctx context.Context) ([]entity.UserSessionsToday, error) {
	var out []entity.UserSessionsToday
	if err := c.getWithRetry(ctx, dashboardPrefix+"/sessions-today-by-user", &out); err != nil {
		return nil, fmt.Errorf("fetch sessions today by user: %w", err)
	}
	return out, nil
}

// SessionsToday fetches today's raw session feed.
func (c *Connector) SessionsToday(ctx context.Context) ([]entity.SessionEvent, error) {
	var out []entity.SessionEvent
	if err := c.getWithRetry(ctx, dashboardPrefix+"/sessions-today", &out); err != nil {
		return nil, fmt.Errorf("fetch sessions today: %w", err)
	}
	return out, nil
}

// AllSessions fetches the full session feed.
func (c *Connector) AllSessions(ctx context.Context) ([]entity.SessionEvent, error) {
	var out []entity.SessionEvent
	if err := c.getWithRetry(ctx, dashboardPrefix+"/all-sessions", &out); err != nil {
		return nil, fmt.Errorf("fetch all sessions: %w", err)
	}
	return out, nil
}

// GeneralMetrics fetches the engagement ratios computed upstream.
func (c *Connector) GeneralMetrics(ctx context.Context) (*entity.GeneralMetrics, error) {
	var out entity.GeneralMetrics
	if err := c.getWithRetry(ctx, dashboardPrefix+"/general-metrics", &out); err != nil {
		return nil, fmt.Errorf("fetch general metrics: %w", err)
	}
	return &out, nil
}

// AllUsersAnalyticsByCenter fetches the per-center analytics payload.
func (c *Connector) AllUsersAnalyticsByCenter(ctx context.Context, inactiveThresholdDays int) (*entity.CenterAnalytics, error) {
	var out entity.CenterAnalytics
	err := c.getWithRetry(ctx, dashboardPrefix+"/all-users-analytics-by-center", &out,
		pkghttp.WithQuery("inactive_threshold_days", fmt.Sprintf("%d", inactiveThresholdDays)))
	if err != nil {
		return nil, fmt.Errorf("fetch analytics by center: %w", err)
	}
	return &out, nil
}

// UsersWithCenters fetches the users+center summary. sortBy is either
// "recent_session" or "center_name".
func (c *Connector) UsersWithCenters(ctx context.Context, sortBy string) ([]entity.UserAnalyticsDetail, error) {
	var out []entity.UserAnalyticsDetail
	err := c.getWithRetry(ctx, dashboardPrefix+"/users-with-centers", &out,
		pkghttp.WithQuery("sort_by", sortBy))
	if err != nil {
		return nil, fmt.Errorf("fetch users with centers: %w", err)
	}
	return out, nil
}

// AllUsers fetches the flat user directory without center grouping.
func (c *Connector) AllUsers(ctx context.Context) ([]entity.UserAnalyticsDetail, error) {
	var out []entity.UserAnalyticsDetail
	if err := c.getWithRetry(ctx, dashboardPrefix+"/all-users", &out); err != nil {
		return nil, fmt.Errorf("fetch all users: %w", err)
	}
	return out, nil
}
