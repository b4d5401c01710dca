package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/futig/dashboard-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const snapshotCacheKey = "dashboard-snapshot"

// Usecase assembles and caches the dashboard view model. A published
// snapshot is never written to again: ApplyUserPatch swaps in a patched
// copy and Refresh replaces it wholesale, so callers may read or
// marshal a returned snapshot without holding any lock.
type Usecase struct {
	source                MetricsSource
	mutator               UserMutator
	inactiveThresholdDays int
	logger                *zap.Logger

	mu       sync.RWMutex
	snapshot *entity.DashboardSnapshot
	cache    *gocache.Cache
}

func NewUsecase(
	source MetricsSource,
	mutator UserMutator,
	inactiveThresholdDays int,
	snapshotTTL time.Duration,
	logger *zap.Logger,
) *Usecase {
	return &Usecase{
		source:                source,
		mutator:               mutator,
		inactiveThresholdDays: inactiveThresholdDays,
		cache:                 gocache.New(snapshotTTL, 2*snapshotTTL),
		logger:                logger,
	}
}

// Snapshot returns the current dashboard view model, refreshing it
// from upstream when the cached copy has expired.
func (uc *Usecase) Snapshot(ctx context.Context) (*entity.DashboardSnapshot, error) {
	if _, fresh := uc.cache.Get(snapshotCacheKey); fresh {
		uc.mu.RLock()
		snap := uc.snapshot
		uc.mu.RUnlock()
		if snap != nil {
			return snap, nil
		}
	}

	return uc.Refresh(ctx)
}

// Users returns the user directory, grouped by recency or center when
// sortBy is set and flat otherwise. The directory is small and changes
// rarely, so it is fetched on demand rather than cached.
func (uc *Usecase) Users(ctx context.Context, sortBy string) ([]entity.UserAnalyticsDetail, error) {
	switch sortBy {
	case "":
		return uc.source.AllUsers(ctx)
	case "recent_session", "center_name":
		return uc.source.UsersWithCenters(ctx, sortBy)
	default:
		return nil, fmt.Errorf("%w: sort_by %q", entity.ErrInvalidParameter, sortBy)
	}
}

// Refresh fetches every metric feed in parallel and replaces the held
// snapshot wholesale.
func (uc *Usecase) Refresh(ctx context.Context) (*entity.DashboardSnapshot, error) {
	ctxzap.Debug(ctx, "refreshing dashboard snapshot")

	snap := &entity.DashboardSnapshot{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out, err := uc.source.UsersToday(gctx)
		if err != nil {
			return err
		}
		snap.UsersToday = *out
		return nil
	})
	g.Go(func() error {
		out, err := uc.source.LastUse(gctx)
		if err != nil {
			return err
		}
		snap.LastUse = out
		return nil
	})
	g.Go(func() error {
		out, err := uc.source.DAU(gctx)
		if err != nil {
			return err
		}
		snap.DAU = out
		return nil
	})
	g.Go(func() error {
		out, err := uc.source.WeeklyUsers(gctx)
		if err != nil {
			return err
		}
		snap.WeeklyUsers = out
		return nil
	})
	g.Go(func() error {
		out, err := uc.source.SessionsTodayByUser(gctx)
		if err != nil {
			return err
		}
		snap.SessionsTodayByUser = out
		return nil
	})
	g.Go(func() error {
		out, err := uc.source.SessionsToday(gctx)
		if err != nil {
			return err
		}
		snap.SessionsToday = out
		return nil
	})
	g.Go(func() error {
		out, err := uc.source.AllSessions(gctx)
		if err != nil {
			return err
		}
		snap.AllSessions = out
		return nil
	})
	g.Go(func() error {
		out, err := uc.source.GeneralMetrics(gctx)
		if err != nil {
			return err
		}
		snap.GeneralMetrics = out
		return nil
	})
	g.Go(func() error {
		out, err := uc.source.AllUsersAnalyticsByCenter(gctx, uc.inactiveThresholdDays)
		if err != nil {
			return err
		}
		snap.CenterAnalytics = *out
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("refresh dashboard snapshot: %w", err)
	}

	snap.FetchedAt = time.Now()
	snap.AtRisk = AtRiskUsers(snap.LastUse, snap.FetchedAt)

	uc.mu.Lock()
	uc.snapshot = snap
	uc.mu.Unlock()
	uc.cache.SetDefault(snapshotCacheKey, struct{}{})

	ctxzap.Info(ctx, "dashboard snapshot refreshed",
		zap.Int("centers", len(snap.CenterAnalytics.CentersData)),
		zap.Int("at_risk_users", len(snap.AtRisk)),
	)

	return snap, nil
}
