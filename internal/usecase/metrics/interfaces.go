package metrics

import (
	"context"

	"github.com/futig/dashboard-backend/internal/entity"
)

// MetricsSource is the upstream surface the usecase reads from.
type MetricsSource interface {
	UsersToday(ctx context.Context) (*entity.UsersToday, error)
	LastUse(ctx context.Context) ([]entity.LastUseEntry, error)
	DAU(ctx context.Context) ([]entity.DAUPoint, error)
	WeeklyUsers(ctx context.Context) ([]entity.WeeklyPoint, error)
	SessionsTodayByUser(ctx context.Context) ([]entity.UserSessionsToday, error)
	SessionsToday(ctx context.Context) ([]entity.SessionEvent, error)
	AllSessions(ctx context.Context) ([]entity.SessionEvent, error)
	GeneralMetrics(ctx context.Context) (*entity.GeneralMetrics, error)
	AllUsersAnalyticsByCenter(ctx context.Context, inactiveThresholdDays int) (*entity.CenterAnalytics, error)
	AllUsers(ctx context.Context) ([]entity.UserAnalyticsDetail, error)
	UsersWithCenters(ctx context.Context, sortBy string) ([]entity.UserAnalyticsDetail, error)
}

// UserMutator is the upstream surface for single-user mutations.
type UserMutator interface {
	UpdateIgnoreStatus(ctx context.Context, userID string, ignore bool) error
	UpdateNotes(ctx context.Context, userID, notes string) error
	UpdateExtensionVersion(ctx context.Context, userID, version string) error
}
