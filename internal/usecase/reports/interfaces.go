package reports

import (
	"context"

	"github.com/futig/dashboard-backend/internal/entity"
)

// SnapshotProvider exposes the dashboard view model, used to resolve a
// center name to its user list.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*entity.DashboardSnapshot, error)
}

// SessionProvider loads one user's normalized session history.
type SessionProvider interface {
	UserSessions(ctx context.Context, userID string) ([]entity.SessionDetail, error)
}
