package sessions

import (
	"context"

	"github.com/futig/dashboard-backend/internal/integration/upstream"
)

// SessionSource is the upstream surface the usecase needs.
type SessionSource interface {
	UserSessions(ctx context.Context, userID string) ([]upstream.SessionRecord, error)
}
