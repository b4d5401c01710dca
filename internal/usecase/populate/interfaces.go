package populate

import (
	"context"

	"github.com/futig/dashboard-backend/internal/entity"
)

// Connector is the upstream surface the populate workflow drives.
// TestPopulate and SaveQuestions/RetryPopulate are a legacy dual path:
// the dry run and the commit use different upstream operations with
// different payload shapes.
type Connector interface {
	TestPopulate(ctx context.Context, sessionID, workflowID, userID string, questions map[string]string) (*entity.TestPopulateResult, error)
	SaveQuestions(ctx context.Context, workflowID string, questions []string) error
	RetryPopulate(ctx context.Context, sessionID, workflowID, userID string) error
	WorkflowStatuses(ctx context.Context, sessionID string) ([]entity.WorkflowStatusEntry, error)
}

// SessionRefresher performs the targeted re-fetch after a job
// completes: only the affected user's session set is reloaded, leaving
// all unrelated cached state intact.
type SessionRefresher interface {
	RefreshUserSessions(ctx context.Context, userID string) error
}
