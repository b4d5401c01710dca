package sessions

import (
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/futig/dashboard-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Usecase owns per-user session history: fetch, normalization, dedup
// and a TTL cache that targeted refreshes can invalidate without
// touching unrelated users' cached histories.
type Usecase struct {
	source SessionSource
	cache  *gocache.Cache
	logger *zap.Logger
}

func NewUsecase(source SessionSource, ttl time.Duration, logger *zap.Logger) *Usecase {
	return &Usecase{
		source: source,
		cache:  gocache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// UserSessions returns the normalized, deduplicated session history
// for one user, newest first.
func (uc *Usecase) UserSessions(ctx context.Context, userID string) ([]entity.SessionDetail, error) {
	if cached, ok := uc.cache.Get(userID); ok {
		return cached.([]entity.SessionDetail), nil
	}

	records, err := uc.source.UserSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user sessions: %w", err)
	}

	details := make([]entity.SessionDetail, 0, len(records))
	for _, record := range records {
		detail, err := Normalize(record)
		if err != nil {
			// A single malformed record should not hide the rest of
			// the history.
			ctxzap.Warn(ctx, "skipping malformed session record",
				zap.String("session_id", record.SessionID),
				zap.String("workflow_id", record.WorkflowID),
				zap.Error(err),
			)
			continue
		}
		details = append(details, detail)
	}

	details = Dedup(details)

	sort.SliceStable(details, func(i, j int) bool {
		return details[i].CreatedAt.After(details[j].CreatedAt)
	})

	uc.cache.SetDefault(userID, details)

	return details, nil
}

// Invalidate drops the cached history for one user. Used for the
// targeted re-fetch after a populate job completes, so unrelated
// cached state survives.
func (uc *Usecase) Invalidate(userID string) {
	uc.cache.Delete(userID)
}

// RefreshUserSessions drops and reloads the cached history for one
// user in a single step.
func (uc *Usecase) RefreshUserSessions(ctx context.Context, userID string) error {
	uc.Invalidate(userID)
	_, err := uc.UserSessions(ctx, userID)
	return err
}

// FindSession locates one session-workflow record in a user's history.
func (uc *Usecase) FindSession(ctx context.Context, userID string, key entity.SessionKey) (*entity.SessionDetail, error) {
	details, err := uc.UserSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range details {
		if details[i].Key() == key {
			return &details[i], nil
		}
	}

	return nil, entity.ErrSessionNotFound
}

// ExportCSV renders a user's session history as CSV, matching the
// dashboard's export format.
func (uc *Usecase) ExportCSV(details []entity.SessionDetail) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write([]string{"Date", "Patient", "Type", "Status", "Workflow", "Session ID"}); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	for _, d := range details {
		row := []string{
			d.CreatedAt.Format("2006-01-02"),
			d.PatientName,
			d.SessionType,
			d.SessionStatus,
			d.WorkflowName,
			d.SessionID,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}

	return sb.String(), nil
}
