package dashboard

import (
	"context"
	"time"

	"github.com/futig/dashboard-backend/internal/entity"
	"github.com/futig/dashboard-backend/internal/usecase/populate"
)

type MetricsUsecase interface {
	Snapshot(ctx context.Context) (*entity.DashboardSnapshot, error)
	Refresh(ctx context.Context) (*entity.DashboardSnapshot, error)
	SetIgnoreStatus(ctx context.Context, userID string, ignore bool) error
	SetNotes(ctx context.Context, userID, notes string) error
	SetExtensionVersion(ctx context.Context, userID, version string) error
	Users(ctx context.Context, sortBy string) ([]entity.UserAnalyticsDetail, error)
}

type SessionsUsecase interface {
	UserSessions(ctx context.Context, userID string) ([]entity.SessionDetail, error)
	FindSession(ctx context.Context, userID string, key entity.SessionKey) (*entity.SessionDetail, error)
	ExportCSV(details []entity.SessionDetail) (string, error)
}

type PopulateManager interface {
	TestPopulate(ctx context.Context, userID string, detail *entity.SessionDetail, edits map[string]string) (*entity.TestPopulateResult, error)
	StartJob(ctx context.Context, userID string, detail *entity.SessionDetail, edits map[string]string) (*entity.PopulateJob, error)
	Job(jobID string) (*entity.PopulateJob, error)
	CancelJob(jobID string) error
}

type ReportsUsecase interface {
	ClinicalNotes(ctx context.Context, center string, days int, format entity.ReportFormat) ([]byte, string, string, error)
}

type EmailService interface {
	Enabled() bool
	SendOutreach(ctx context.Context, req entity.OutreachEmailRequest) error
}

type AuthConnector interface {
	Login(ctx context.Context, email, password string, defaultTTL time.Duration) (*entity.LoginResponse, error)
	Health(ctx context.Context) error
}

// compile-time check that the concrete manager satisfies the surface
var _ PopulateManager = (*populate.Manager)(nil)
