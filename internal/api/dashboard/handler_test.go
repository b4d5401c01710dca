package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/futig/dashboard-backend/internal/entity"
	pkghttp "github.com/futig/dashboard-backend/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetrics struct {
	snapshotErr error
}

func (f *fakeMetrics) Snapshot(context.Context) (*entity.DashboardSnapshot, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return &entity.DashboardSnapshot{FetchedAt: time.Now()}, nil
}
func (f *fakeMetrics) Refresh(ctx context.Context) (*entity.DashboardSnapshot, error) {
	return f.Snapshot(ctx)
}
func (f *fakeMetrics) SetIgnoreStatus(context.Context, string, bool) error { return nil }

func (f *fakeMetrics) SetNotes(context.Context, string, string) error { return nil }

func (f *fakeMetrics) SetExtensionVersion(context.Context, string, string) error { return nil }

func (f *fakeMetrics) Users(context.Context, string) ([]entity.UserAnalyticsDetail, error) {
	return []entity.UserAnalyticsDetail{{UserID: "u1", Email: "a@b.c"}}, nil
}

type fakeSessions struct {
	details []entity.SessionDetail
}

func (f *fakeSessions) UserSessions(context.Context, string) ([]entity.SessionDetail, error) {
	return f.details, nil
}

func (f *fakeSessions) FindSession(_ context.Context, _ string, key entity.SessionKey) (*entity.SessionDetail, error) {
	for i := range f.details {
		if f.details[i].Key() == key {
			return &f.details[i], nil
		}
	}
	return nil, entity.ErrSessionNotFound
}

func (f *fakeSessions) ExportCSV([]entity.SessionDetail) (string, error) {
	return "Date,Patient\n", nil
}

type fakePopulate struct {
	job      *entity.PopulateJob
	startErr error
}

func (f *fakePopulate) TestPopulate(context.Context, string, *entity.SessionDetail, map[string]string) (*entity.TestPopulateResult, error) {
	return &entity.TestPopulateResult{Success: true}, nil
}

func (f *fakePopulate) StartJob(context.Context, string, *entity.SessionDetail, map[string]string) (*entity.PopulateJob, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.job, nil
}

func (f *fakePopulate) Job(jobID string) (*entity.PopulateJob, error) {
	if f.job != nil && f.job.ID == jobID {
		return f.job, nil
	}
	return nil, entity.ErrJobNotFound
}

func (f *fakePopulate) CancelJob(jobID string) error {
	if f.job != nil && f.job.ID == jobID {
		return nil
	}
	return entity.ErrJobNotFound
}

type fakeReports struct{}

func (f *fakeReports) ClinicalNotes(context.Context, string, int, entity.ReportFormat) ([]byte, string, string, error) {
	return []byte("%PDF-fake"), "application/pdf", "report.pdf", nil
}

type fakeEmail struct {
	enabled bool
}

func (f *fakeEmail) Enabled() bool { return f.enabled }
func (f *fakeEmail) SendOutreach(_ context.Context, req entity.OutreachEmailRequest) error {
	if req.Subject == "" {
		return entity.ErrEmptySubject
	}
	return nil
}

type fakeAuth struct {
	loginErr error
}

func (f *fakeAuth) Login(context.Context, string, string, time.Duration) (*entity.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &entity.LoginResponse{AccessToken: "tok"}, nil
}

func (f *fakeAuth) Health(context.Context) error { return nil }

type fixture struct {
	metrics  *fakeMetrics
	sessions *fakeSessions
	populate *fakePopulate
	email    *fakeEmail
	auth     *fakeAuth
	router   chi.Router
}

func newFixture() *fixture {
	f := &fixture{
		metrics: &fakeMetrics{},
		sessions: &fakeSessions{details: []entity.SessionDetail{{
			SessionID:  "s1",
			WorkflowID: "w1",
			CreatedAt:  time.Now(),
			Populate: &entity.QASet{
				Keys:  []string{"q1"},
				Items: map[string]entity.QuestionAnswer{"q1": {QuestionText: "Question?"}},
			},
		}}},
		populate: &fakePopulate{job: &entity.PopulateJob{ID: "job-1", State: entity.JobStatePolling}},
		email:    &fakeEmail{enabled: true},
		auth:     &fakeAuth{},
	}

	handler := NewHandler(f.metrics, f.sessions, f.populate, &fakeReports{}, f.email, f.auth, 24*time.Hour)
	router := chi.NewRouter()
	RegisterRoutes(router, handler)
	f.router = router
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestSnapshotEndpoint(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/dashboard/snapshot", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestSnapshotEndpoint_AuthErrorCarriesRecoveryHint(t *testing.T) {
	f := newFixture()
	f.metrics.snapshotErr = &pkghttp.AuthError{StatusCode: 401, Message: "expired"}

	rec := f.do(t, http.MethodGet, "/dashboard/snapshot", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["recovery"])
}

func TestUsersEndpoint(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/dashboard/users?sort_by=center_name", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var users []entity.UserAnalyticsDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].UserID)
}

func TestUpstreamHealthEndpoint(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/dashboard/upstream-health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestUserSessionsEndpoint_CSVExport(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/dashboard/users/u1/sessions?format=csv", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Date,Patient")
}

func TestStartPopulateEndpoint(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/dashboard/populate/start", entity.StartPopulateRequest{
		SessionID:  "s1",
		WorkflowID: "w1",
		UserID:     "u1",
	})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var job entity.PopulateJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "job-1", job.ID)
}

func TestStartPopulateEndpoint_MissingFields(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/dashboard/populate/start", entity.StartPopulateRequest{
		SessionID: "s1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartPopulateEndpoint_UnknownSession(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/dashboard/populate/start", entity.StartPopulateRequest{
		SessionID:  "missing",
		WorkflowID: "w1",
		UserID:     "u1",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPopulateJobEndpoint(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/dashboard/populate/job-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/dashboard/populate/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelPopulateJobEndpoint(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/dashboard/populate/job-1/cancel", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestOutreachEndpoint_DisabledWithoutKey(t *testing.T) {
	f := newFixture()
	f.email.enabled = false

	rec := f.do(t, http.MethodPost, "/dashboard/outreach/email", entity.OutreachEmailRequest{
		ToEmail: "a@b.c",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOutreachEndpoint_ValidationErrorsAreBadRequests(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/dashboard/outreach/email", entity.OutreachEmailRequest{
		ToEmail:  "a@b.c",
		Template: "custom",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/login", entity.LoginRequest{Email: "a@b.c", Password: "pw"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/login", entity.LoginRequest{Email: "a@b.c"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportEndpoint(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/dashboard/reports/clinical-notes?center=North+Clinic&days=7", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	rec = f.do(t, http.MethodGet, "/dashboard/reports/clinical-notes?center=North+Clinic&days=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
