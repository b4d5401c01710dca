package reports

import (
	"context"
	"testing"
	"time"

	"github.com/futig/dashboard-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSnapshots struct {
	snap *entity.DashboardSnapshot
}

func (f *fakeSnapshots) Snapshot(context.Context) (*entity.DashboardSnapshot, error) {
	return f.snap, nil
}

type fakeSessions struct {
	byUser map[string][]entity.SessionDetail
}

func (f *fakeSessions) UserSessions(_ context.Context, userID string) ([]entity.SessionDetail, error) {
	return f.byUser[userID], nil
}

func fixtures() (*fakeSnapshots, *fakeSessions) {
	snap := &entity.DashboardSnapshot{
		CenterAnalytics: entity.CenterAnalytics{
			CentersData: []entity.CenterAnalyticsSummary{
				{
					CenterName: "North Clinic",
					Users: []entity.UserAnalyticsDetail{
						{UserID: "u1", Email: "a@north.example"},
						{UserID: "u2", Email: "b@north.example", IgnoreUser: true},
					},
				},
			},
		},
	}

	sessions := &fakeSessions{byUser: map[string][]entity.SessionDetail{
		"u1": {
			{
				SessionID:     "s1",
				WorkflowID:    "w1",
				PatientName:   "Jane Roe",
				SessionType:   "intake",
				SessionStatus: "completed",
				CreatedAt:     time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC),
				Populate: &entity.QASet{
					Keys: []string{"q1", "q2"},
					Items: map[string]entity.QuestionAnswer{
						"q1": {QuestionText: "Chief complaint?", Answer: "Headache"},
						"q2": {QuestionText: "Plan?"},
					},
				},
			},
			{
				SessionID:   "s0",
				WorkflowID:  "w1",
				PatientName: "Old Session",
				CreatedAt:   time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC),
			},
		},
		"u2": {
			{
				SessionID:  "ignored",
				WorkflowID: "w1",
				CreatedAt:  time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC),
			},
		},
	}}

	return &fakeSnapshots{snap: snap}, sessions
}

func newTestUsecase() *Usecase {
	snapshots, sessions := fixtures()
	uc := NewUsecase(snapshots, sessions, zap.NewNop())
	uc.now = func() time.Time { return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC) }
	return uc
}

func TestAssemble_WindowAndIgnoreFiltering(t *testing.T) {
	uc := newTestUsecase()

	report, err := uc.assemble(context.Background(), "North Clinic", 7)
	require.NoError(t, err)

	// Ignored users are excluded, and only the trailing window counts.
	require.Len(t, report.Sections, 1)
	assert.Equal(t, "a@north.example", report.Sections[0].Title)

	joined := ""
	for _, line := range report.Sections[0].Lines {
		joined += line + "\n"
	}
	assert.Contains(t, joined, "Jane Roe")
	assert.Contains(t, joined, "answered 1/2")
	assert.Contains(t, joined, "Chief complaint?: Headache")
	assert.NotContains(t, joined, "Old Session")
	assert.NotContains(t, joined, "Plan?")
}

func TestAssemble_CenterNameIsCaseInsensitive(t *testing.T) {
	uc := newTestUsecase()

	report, err := uc.assemble(context.Background(), "north clinic", 7)
	require.NoError(t, err)
	assert.Equal(t, "north clinic", report.Center)
}

func TestAssemble_UnknownCenter(t *testing.T) {
	uc := newTestUsecase()

	_, err := uc.assemble(context.Background(), "Nowhere", 7)
	assert.ErrorIs(t, err, entity.ErrUserNotFound)
}

func TestClinicalNotes_Validation(t *testing.T) {
	uc := newTestUsecase()

	_, _, _, err := uc.ClinicalNotes(context.Background(), "", 7, entity.FormatPDF)
	assert.ErrorIs(t, err, entity.ErrMissingField)

	_, _, _, err = uc.ClinicalNotes(context.Background(), "North Clinic", 0, entity.FormatPDF)
	assert.ErrorIs(t, err, entity.ErrInvalidParameter)

	_, _, _, err = uc.ClinicalNotes(context.Background(), "North Clinic", 7, entity.ReportFormat("xlsx"))
	assert.ErrorIs(t, err, entity.ErrInvalidParameter)
}

func TestClinicalNotes_RendersPDF(t *testing.T) {
	uc := newTestUsecase()

	payload, contentType, fileName, err := uc.ClinicalNotes(context.Background(), "North Clinic", 7, entity.FormatPDF)
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, "clinical-notes-north-clinic-2026-08-20.pdf", fileName)
	assert.True(t, len(payload) > 0)
	assert.Equal(t, "%PDF", string(payload[:4]))
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"North Clinic", "north-clinic"},
		{"A/B\\C", "abc"},
		{"under_score", "under-score"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, sanitizeFileName(tt.input))
	}
}
