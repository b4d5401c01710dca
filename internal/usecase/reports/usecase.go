package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/futig/dashboard-backend/internal/entity"
	"github.com/futig/dashboard-backend/internal/pkg/formatter"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Usecase assembles clinical-notes reports for one center over a
// trailing window and renders them to the requested format.
type Usecase struct {
	snapshots SnapshotProvider
	sessions  SessionProvider
	factory   *formatter.Factory
	now       func() time.Time
	logger    *zap.Logger
}

func NewUsecase(snapshots SnapshotProvider, sessions SessionProvider, logger *zap.Logger) *Usecase {
	return &Usecase{
		snapshots: snapshots,
		sessions:  sessions,
		factory:   formatter.NewFactory(),
		now:       time.Now,
		logger:    logger,
	}
}

// ClinicalNotes assembles and renders the report. It returns the file
// bytes, the content type and the suggested file name.
func (uc *Usecase) ClinicalNotes(
	ctx context.Context,
	center string,
	days int,
	format entity.ReportFormat,
) ([]byte, string, string, error) {
	if center == "" {
		return nil, "", "", fmt.Errorf("%w: center", entity.ErrMissingField)
	}
	if days < 1 || days > 90 {
		return nil, "", "", fmt.Errorf("%w: days must be between 1 and 90", entity.ErrInvalidParameter)
	}

	f, err := uc.factory.Create(format)
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: %s", entity.ErrInvalidParameter, err)
	}

	report, err := uc.assemble(ctx, center, days)
	if err != nil {
		return nil, "", "", err
	}

	payload, err := f.Format(report)
	if err != nil {
		return nil, "", "", fmt.Errorf("render report: %w", err)
	}

	name := fmt.Sprintf("clinical-notes-%s-%s%s",
		sanitizeFileName(center),
		report.GeneratedAt.Format("2006-01-02"),
		f.FileExtension(),
	)

	return payload, f.ContentType(), name, nil
}

func (uc *Usecase) assemble(ctx context.Context, center string, days int) (*entity.ClinicalNotesReport, error) {
	snap, err := uc.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var users []entity.UserAnalyticsDetail
	for _, c := range snap.CenterAnalytics.CentersData {
		if strings.EqualFold(c.CenterName, center) {
			users = c.Users
			break
		}
	}
	if users == nil {
		return nil, fmt.Errorf("%w: center %q", entity.ErrUserNotFound, center)
	}

	now := uc.now()
	cutoff := now.AddDate(0, 0, -days)

	report := &entity.ClinicalNotesReport{
		Center:      center,
		Days:        days,
		GeneratedAt: now,
	}

	for _, user := range users {
		if user.IgnoreUser {
			continue
		}

		details, err := uc.sessions.UserSessions(ctx, user.UserID)
		if err != nil {
			// One unreadable history should not sink the whole report.
			ctxzap.Warn(ctx, "skipping user in report",
				zap.String("user_id", user.UserID),
				zap.Error(err),
			)
			continue
		}

		lines := sessionLines(details, cutoff)
		if len(lines) == 0 {
			continue
		}

		report.Sections = append(report.Sections, entity.ReportSection{
			Title: user.Email,
			Lines: lines,
		})
	}

	if len(report.Sections) == 0 {
		report.Sections = append(report.Sections, entity.ReportSection{
			Title: "No activity",
			Lines: []string{fmt.Sprintf("No sessions recorded in the last %d days.", days)},
		})
	}

	return report, nil
}

func sessionLines(details []entity.SessionDetail, cutoff time.Time) []string {
	var lines []string
	for _, d := range details {
		if d.CreatedAt.Before(cutoff) {
			continue
		}

		m := d.Populate.Metrics()
		lines = append(lines, fmt.Sprintf("%s  %s (%s)  %s  answered %d/%d",
			d.CreatedAt.Format("2006-01-02"),
			d.PatientName,
			d.SessionType,
			d.SessionStatus,
			m.Answered,
			m.Total,
		))

		for _, key := range answeredKeys(d.Populate) {
			qa, _ := d.Populate.Get(key)
			lines = append(lines, fmt.Sprintf("    %s: %s", displayQuestion(qa), qa.Answer))
		}
	}
	return lines
}

func answeredKeys(set *entity.QASet) []string {
	if set.Empty() {
		return nil
	}
	var keys []string
	for _, key := range set.Keys {
		if set.Items[key].Answered() {
			keys = append(keys, key)
		}
	}
	return keys
}

func displayQuestion(qa entity.QuestionAnswer) string {
	if processed := strings.TrimSpace(qa.ProcessedQuestionText); processed != "" {
		return processed
	}
	return qa.QuestionText
}

func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		case r == ' ', r == '_':
			return '-'
		default:
			return -1
		}
	}, strings.ToLower(name))
}
