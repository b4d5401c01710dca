package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/futig/dashboard-backend/internal/entity"
	pkghttp "github.com/futig/dashboard-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// SessionRecord is the wire shape of one per-user session row. The
// populate payload and transcript arrive in several shapes (JSON
// string, object/array, or absent), so both stay raw here and are
// normalized once at the ingestion boundary in the sessions usecase.
type SessionRecord struct {
	SessionID             string          `json:"session_id"`
	WorkflowID            string          `json:"workflow_id"`
	PatientName           string          `json:"patient_name"`
	PatientID             string          `json:"patient_id"`
	CreatedAt             string          `json:"created_at"`
	SessionType           string          `json:"session_type"`
	SessionStatus         string          `json:"session_status"`
	WorkflowName          string          `json:"workflow_name"`
	WorkflowStatus        string          `json:"workflow_status"`
	AudioLink             *string         `json:"audio_link"`
	JSONToPopulate        json.RawMessage `json:"json_to_populate"`
	DiarizedTranscription json.RawMessage `json:"diarized_transcription"`
}

// UserSessions fetches the raw session history for one user.
func (c *Connector) UserSessions(ctx context.Context, userID string) ([]SessionRecord, error) {
	var out []SessionRecord
	if err := c.getWithRetry(ctx, dashboardPrefix+"/user-sessions/"+userID, &out); err != nil {
		return nil, fmt.Errorf("fetch user sessions: %w", err)
	}

	ctxzap.Debug(ctx, "fetched user sessions",
		zap.String("user_id", userID),
		zap.Int("count", len(out)),
	)

	return out, nil
}

// UpdateIgnoreStatus flips the ignore flag on one user.
func (c *Connector) UpdateIgnoreStatus(ctx context.Context, userID string, ignore bool) error {
	req := entity.UpdateIgnoreRequest{Ignore: ignore}
	if err := c.post(ctx, dashboardPrefix+"/users/"+userID+"/ignore-status", req, nil); err != nil {
		return fmt.Errorf("update ignore status: %w", err)
	}
	return nil
}

// UpdateNotes replaces the notes on one user.
func (c *Connector) UpdateNotes(ctx context.Context, userID, notes string) error {
	req := entity.UpdateNotesRequest{Notes: notes}
	if err := c.post(ctx, dashboardPrefix+"/users/"+userID+"/notes", req, nil); err != nil {
		return fmt.Errorf("update notes: %w", err)
	}
	return nil
}

// UpdateExtensionVersion records the extension version for one user.
func (c *Connector) UpdateExtensionVersion(ctx context.Context, userID, version string) error {
	req := entity.UpdateExtensionVersionRequest{Version: version}
	if err := c.post(ctx, dashboardPrefix+"/users/"+userID+"/extension-version", req, nil); err != nil {
		return fmt.Errorf("update extension version: %w", err)
	}
	return nil
}

type retryPopulateRequest struct {
	SessionID  string `json:"session_id"`
	WorkflowID string `json:"workflow_id"`
	UserID     string `json:"user_id"`
}

// RetryPopulate triggers the upstream regeneration job. This is the
// legacy commit-path endpoint and lives at the service root, outside
// the dashboard prefix.
func (c *Connector) RetryPopulate(ctx context.Context, sessionID, workflowID, userID string) error {
	ctxzap.Info(ctx, "triggering populate regeneration",
		zap.String("session_id", sessionID),
		zap.String("workflow_id", workflowID),
	)

	req := retryPopulateRequest{SessionID: sessionID, WorkflowID: workflowID, UserID: userID}
	if err := c.post(ctx, "/retry", req, nil); err != nil {
		return fmt.Errorf("retry populate: %w", err)
	}
	return nil
}

type testPopulateRequest struct {
	SessionID                string            `json:"session_id"`
	WorkflowID               string            `json:"workflow_id"`
	CustomProcessedQuestions map[string]string `json:"custom_processed_questions"`
	UserID                   string            `json:"user_id"`
}

type testPopulateResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	PopulateData *struct {
		Answers []entity.PopulateAnswer `json:"answers"`
	} `json:"populate_data,omitempty"`
}

// TestPopulate dry-runs the regeneration with the given question texts.
// No persisted state is mutated. Not retried: a dry run is cheap to
// reissue manually and duplicating it is pointless.
func (c *Connector) TestPopulate(ctx context.Context, sessionID, workflowID, userID string, questions map[string]string) (*entity.TestPopulateResult, error) {
	ctxzap.Info(ctx, "running populate dry run",
		zap.String("session_id", sessionID),
		zap.String("workflow_id", workflowID),
		zap.Int("question_count", len(questions)),
	)

	req := testPopulateRequest{
		SessionID:                sessionID,
		WorkflowID:               workflowID,
		CustomProcessedQuestions: questions,
		UserID:                   userID,
	}

	var resp testPopulateResponse
	if err := c.post(ctx, dashboardPrefix+"/test-populate", req, &resp); err != nil {
		return nil, fmt.Errorf("test populate: %w", err)
	}

	result := &entity.TestPopulateResult{
		Success: resp.Success,
		Message: resp.Message,
	}
	if resp.PopulateData != nil {
		result.Answers = resp.PopulateData.Answers
	}

	return result, nil
}

type saveQuestionsRequest struct {
	WorkflowID            string   `json:"workflow_id"`
	NewProcessedQuestions []string `json:"new_processed_questions"`
}

// SaveQuestions persists edited question texts for a workflow. The
// commit path sends the full ordered list, unlike the dry-run mapping.
func (c *Connector) SaveQuestions(ctx context.Context, workflowID string, questions []string) error {
	ctxzap.Info(ctx, "saving edited questions",
		zap.String("workflow_id", workflowID),
		zap.Int("question_count", len(questions)),
	)

	req := saveQuestionsRequest{WorkflowID: workflowID, NewProcessedQuestions: questions}
	if err := c.post(ctx, dashboardPrefix+"/save-questions", req, nil); err != nil {
		return fmt.Errorf("save questions: %w", err)
	}
	return nil
}

// WorkflowStatuses polls the regeneration status of every workflow in
// a session. Lives at the service root. Not retried internally: the
// polling loop has its own transient-error handling.
func (c *Connector) WorkflowStatuses(ctx context.Context, sessionID string) ([]entity.WorkflowStatusEntry, error) {
	var out []entity.WorkflowStatusEntry
	err := c.connector.DoRequest(ctx, http.MethodGet, "/clinical-sessions/"+sessionID+"/all-status", nil, &out)
	if err != nil {
		if pkghttp.IsAuthError(err) {
			ctxzap.Warn(ctx, "upstream rejected credentials, clearing stored token",
				zap.String("session_id", sessionID))
			c.tokens.Clear()
		}
		return nil, fmt.Errorf("fetch workflow statuses: %w", err)
	}
	return out, nil
}
