package entity

import "time"

// LoginRequest is the credential payload proxied to the upstream login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the upstream login result.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// UpdateIgnoreRequest toggles the ignore flag on one user.
type UpdateIgnoreRequest struct {
	Ignore bool `json:"ignore"`
}

// UpdateNotesRequest replaces the notes on one user.
type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

// UpdateExtensionVersionRequest sets the recorded extension version.
type UpdateExtensionVersionRequest struct {
	Version string `json:"version"`
}

// TestPopulateRequest is the dashboard-side dry-run request. Edited
// questions are keyed by question key; unlisted keys fall back to the
// stored question text.
type TestPopulateRequest struct {
	SessionID       string            `json:"session_id"`
	WorkflowID      string            `json:"workflow_id"`
	UserID          string            `json:"user_id"`
	EditedQuestions map[string]string `json:"edited_questions,omitempty"`
}

// StartPopulateRequest commits edited questions and triggers the
// regeneration job.
type StartPopulateRequest struct {
	SessionID       string            `json:"session_id"`
	WorkflowID      string            `json:"workflow_id"`
	UserID          string            `json:"user_id"`
	EditedQuestions map[string]string `json:"edited_questions,omitempty"`
}

// OutreachEmailRequest sends one templated or custom email to a user.
type OutreachEmailRequest struct {
	ToEmail  string `json:"to_email"`
	ToName   string `json:"to_name"`
	Template string `json:"template,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Body     string `json:"body,omitempty"`
}

// SessionDTO is the API shape of one session-workflow record.
type SessionDTO struct {
	SessionID      string              `json:"session_id"`
	WorkflowID     string              `json:"workflow_id"`
	PatientName    string              `json:"patient_name"`
	PatientID      string              `json:"patient_id"`
	CreatedAt      time.Time           `json:"created_at"`
	SessionType    string              `json:"session_type"`
	SessionStatus  string              `json:"session_status"`
	WorkflowName   string              `json:"workflow_name"`
	WorkflowStatus string              `json:"workflow_status"`
	AudioAvailable bool                `json:"audio_available"`
	AudioLink      string              `json:"audio_link,omitempty"`
	Transcript     []TranscriptSegment `json:"transcript,omitempty"`
	Questions      []QuestionDTO       `json:"questions"`
	QAMetrics      QAMetrics           `json:"qa_metrics"`
}

// QuestionDTO is the API shape of one Q&A record, in document order.
type QuestionDTO struct {
	Key                   string `json:"key"`
	QuestionText          string `json:"question_text"`
	ProcessedQuestionText string `json:"processed_question_text,omitempty"`
	Answer                string `json:"answer,omitempty"`
	Evidence              string `json:"evidence,omitempty"`
	Type                  string `json:"type"`
	Answered              bool   `json:"answered"`
}
