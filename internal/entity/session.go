package entity

import (
	"fmt"
	"time"
)

// SessionKey is the composite identity of one session-workflow instance.
// One session can carry several workflow instances, so state keyed by
// "session" must always use the pair, never the session ID alone.
type SessionKey struct {
	SessionID  string
	WorkflowID string
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%s-%s", k.SessionID, k.WorkflowID)
}

// QuestionAnswer is one Q&A record inside a workflow's populate payload.
// Answer absence means the question is unanswered.
type QuestionAnswer struct {
	QuestionText          string `json:"question_text"`
	ProcessedQuestionText string `json:"processed_question_text,omitempty"`
	Answer                string `json:"answer,omitempty"`
	Evidence              string `json:"evidence,omitempty"`
	Type                  string `json:"type"`
}

// Answered reports whether the question has a non-empty answer.
func (qa QuestionAnswer) Answered() bool {
	return qa.Answer != ""
}

// QASet is the normalized populate payload: question records addressed
// by key, with the upstream document order preserved. The upstream wire
// shape varies (JSON string, object, or absent); normalization happens
// once at the ingestion boundary so nothing downstream re-parses.
type QASet struct {
	Keys  []string
	Items map[string]QuestionAnswer
}

// Empty reports whether the set holds no questions.
func (s *QASet) Empty() bool {
	return s == nil || len(s.Keys) == 0
}

// Get returns the record for key, if present.
func (s *QASet) Get(key string) (QuestionAnswer, bool) {
	if s == nil {
		return QuestionAnswer{}, false
	}
	qa, ok := s.Items[key]
	return qa, ok
}

// QAMetrics summarizes answered/unanswered counts for one QASet.
type QAMetrics struct {
	Total      int `json:"total"`
	Answered   int `json:"answered"`
	Unanswered int `json:"unanswered"`
	Percent    int `json:"percent"`
}

// Metrics computes answered/unanswered counts for the set.
func (s *QASet) Metrics() QAMetrics {
	m := QAMetrics{}
	if s == nil {
		return m
	}
	m.Total = len(s.Keys)
	for _, key := range s.Keys {
		if s.Items[key].Answered() {
			m.Answered++
		}
	}
	m.Unanswered = m.Total - m.Answered
	if m.Total > 0 {
		m.Percent = int(float64(m.Answered)/float64(m.Total)*100 + 0.5)
	}
	return m
}

// TranscriptSegment is one diarized utterance.
type TranscriptSegment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// SessionDetail is one normalized session-workflow record from the
// per-user session history.
type SessionDetail struct {
	SessionID      string              `json:"session_id"`
	WorkflowID     string              `json:"workflow_id"`
	PatientName    string              `json:"patient_name"`
	PatientID      string              `json:"patient_id"`
	CreatedAt      time.Time           `json:"created_at"`
	SessionType    string              `json:"session_type"`
	SessionStatus  string              `json:"session_status"`
	WorkflowName   string              `json:"workflow_name"`
	WorkflowStatus string              `json:"workflow_status"`
	AudioLink      string              `json:"audio_link,omitempty"`
	Transcript     []TranscriptSegment `json:"transcript,omitempty"`
	Populate       *QASet              `json:"-"`
}

// Key returns the composite session-workflow identity.
func (s SessionDetail) Key() SessionKey {
	return SessionKey{SessionID: s.SessionID, WorkflowID: s.WorkflowID}
}
