package entity

// WorkflowStatus is the upstream regeneration pipeline status for one
// workflow instance, as reported by the all-status endpoint.
type WorkflowStatus string

const (
	WorkflowStatusCreated             WorkflowStatus = "created"
	WorkflowStatusReadyForGeneration  WorkflowStatus = "ready_for_generation"
	WorkflowStatusGeneratingResponses WorkflowStatus = "generating_workflow_responses"
	WorkflowStatusPostProcessing      WorkflowStatus = "post_processing"
	WorkflowStatusReadyToPopulate     WorkflowStatus = "ready_to_populate"
	WorkflowStatusCompleted           WorkflowStatus = "completed"
	WorkflowStatusError               WorkflowStatus = "error"
)

// Terminal reports whether the upstream status ends the polling loop.
func (s WorkflowStatus) Terminal() bool {
	switch s {
	case WorkflowStatusReadyToPopulate, WorkflowStatusCompleted, WorkflowStatusError:
		return true
	default:
		return false
	}
}

// WorkflowStatusEntry is one element of the all-status response.
type WorkflowStatusEntry struct {
	WorkflowID string         `json:"workflow_id"`
	Status     WorkflowStatus `json:"status"`
}

// JobState is the client-side populate job lifecycle.
type JobState string

const (
	JobStateIdle         JobState = "idle"
	JobStateSubmitted    JobState = "submitted"
	JobStatePolling      JobState = "polling"
	JobStateCompleted    JobState = "completed"
	JobStateError        JobState = "error"
	JobStateTimedOut     JobState = "timed_out"
	JobStateAuthRequired JobState = "auth_required"
)

// Terminal reports whether the job has finished, successfully or not.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateCompleted, JobStateError, JobStateTimedOut, JobStateAuthRequired:
		return true
	default:
		return false
	}
}

// PopulateJob is the observable state of one populate run. It is
// ephemeral: jobs live in memory for the lifetime of the process only.
type PopulateJob struct {
	ID            string   `json:"job_id"`
	SessionID     string   `json:"session_id"`
	WorkflowID    string   `json:"workflow_id"`
	UserID        string   `json:"user_id"`
	State         JobState `json:"state"`
	Polls         int      `json:"polls"`
	StatusMessage string   `json:"status_message,omitempty"`
	ErrorMessage  string   `json:"error_message,omitempty"`
}

// PopulateAnswer is one dry-run answer. Index is the 1-based position
// of the question in the submitted order; answers correlate to
// questions by position, not by key.
type PopulateAnswer struct {
	Index    string `json:"index"`
	Answer   string `json:"answer"`
	Evidence string `json:"evidence,omitempty"`
}

// TestPopulateResult is the dry-run outcome. On failure Message holds
// the upstream explanation and Answers is empty.
type TestPopulateResult struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Answers []PopulateAnswer `json:"answers,omitempty"`
}
