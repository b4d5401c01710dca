package populate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/futig/dashboard-backend/internal/entity"
	pkghttp "github.com/futig/dashboard-backend/pkg/http"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status messages surfaced while a job runs. Transient connection
// errors keep the loop alive; only auth failures and upstream terminal
// statuses end it.
const (
	msgSubmitted      = "Populate request submitted. Waiting for the workflow to start..."
	msgQueued         = "Workflow queued for generation..."
	msgGenerating     = "Generating responses..."
	msgPostProcessing = "Post-processing generated responses..."
	msgCompleted      = "Populate completed successfully."
	msgFailed         = "Populate failed due to an upstream error. Please try again."
	msgTimedOut       = "Populate timed out after ~5 minutes. The job may still be running upstream."
	msgAuthRequired   = "Authentication required to check populate status. Sign in again and refresh manually."
	msgRetrying       = "Connection error while checking status, retrying..."
)

// Manager drives populate jobs: the strict save-then-trigger ordering
// on start, and a single background polling loop per process. Starting
// a new job stops the previous job's poller first, so at most one
// status poller is ever live.
type Manager struct {
	conn      Connector
	refresher SessionRefresher

	pollInterval time.Duration
	maxPolls     int
	settleDelay  time.Duration

	logger *zap.Logger

	mu     sync.Mutex
	jobs   map[string]*entity.PopulateJob
	active *pollHandle

	livePollers atomic.Int32
}

type pollHandle struct {
	jobID  string
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(
	conn Connector,
	refresher SessionRefresher,
	pollInterval time.Duration,
	maxPolls int,
	settleDelay time.Duration,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		conn:         conn,
		refresher:    refresher,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
		settleDelay:  settleDelay,
		logger:       logger,
		jobs:         make(map[string]*entity.PopulateJob),
	}
}

// TestPopulate runs the dry-run path. Nothing is persisted upstream
// and no job is created; the resolved questions are sent as a keyed
// mapping and answers come back correlated by position.
func (m *Manager) TestPopulate(
	ctx context.Context,
	userID string,
	detail *entity.SessionDetail,
	edits map[string]string,
) (*entity.TestPopulateResult, error) {
	if detail.Populate.Empty() {
		return nil, entity.ErrNoQuestions
	}

	questions := NewEditBuffer(edits).ResolveKeyed(detail.Populate)

	result, err := m.conn.TestPopulate(ctx, detail.SessionID, detail.WorkflowID, userID, questions)
	if err != nil {
		return nil, fmt.Errorf("test populate: %w", err)
	}

	return result, nil
}

// StartJob commits the resolved questions and triggers regeneration.
// The save must succeed before the trigger is attempted; a failed save
// leaves upstream untouched, a failed trigger leaves the questions
// saved but starts no polling. On success the previous job's poller is
// stopped and a new polling loop takes over.
func (m *Manager) StartJob(
	ctx context.Context,
	userID string,
	detail *entity.SessionDetail,
	edits map[string]string,
) (*entity.PopulateJob, error) {
	if detail.Populate.Empty() {
		return nil, entity.ErrNoQuestions
	}

	questions := NewEditBuffer(edits).ResolveOrdered(detail.Populate)

	if err := m.conn.SaveQuestions(ctx, detail.WorkflowID, questions); err != nil {
		return nil, fmt.Errorf("save questions: %w", err)
	}

	if err := m.conn.RetryPopulate(ctx, detail.SessionID, detail.WorkflowID, userID); err != nil {
		return nil, fmt.Errorf("trigger populate: %w", err)
	}

	job := &entity.PopulateJob{
		ID:            uuid.NewString(),
		SessionID:     detail.SessionID,
		WorkflowID:    detail.WorkflowID,
		UserID:        userID,
		State:         entity.JobStateSubmitted,
		StatusMessage: msgSubmitted,
	}

	m.swapActive(job)

	return m.Job(job.ID)
}

// Job returns a copy of the job's observable state.
func (m *Manager) Job(jobID string) (*entity.PopulateJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, entity.ErrJobNotFound
	}

	copied := *job
	return &copied, nil
}

// CancelJob stops the job's poller if it is still running. The
// upstream workflow is not cancellable; only local tracking stops.
func (m *Manager) CancelJob(jobID string) error {
	m.mu.Lock()
	job, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return entity.ErrJobNotFound
	}

	var prev *pollHandle
	if m.active != nil && m.active.jobID == jobID {
		prev = m.active
		m.active = nil
	}
	if !job.State.Terminal() {
		job.State = entity.JobStateIdle
		job.StatusMessage = ""
	}
	m.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	return nil
}

// LivePollers reports the number of running polling loops. It is 0 or
// 1 at every quiescent point.
func (m *Manager) LivePollers() int {
	return int(m.livePollers.Load())
}

// swapActive registers the job, stops the previous poller and starts a
// new one. The old loop is waited out so its late results cannot land
// after the new job's state updates.
func (m *Manager) swapActive(job *entity.PopulateJob) {
	ctx, cancel := context.WithCancel(context.Background())
	handle := &pollHandle{jobID: job.ID, cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	m.jobs[job.ID] = job
	prev := m.active
	m.active = handle
	m.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	// Counted before launch so callers observe the new poller as soon
	// as StartJob returns.
	m.livePollers.Add(1)
	go m.poll(ctx, handle)
}

func (m *Manager) poll(ctx context.Context, handle *pollHandle) {
	defer close(handle.done)
	defer m.livePollers.Add(-1)

	logger := m.logger.With(zap.String("job_id", handle.jobID))

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// A slow status request delays the next read and the ticker
		// drops the missed ticks, so poll bodies never overlap.
		if done := m.pollOnce(ctx, handle.jobID, logger); done {
			return
		}
	}
}

// pollOnce runs one status check and applies the resulting transition.
// It returns true when the job reached a terminal state.
func (m *Manager) pollOnce(ctx context.Context, jobID string, logger *zap.Logger) bool {
	var sessionID, workflowID, userID string
	var polls int

	updated := m.updateJob(ctx, jobID, func(job *entity.PopulateJob) {
		job.Polls++
		job.State = entity.JobStatePolling
		sessionID = job.SessionID
		workflowID = job.WorkflowID
		userID = job.UserID
		polls = job.Polls
	})
	if !updated {
		return true
	}

	statuses, err := m.conn.WorkflowStatuses(ctx, sessionID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		if pkghttp.IsAuthError(err) {
			m.updateJob(ctx, jobID, func(job *entity.PopulateJob) {
				job.State = entity.JobStateAuthRequired
				job.StatusMessage = msgAuthRequired
			})
			m.clearActive(jobID)
			logger.Warn("populate polling stopped, authentication required")
			return true
		}

		// Transient failure. Keep the poll budget ticking and try
		// again on the next interval.
		m.updateJob(ctx, jobID, func(job *entity.PopulateJob) {
			job.StatusMessage = msgRetrying
		})
		logger.Debug("populate status check failed", zap.Error(err))
		return m.checkBudget(ctx, jobID, polls, logger)
	}

	status, found := statusFor(statuses, workflowID)
	if !found {
		m.updateJob(ctx, jobID, func(job *entity.PopulateJob) {
			job.StatusMessage = msgSubmitted
		})
		return m.checkBudget(ctx, jobID, polls, logger)
	}

	switch status {
	case entity.WorkflowStatusCompleted, entity.WorkflowStatusReadyToPopulate:
		m.updateJob(ctx, jobID, func(job *entity.PopulateJob) {
			job.State = entity.JobStateCompleted
			job.StatusMessage = msgCompleted
		})
		m.clearActive(jobID)
		logger.Info("populate job completed", zap.Int("polls", polls))
		m.settleAndRefresh(ctx, userID, logger)
		return true

	case entity.WorkflowStatusError:
		m.updateJob(ctx, jobID, func(job *entity.PopulateJob) {
			job.State = entity.JobStateError
			job.ErrorMessage = msgFailed
			job.StatusMessage = ""
		})
		m.clearActive(jobID)
		logger.Warn("populate job failed upstream")
		return true

	default:
		m.updateJob(ctx, jobID, func(job *entity.PopulateJob) {
			job.StatusMessage = progressMessage(status)
		})
		return m.checkBudget(ctx, jobID, polls, logger)
	}
}

// checkBudget transitions the job to timed_out once the poll budget is
// spent. The budget is counted in polls, not wall-clock time, so the
// cutoff lands on the final budgeted poll regardless of interval drift.
func (m *Manager) checkBudget(ctx context.Context, jobID string, polls int, logger *zap.Logger) bool {
	if polls < m.maxPolls {
		return false
	}

	m.updateJob(ctx, jobID, func(job *entity.PopulateJob) {
		job.State = entity.JobStateTimedOut
		job.StatusMessage = msgTimedOut
	})
	m.clearActive(jobID)
	logger.Warn("populate job timed out", zap.Int("polls", polls))
	return true
}

// settleAndRefresh waits for the upstream write to settle, then
// re-fetches only the affected user's sessions.
func (m *Manager) settleAndRefresh(ctx context.Context, userID string, logger *zap.Logger) {
	timer := time.NewTimer(m.settleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	if err := m.refresher.RefreshUserSessions(ctx, userID); err != nil {
		logger.Warn("session re-fetch after populate failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

// updateJob applies fn to the job under the lock. It returns false
// when the polling context was cancelled, so a superseded loop never
// writes state.
func (m *Manager) updateJob(ctx context.Context, jobID string, fn func(*entity.PopulateJob)) bool {
	if ctx.Err() != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return false
	}

	fn(job)
	return true
}

func (m *Manager) clearActive(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && m.active.jobID == jobID {
		m.active = nil
	}
}

func statusFor(entries []entity.WorkflowStatusEntry, workflowID string) (entity.WorkflowStatus, bool) {
	for _, e := range entries {
		if e.WorkflowID == workflowID {
			return e.Status, true
		}
	}
	return "", false
}

func progressMessage(status entity.WorkflowStatus) string {
	switch status {
	case entity.WorkflowStatusCreated, entity.WorkflowStatusReadyForGeneration:
		return msgQueued
	case entity.WorkflowStatusGeneratingResponses:
		return msgGenerating
	case entity.WorkflowStatusPostProcessing:
		return msgPostProcessing
	default:
		return msgSubmitted
	}
}
