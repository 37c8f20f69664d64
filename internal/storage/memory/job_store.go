// Package memory provides in-memory stores for development/testing.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/socialpulse/internal/social"
)

// JobStore keeps background jobs in a mutex-guarded map.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]social.Job
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]social.Job),
	}
}

// CreateJob stores a new job in queued status.
func (s *JobStore) CreateJob(_ context.Context, job social.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = job
	return nil
}

// UpdateJobStatus updates the status and counters for a job, stamping
// start/finish times on the relevant transitions.
func (s *JobStore) UpdateJobStatus(
	_ context.Context,
	jobID string,
	status social.JobStatus,
	errText string,
	counters social.JobCounters,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, social.ErrNotFound)
	}
	job.Status = status
	job.ErrorText = errText
	job.Counters = counters
	now := time.Now().UTC()
	if status == social.JobStatusRunning && job.Started == nil {
		job.Started = pointerTime(now)
	}
	if isTerminal(status) {
		job.Finished = pointerTime(now)
	}
	s.jobs[jobID] = job
	return nil
}

// UpdateJobProgress replaces the human-readable progress line.
func (s *JobStore) UpdateJobProgress(_ context.Context, jobID string, progress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, social.ErrNotFound)
	}
	job.Progress = progress
	s.jobs[jobID] = job
	return nil
}

// SetJobResult stores the discovered profiles for a job.
func (s *JobStore) SetJobResult(_ context.Context, jobID string, result []social.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, social.ErrNotFound)
	}
	job.Result = append([]social.Profile(nil), result...)
	s.jobs[jobID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (social.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return social.Job{}, fmt.Errorf("job %s: %w", jobID, social.ErrNotFound)
	}
	return job, nil
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}

func isTerminal(status social.JobStatus) bool {
	switch status {
	case social.JobStatusSucceeded, social.JobStatusFailed, social.JobStatusCanceled:
		return true
	default:
		return false
	}
}
