package sinks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/socialpulse/internal/progress"
	"github.com/JakeFAU/socialpulse/internal/social"
)

// StoreSink persists heartbeat notes onto job records so the jobs API can
// report what a running job is currently doing. It collapses each batch to
// the newest note per job to reduce write amplification.
type StoreSink struct {
	jobs   social.JobStore
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink over the provided job store.
func NewStoreSink(jobs social.JobStore, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{jobs: jobs, logger: logger}
}

// Consume writes the latest heartbeat note per job. Jobs that no longer
// exist are skipped; other store errors are returned to the caller.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.jobs == nil {
		return nil
	}
	latest := make(map[string]noteAt)
	for _, evt := range batch {
		if evt.Stage != progress.StageJobHeartbeat || evt.Note == "" {
			continue
		}
		cur, ok := latest[evt.JobID]
		if !ok || evt.TS.After(cur.at) {
			latest[evt.JobID] = noteAt{note: evt.Note, at: evt.TS}
		}
	}
	for jobID, entry := range latest {
		if err := s.jobs.UpdateJobProgress(ctx, jobID, entry.note); err != nil {
			if errors.Is(err, social.ErrNotFound) {
				s.logger.Debug("progress note for unknown job", zap.String("job_id", jobID))
				continue
			}
			return fmt.Errorf("update job progress: %w", err)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}

type noteAt struct {
	note string
	at   time.Time
}
