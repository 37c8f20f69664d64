// Package sinks provides progress.Sink implementations for logs, metrics,
// and the job store.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/socialpulse/internal/progress"
)

// LogSink emits structured logs for debugging progress streams. It is useful
// during development or audits where metrics alone are too coarse.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.logger.Info("progress event",
			zap.String("job_id", evt.JobID),
			zap.String("kind", evt.Kind),
			zap.String("stage", string(evt.Stage)),
			zap.String("username", evt.Username),
			zap.Int("posts", evt.Posts),
			zap.String("outcome", string(evt.Outcome)),
			zap.Duration("dur", evt.Dur),
			zap.String("note", evt.Note),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
