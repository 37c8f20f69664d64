// Package progress defines the event stream emitted by background jobs.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageJobStart     Stage = "JOB_START"
	StageJobHeartbeat Stage = "JOB_HEARTBEAT"
	StageJobDone      Stage = "JOB_DONE"
	StageScrapeDone   Stage = "SCRAPE_DONE"
)

// Outcome classifies completed work using the job status vocabulary.
type Outcome string

// Supported outcomes for JOB_DONE and SCRAPE_DONE events.
const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCanceled  Outcome = "canceled"
)

// Event captures a single milestone of a discovery or sync job.
type Event struct {
	// JobID identifies the owning job.
	JobID string
	// Kind is the job kind (discovery, sync).
	Kind string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle or scrape milestone occurred.
	Stage Stage
	// Username scopes scrape events to the account being worked.
	Username string
	// Posts carries the number of posts pulled by a scrape.
	Posts int
	// Outcome classifies completions (succeeded, failed, canceled).
	Outcome Outcome
	// Dur captures execution latency for scrapes and job completions.
	Dur time.Duration
	// Note carries human-readable progress text or error context.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.JobID == "" {
		return errors.New("job id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageJobStart, StageJobHeartbeat:
	case StageJobDone:
		if e.Outcome == "" {
			return errors.New("job done requires outcome")
		}
	case StageScrapeDone:
		if e.Username == "" {
			return errors.New("scrape done requires username")
		}
		if e.Outcome == "" {
			return errors.New("scrape done requires outcome")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	if e.Posts < 0 {
		return errors.New("post count must be >= 0")
	}
	return nil
}
