package social

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrProfileUnavailable is returned by scrapers when a profile page
// yields no usable data (suspended, renamed, or blocked).
var ErrProfileUnavailable = errors.New("profile unavailable")

// Scraper extracts profile and timeline data for a public account.
type Scraper interface {
	Profile(ctx context.Context, username string) (Profile, error)
	Timeline(ctx context.Context, username string, maxPosts int) ([]Post, error)
	Following(ctx context.Context, username string, maxCount int) ([]Profile, error)
}

// JobStore persists background job metadata.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errText string, counters JobCounters) error
	UpdateJobProgress(ctx context.Context, jobID string, progress string) error
	SetJobResult(ctx context.Context, jobID string, result []Profile) error
	GetJob(ctx context.Context, jobID string) (Job, error)
}

// ProfileStore persists scraped profiles and posts.
type ProfileStore interface {
	SaveProfile(ctx context.Context, profile Profile) error
	SavePosts(ctx context.Context, username string, posts []Post) error
	GetProfile(ctx context.Context, username string) (Profile, error)
	ListPosts(ctx context.Context, username string, limit int) ([]Post, error)
}

// BlobStore writes raw page snapshots and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Notifier delivers scraped posts to an external callback endpoint.
type Notifier interface {
	DeliverPosts(ctx context.Context, callbackURL, username, userID string, posts []Post) error
}

// Queue provides enqueue/dequeue semantics for background jobs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Hasher computes digests for snapshot dedupe paths.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
