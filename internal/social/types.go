// Package social defines core types shared across subsystems.
package social

import "time"

// Profile is the full set of fields extracted from a profile page.
// Entries discovered from a following list are partial: counts are zero
// and most optional fields are empty until a deep scrape fills them in.
type Profile struct {
	Username        string `json:"username"`
	FullName        string `json:"full_name,omitempty"`
	Bio             string `json:"bio,omitempty"`
	Location        string `json:"location,omitempty"`
	Website         string `json:"website,omitempty"`
	FollowersCount  int    `json:"followers_count"`
	FollowingCount  int    `json:"following_count"`
	PostsCount      int    `json:"posts_count"`
	JoinDate        string `json:"join_date,omitempty"`
	Verified        bool   `json:"is_verified"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	BannerImageURL  string `json:"banner_image_url,omitempty"`
}

// Post is a single timeline entry extracted from a rendered page.
type Post struct {
	ID           string   `json:"id,omitempty"`
	Text         string   `json:"text"`
	Username     string   `json:"username"`
	FullName     string   `json:"full_name,omitempty"`
	Timestamp    string   `json:"timestamp,omitempty"`
	Likes        int      `json:"likes"`
	Reposts      int      `json:"reposts"`
	Replies      int      `json:"replies"`
	Views        int      `json:"views"`
	Hashtags     []string `json:"hashtags"`
	Mentions     []string `json:"mentions"`
	MediaURLs    []string `json:"media_urls,omitempty"`
	Verified     bool     `json:"is_verified"`
	IsReply      bool     `json:"is_reply"`
	ReplyTo      string   `json:"reply_to,omitempty"`
	ProfileImage string   `json:"profile_image,omitempty"`
	URL          string   `json:"url,omitempty"`
}

// JobKind distinguishes the background pipelines a worker can run.
type JobKind string

// Job kinds accepted by the queue.
const (
	JobKindDiscovery JobKind = "discovery"
	JobKindSync      JobKind = "sync"
)

// JobStatus represents the lifecycle state of a background job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// JobParameters captures the client-supplied inputs of a background job.
type JobParameters struct {
	Usernames   []string `json:"usernames"`
	UserID      string   `json:"user_id,omitempty"`
	CallbackURL string   `json:"callback_url,omitempty"`
}

// Job represents the metadata persisted for each submitted background job.
type Job struct {
	ID         string        `json:"id"`
	Kind       JobKind       `json:"kind"`
	Status     JobStatus     `json:"status"`
	Progress   string        `json:"progress,omitempty"`
	Submitted  time.Time     `json:"submitted_at"`
	Started    *time.Time    `json:"started_at,omitempty"`
	Finished   *time.Time    `json:"finished_at,omitempty"`
	ErrorText  string        `json:"error_text,omitempty"`
	Parameters JobParameters `json:"parameters"`
	Counters   JobCounters   `json:"counters"`
	Result     []Profile     `json:"result,omitempty"`
}

// JobCounters tracks per-job success/failure stats.
type JobCounters struct {
	ProfilesScraped int `json:"profiles_scraped"`
	ProfilesFailed  int `json:"profiles_failed"`
	PostsSynced     int `json:"posts_synced"`
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	Kind      JobKind
	Params    JobParameters
	Submitted int64
}

// SnapshotRecord is persisted for each raw page snapshot written to the
// blob store.
type SnapshotRecord struct {
	Username  string    `json:"username"`
	Kind      string    `json:"kind"`
	FetchedAt time.Time `json:"fetched_at"`
	Hash      string    `json:"hash"`
	BlobURI   string    `json:"blob_uri"`
}
