// Package worker implements the background job execution loop.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/socialpulse/internal/discover"
	"github.com/JakeFAU/socialpulse/internal/metrics"
	"github.com/JakeFAU/socialpulse/internal/progress"
	"github.com/JakeFAU/socialpulse/internal/social"
)

// Config controls Worker behavior.
type Config struct {
	// SyncPosts is the number of recent posts scraped per username in
	// a sync job.
	SyncPosts int
	// Topic receives job completion events.
	Topic string
}

// Worker consumes queue items and executes the discovery and sync
// pipelines.
type Worker struct {
	queue     social.Queue
	jobStore  social.JobStore
	store     social.ProfileStore
	scraper   social.Scraper
	discovery *discover.Engine
	notifier  social.Notifier
	publisher social.Publisher
	emitter   progress.Emitter
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker.
func New(
	queue social.Queue,
	jobStore social.JobStore,
	store social.ProfileStore,
	scraper social.Scraper,
	discovery *discover.Engine,
	notifier social.Notifier,
	publisher social.Publisher,
	emitter progress.Emitter,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SyncPosts <= 0 {
		cfg.SyncPosts = 20
	}
	return &Worker{
		queue:     queue,
		jobStore:  jobStore,
		store:     store,
		scraper:   scraper,
		discovery: discovery,
		notifier:  notifier,
		publisher: publisher,
		emitter:   emitter,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job",
			zap.String("job_id", item.JobID),
			zap.String("kind", string(item.Kind)),
		)
		w.processJob(ctx, item)
	}
}

func (w *Worker) processJob(ctx context.Context, item social.QueueItem) {
	job, err := w.jobStore.GetJob(ctx, item.JobID)
	if err != nil {
		w.logger.Error("job lookup failed", zap.String("job_id", item.JobID), zap.Error(err))
		return
	}
	if job.Status == social.JobStatusCanceled {
		w.logger.Info("skipping canceled job", zap.String("job_id", item.JobID))
		return
	}

	if err := w.jobStore.UpdateJobStatus(ctx, item.JobID, social.JobStatusRunning, "", social.JobCounters{}); err != nil {
		w.logger.Error("job status update failed", zap.String("job_id", item.JobID), zap.Error(err))
		return
	}

	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	start := time.Now()
	w.emit(item, progress.Event{Stage: progress.StageJobStart})

	var (
		counters social.JobCounters
		runErr   error
	)
	switch item.Kind {
	case social.JobKindDiscovery:
		counters, runErr = w.runDiscovery(ctx, item)
	case social.JobKindSync:
		counters, runErr = w.runSync(ctx, item)
	default:
		runErr = fmt.Errorf("unknown job kind %q", item.Kind)
	}

	w.finishJob(ctx, item, counters, runErr, time.Since(start))
}

func (w *Worker) runDiscovery(ctx context.Context, item social.QueueItem) (social.JobCounters, error) {
	res, err := w.discovery.Run(ctx, item.Params, func(note string) {
		w.emit(item, progress.Event{Stage: progress.StageJobHeartbeat, Note: note})
	})
	if err != nil {
		return res.Counters, err
	}
	if err := w.jobStore.SetJobResult(ctx, item.JobID, res.Profiles); err != nil {
		return res.Counters, fmt.Errorf("store job result: %w", err)
	}
	return res.Counters, nil
}

func (w *Worker) runSync(ctx context.Context, item social.QueueItem) (social.JobCounters, error) {
	var counters social.JobCounters
	if item.Params.CallbackURL == "" {
		return counters, fmt.Errorf("callback url is required for sync jobs")
	}

	for i, raw := range item.Params.Usernames {
		if err := ctx.Err(); err != nil {
			return counters, err
		}
		username := social.NormalizeUsername(raw)
		if username == "" {
			continue
		}
		w.emit(item, progress.Event{
			Stage: progress.StageJobHeartbeat,
			Note:  fmt.Sprintf("syncing %d/%d: %s", i+1, len(item.Params.Usernames), username),
		})

		scrapeStart := time.Now()
		posts, err := w.scraper.Timeline(ctx, username, w.cfg.SyncPosts)
		if err != nil {
			counters.ProfilesFailed++
			w.emit(item, progress.Event{
				Stage:    progress.StageScrapeDone,
				Username: username,
				Outcome:  progress.OutcomeFailed,
				Dur:      time.Since(scrapeStart),
				Note:     err.Error(),
			})
			w.logger.Warn("timeline scrape failed",
				zap.String("job_id", item.JobID),
				zap.String("username", username),
				zap.Error(err),
			)
			continue
		}
		// An empty timeline is not an error, but there is nothing to
		// persist and no batch worth delivering to the callback.
		if len(posts) > 0 {
			if w.store != nil {
				if err := w.store.SavePosts(ctx, username, posts); err != nil {
					w.logger.Warn("posts save failed",
						zap.String("username", username),
						zap.Error(err),
					)
				}
			}
			if err := w.notifier.DeliverPosts(ctx, item.Params.CallbackURL, username, item.Params.UserID, posts); err != nil {
				counters.ProfilesFailed++
				w.emit(item, progress.Event{
					Stage:    progress.StageScrapeDone,
					Username: username,
					Posts:    len(posts),
					Outcome:  progress.OutcomeFailed,
					Dur:      time.Since(scrapeStart),
					Note:     err.Error(),
				})
				w.logger.Warn("callback delivery failed",
					zap.String("job_id", item.JobID),
					zap.String("username", username),
					zap.Error(err),
				)
				continue
			}
		}
		counters.ProfilesScraped++
		counters.PostsSynced += len(posts)
		w.emit(item, progress.Event{
			Stage:    progress.StageScrapeDone,
			Username: username,
			Posts:    len(posts),
			Outcome:  progress.OutcomeSucceeded,
			Dur:      time.Since(scrapeStart),
		})
	}
	return counters, nil
}

func (w *Worker) finishJob(ctx context.Context, item social.QueueItem, counters social.JobCounters, runErr error, elapsed time.Duration) {
	// A cancellation recorded while the job ran wins over the
	// pipeline's own outcome.
	if job, err := w.jobStore.GetJob(ctx, item.JobID); err == nil && job.Status == social.JobStatusCanceled {
		metrics.ObserveJob(string(item.Kind), string(social.JobStatusCanceled))
		w.emit(item, progress.Event{
			Stage:   progress.StageJobDone,
			Outcome: progress.OutcomeCanceled,
			Dur:     elapsed,
		})
		return
	}

	status := social.JobStatusSucceeded
	outcome := progress.OutcomeSucceeded
	errText := ""
	if runErr != nil {
		status = social.JobStatusFailed
		outcome = progress.OutcomeFailed
		errText = runErr.Error()
	}

	if err := w.jobStore.UpdateJobStatus(ctx, item.JobID, status, errText, counters); err != nil {
		w.logger.Error("final job status update failed", zap.String("job_id", item.JobID), zap.Error(err))
		return
	}
	metrics.ObserveJob(string(item.Kind), string(status))
	w.emit(item, progress.Event{
		Stage:   progress.StageJobDone,
		Outcome: outcome,
		Dur:     elapsed,
		Note:    errText,
	})

	if w.publisher != nil && w.cfg.Topic != "" {
		event := map[string]any{
			"job_id":   item.JobID,
			"kind":     item.Kind,
			"status":   status,
			"counters": counters,
		}
		if _, err := w.publisher.Publish(ctx, w.cfg.Topic, event); err != nil {
			w.logger.Warn("job event publish failed", zap.String("job_id", item.JobID), zap.Error(err))
		}
	}
}

func (w *Worker) emit(item social.QueueItem, evt progress.Event) {
	if w.emitter == nil {
		return
	}
	evt.JobID = item.JobID
	evt.Kind = string(item.Kind)
	evt.TS = time.Now().UTC()
	w.emitter.Emit(evt)
}
