// Package discover implements the bounded network-discovery walk.
package discover

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/JakeFAU/socialpulse/internal/config"
	"github.com/JakeFAU/socialpulse/internal/metrics"
	"github.com/JakeFAU/socialpulse/internal/social"
)

// Engine walks outward from seed profiles: deep-scrape every seed,
// then expand through each seed's following list until the per-seed
// and total bounds are hit. Individual handle failures are logged and
// skipped so one bad profile cannot sink a whole walk.
type Engine struct {
	scraper  social.Scraper
	store    social.ProfileStore
	notifier social.Notifier
	cfg      config.DiscoveryConfig
	logger   *zap.Logger
}

// Progress is invoked after each unit of work with a human-readable
// progress string.
type Progress func(progress string)

// Result carries the outcome of one discovery walk.
type Result struct {
	Profiles []social.Profile
	Counters social.JobCounters
}

// New creates a discovery engine.
func New(scraper social.Scraper, store social.ProfileStore, notifier social.Notifier, cfg config.DiscoveryConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		scraper:  scraper,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run executes the two-phase walk for the given parameters. The
// returned profiles are sorted by follower count descending and capped
// at the configured total.
func (e *Engine) Run(ctx context.Context, params social.JobParameters, report Progress) (Result, error) {
	if len(params.Usernames) == 0 {
		return Result{}, fmt.Errorf("at least one seed username is required")
	}
	if report == nil {
		report = func(string) {}
	}

	var (
		res  Result
		seen = make(map[string]bool)
	)

	// Phase one: deep scrape each seed.
	for i, raw := range params.Usernames {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		username := social.NormalizeUsername(raw)
		if username == "" || seen[username] {
			continue
		}
		seen[username] = true
		report(fmt.Sprintf("seed %d/%d: %s", i+1, len(params.Usernames), username))

		profile, err := e.scrapeProfile(ctx, username)
		if err != nil {
			res.Counters.ProfilesFailed++
			e.logger.Warn("seed scrape failed",
				zap.String("username", username),
				zap.Error(err),
			)
			continue
		}
		res.Profiles = append(res.Profiles, profile)
		res.Counters.ProfilesScraped++
		metrics.AddProfilesDiscovered(1)

		if params.UserID != "" && params.CallbackURL != "" && e.notifier != nil {
			e.syncSeedPosts(ctx, username, params, &res.Counters)
		}
	}

	// Phase two: expand through each seed's following list.
	for _, raw := range params.Usernames {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if len(res.Profiles) >= e.cfg.TargetTotal {
			break
		}
		seed := social.NormalizeUsername(raw)
		if seed == "" {
			continue
		}
		report(fmt.Sprintf("expanding %s", seed))

		following, err := e.scraper.Following(ctx, seed, e.cfg.FollowingPerSeed)
		if err != nil {
			e.logger.Warn("following fetch failed",
				zap.String("username", seed),
				zap.Error(err),
			)
			continue
		}

		added := 0
		for _, candidate := range following {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if added >= e.cfg.TargetPerSeed || len(res.Profiles) >= e.cfg.TargetTotal {
				break
			}
			username := social.NormalizeUsername(candidate.Username)
			if username == "" || seen[username] {
				continue
			}
			seen[username] = true

			profile, err := e.scrapeProfile(ctx, username)
			if err != nil {
				res.Counters.ProfilesFailed++
				e.logger.Warn("expansion scrape failed",
					zap.String("username", username),
					zap.String("seed", seed),
					zap.Error(err),
				)
				continue
			}
			res.Profiles = append(res.Profiles, profile)
			res.Counters.ProfilesScraped++
			added++
			metrics.AddProfilesDiscovered(1)
		}
	}

	sort.SliceStable(res.Profiles, func(i, j int) bool {
		return res.Profiles[i].FollowersCount > res.Profiles[j].FollowersCount
	})
	if len(res.Profiles) > e.cfg.TargetTotal {
		res.Profiles = res.Profiles[:e.cfg.TargetTotal]
	}
	return res, nil
}

func (e *Engine) scrapeProfile(ctx context.Context, username string) (social.Profile, error) {
	profile, err := e.scraper.Profile(ctx, username)
	if err != nil {
		return social.Profile{}, err
	}
	if e.store != nil {
		if err := e.store.SaveProfile(ctx, profile); err != nil {
			e.logger.Warn("profile save failed",
				zap.String("username", username),
				zap.Error(err),
			)
		}
	}
	return profile, nil
}

func (e *Engine) syncSeedPosts(ctx context.Context, username string, params social.JobParameters, counters *social.JobCounters) {
	posts, err := e.scraper.Timeline(ctx, username, e.cfg.InlineSyncPosts)
	if err != nil {
		e.logger.Warn("seed timeline fetch failed",
			zap.String("username", username),
			zap.Error(err),
		)
		return
	}
	if len(posts) == 0 {
		return
	}
	if e.store != nil {
		if err := e.store.SavePosts(ctx, username, posts); err != nil {
			e.logger.Warn("posts save failed",
				zap.String("username", username),
				zap.Error(err),
			)
		}
	}
	if err := e.notifier.DeliverPosts(ctx, params.CallbackURL, username, params.UserID, posts); err != nil {
		e.logger.Warn("seed post delivery failed",
			zap.String("username", username),
			zap.Error(err),
		)
		return
	}
	counters.PostsSynced += len(posts)
}
