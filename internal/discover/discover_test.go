package discover

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/socialpulse/internal/config"
	"github.com/JakeFAU/socialpulse/internal/metrics"
	"github.com/JakeFAU/socialpulse/internal/social"
	storemem "github.com/JakeFAU/socialpulse/internal/storage/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

type fakeScraper struct {
	mu        sync.Mutex
	profiles  map[string]social.Profile
	following map[string][]social.Profile
	posts     map[string][]social.Post
	failing   map[string]bool
	scraped   []string
}

func (f *fakeScraper) Profile(_ context.Context, username string) (social.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scraped = append(f.scraped, username)
	if f.failing[username] {
		return social.Profile{}, errors.New("blocked")
	}
	p, ok := f.profiles[username]
	if !ok {
		return social.Profile{}, social.ErrNotFound
	}
	return p, nil
}

func (f *fakeScraper) Timeline(_ context.Context, username string, maxPosts int) ([]social.Post, error) {
	posts := f.posts[username]
	if len(posts) > maxPosts {
		posts = posts[:maxPosts]
	}
	return posts, nil
}

func (f *fakeScraper) Following(_ context.Context, username string, maxCount int) ([]social.Profile, error) {
	out := f.following[username]
	if len(out) > maxCount {
		out = out[:maxCount]
	}
	return out, nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	deliveries []string
	posts      int
	fail       bool
}

func (f *fakeNotifier) DeliverPosts(_ context.Context, _ string, username, _ string, posts []social.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("callback down")
	}
	f.deliveries = append(f.deliveries, username)
	f.posts += len(posts)
	return nil
}

func defaultDiscoveryConfig() config.DiscoveryConfig {
	return config.DiscoveryConfig{
		TargetTotal:      25,
		TargetPerSeed:    4,
		FollowingPerSeed: 10,
		InlineSyncPosts:  10,
	}
}

func TestRunScrapesSeedsAndExpands(t *testing.T) {
	t.Parallel()

	scraper := &fakeScraper{
		profiles: map[string]social.Profile{
			"alpha": {Username: "alpha", FollowersCount: 100},
			"beta":  {Username: "beta", FollowersCount: 50},
			"gamma": {Username: "gamma", FollowersCount: 500},
		},
		following: map[string][]social.Profile{
			"alpha": {{Username: "beta"}, {Username: "gamma"}},
		},
	}
	store := storemem.NewProfileStore()
	eng := New(scraper, store, nil, defaultDiscoveryConfig(), nil)

	res, err := eng.Run(context.Background(), social.JobParameters{Usernames: []string{"alpha"}}, nil)
	require.NoError(t, err)
	require.Len(t, res.Profiles, 3)
	require.Equal(t, 3, res.Counters.ProfilesScraped)

	// Sorted by followers descending.
	require.Equal(t, "gamma", res.Profiles[0].Username)
	require.Equal(t, "alpha", res.Profiles[1].Username)
	require.Equal(t, "beta", res.Profiles[2].Username)

	// Profiles persisted during the walk.
	saved, err := store.GetProfile(context.Background(), "gamma")
	require.NoError(t, err)
	require.Equal(t, 500, saved.FollowersCount)
}

func TestRunSkipsFailingHandles(t *testing.T) {
	t.Parallel()

	scraper := &fakeScraper{
		profiles: map[string]social.Profile{
			"alpha": {Username: "alpha", FollowersCount: 10},
		},
		failing: map[string]bool{"broken": true},
		following: map[string][]social.Profile{
			"alpha": {{Username: "broken"}},
		},
	}
	eng := New(scraper, nil, nil, defaultDiscoveryConfig(), nil)

	res, err := eng.Run(context.Background(), social.JobParameters{Usernames: []string{"alpha"}}, nil)
	require.NoError(t, err)
	require.Len(t, res.Profiles, 1)
	require.Equal(t, 1, res.Counters.ProfilesFailed)
}

func TestRunHonorsPerSeedAndTotalBounds(t *testing.T) {
	t.Parallel()

	profiles := map[string]social.Profile{"seed": {Username: "seed", FollowersCount: 1}}
	var following []social.Profile
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("friend%d", i)
		profiles[name] = social.Profile{Username: name, FollowersCount: i}
		following = append(following, social.Profile{Username: name})
	}
	scraper := &fakeScraper{
		profiles:  profiles,
		following: map[string][]social.Profile{"seed": following},
	}

	cfg := defaultDiscoveryConfig()
	cfg.TargetPerSeed = 2
	eng := New(scraper, nil, nil, cfg, nil)

	res, err := eng.Run(context.Background(), social.JobParameters{Usernames: []string{"seed"}}, nil)
	require.NoError(t, err)
	require.Len(t, res.Profiles, 3)

	cfg = defaultDiscoveryConfig()
	cfg.TargetTotal = 2
	eng = New(scraper, nil, nil, cfg, nil)

	res, err = eng.Run(context.Background(), social.JobParameters{Usernames: []string{"seed"}}, nil)
	require.NoError(t, err)
	require.Len(t, res.Profiles, 2)
}

func TestRunDeduplicatesSeeds(t *testing.T) {
	t.Parallel()

	scraper := &fakeScraper{
		profiles: map[string]social.Profile{
			"alpha": {Username: "alpha"},
		},
	}
	eng := New(scraper, nil, nil, defaultDiscoveryConfig(), nil)

	res, err := eng.Run(context.Background(), social.JobParameters{
		Usernames: []string{"alpha", "@Alpha", "alpha"},
	}, nil)
	require.NoError(t, err)
	require.Len(t, res.Profiles, 1)
	require.Equal(t, []string{"alpha"}, scraper.scraped)
}

func TestRunSyncsSeedPostsWhenCallbackConfigured(t *testing.T) {
	t.Parallel()

	scraper := &fakeScraper{
		profiles: map[string]social.Profile{"alpha": {Username: "alpha"}},
		posts: map[string][]social.Post{
			"alpha": {{ID: "1", Text: "a"}, {ID: "2", Text: "b"}},
		},
	}
	notifier := &fakeNotifier{}
	eng := New(scraper, nil, notifier, defaultDiscoveryConfig(), nil)

	res, err := eng.Run(context.Background(), social.JobParameters{
		Usernames:   []string{"alpha"},
		UserID:      "user-1",
		CallbackURL: "http://callback.local/posts",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha"}, notifier.deliveries)
	require.Equal(t, 2, res.Counters.PostsSynced)
}

func TestRunWithoutCallbackSkipsDelivery(t *testing.T) {
	t.Parallel()

	scraper := &fakeScraper{
		profiles: map[string]social.Profile{"alpha": {Username: "alpha"}},
		posts:    map[string][]social.Post{"alpha": {{ID: "1"}}},
	}
	notifier := &fakeNotifier{}
	eng := New(scraper, nil, notifier, defaultDiscoveryConfig(), nil)

	res, err := eng.Run(context.Background(), social.JobParameters{Usernames: []string{"alpha"}}, nil)
	require.NoError(t, err)
	require.Empty(t, notifier.deliveries)
	require.Zero(t, res.Counters.PostsSynced)
}

func TestRunRequiresSeeds(t *testing.T) {
	t.Parallel()

	eng := New(&fakeScraper{}, nil, nil, defaultDiscoveryConfig(), nil)
	_, err := eng.Run(context.Background(), social.JobParameters{}, nil)
	require.Error(t, err)
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := New(&fakeScraper{}, nil, nil, defaultDiscoveryConfig(), nil)
	_, err := eng.Run(ctx, social.JobParameters{Usernames: []string{"alpha"}}, nil)
	require.ErrorIs(t, err, context.Canceled)
}
