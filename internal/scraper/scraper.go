// Package scraper extracts profile and timeline data from rendered pages.
package scraper

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/socialpulse/internal/metrics"
	"github.com/JakeFAU/socialpulse/internal/snapshot"
	"github.com/JakeFAU/socialpulse/internal/social"
)

// Prober performs a cheap non-browser fetch of a page.
type Prober interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Renderer drives a browser to produce fully rendered HTML.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
	RenderScroll(ctx context.Context, url string, maxStale int, delay func() time.Duration, collect func(html string) bool) error
}

// PromotionDetector decides whether a probe body needs a browser render.
type PromotionDetector interface {
	ShouldPromote(body []byte) bool
}

// Config controls navigation pacing and extraction bounds.
type Config struct {
	BaseURL         string
	MinDelay        time.Duration
	MaxDelay        time.Duration
	MaxStaleScrolls int
}

// Scraper implements social.Scraper on top of a probe fetcher and a
// browser renderer. Profile pages try the probe first and promote to the
// browser when the detector says the markup is incomplete; timeline and
// following pages always render because they need scrolling.
type Scraper struct {
	cfg      Config
	prober   Prober
	renderer Renderer
	detector PromotionDetector
	archiver *snapshot.Archiver
	logger   *zap.Logger
}

// New constructs a Scraper. prober and detector may be nil, which forces
// every profile fetch through the renderer; renderer may be nil when a
// prober is present, leaving the service in a probe-only degraded mode
// where timeline and following scrapes fail. archiver may be nil to
// disable raw page snapshots.
func New(
	cfg Config,
	prober Prober,
	renderer Renderer,
	detector PromotionDetector,
	archiver *snapshot.Archiver,
	logger *zap.Logger,
) (*Scraper, error) {
	if renderer == nil && prober == nil {
		return nil, fmt.Errorf("either a renderer or a prober is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://x.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = 2 * time.Second
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	if cfg.MaxStaleScrolls <= 0 {
		cfg.MaxStaleScrolls = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		cfg:      cfg,
		prober:   prober,
		renderer: renderer,
		detector: detector,
		archiver: archiver,
		logger:   logger,
	}, nil
}

// Profile scrapes a single profile page.
func (s *Scraper) Profile(ctx context.Context, username string) (social.Profile, error) {
	username = social.NormalizeUsername(username)
	url := s.profileURL(username)

	html, err := s.fetchProfilePage(ctx, username, url)
	metrics.ObserveScrape("profile", err)
	if err != nil {
		return social.Profile{}, err
	}
	s.archive(ctx, "profile", username, html)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return social.Profile{}, fmt.Errorf("parse profile html: %w", err)
	}
	return parseProfile(doc, username)
}

// Timeline scrapes up to maxPosts recent posts for a user, deduplicating
// by post text as the page grows under scrolling.
func (s *Scraper) Timeline(ctx context.Context, username string, maxPosts int) ([]social.Post, error) {
	username = social.NormalizeUsername(username)
	if maxPosts <= 0 {
		maxPosts = 20
	}

	if s.renderer == nil {
		return nil, fmt.Errorf("scrape timeline %s: headless browser disabled", username)
	}

	var (
		posts    []social.Post
		seenText = make(map[string]struct{})
		lastHTML string
	)
	err := s.renderer.RenderScroll(ctx, s.profileURL(username), s.cfg.MaxStaleScrolls, s.randomDelay,
		func(html string) bool {
			lastHTML = html
			doc, parseErr := goquery.NewDocumentFromReader(strings.NewReader(html))
			if parseErr != nil {
				s.logger.Warn("timeline html parse failed", zap.String("username", username), zap.Error(parseErr))
				return true
			}
			doc.Find(selPostArticle).EachWithBreak(func(_ int, article *goquery.Selection) bool {
				if len(posts) >= maxPosts {
					return false
				}
				post := parsePost(article, username)
				if _, dup := seenText[post.Text]; dup {
					return true
				}
				seenText[post.Text] = struct{}{}
				posts = append(posts, post)
				return true
			})
			return len(posts) < maxPosts
		})
	metrics.ObserveScrape("timeline", err)
	if err != nil {
		// Partial results are still useful; only fail when nothing came back.
		if len(posts) == 0 {
			return nil, fmt.Errorf("scrape timeline %s: %w", username, err)
		}
		s.logger.Warn("timeline scrape ended early",
			zap.String("username", username),
			zap.Int("posts", len(posts)),
			zap.Error(err),
		)
	}
	if lastHTML != "" {
		s.archive(ctx, "timeline", username, lastHTML)
	}
	metrics.AddPostsScraped(len(posts))
	return posts, nil
}

// Following scrapes up to maxCount entries of a user's following list.
func (s *Scraper) Following(ctx context.Context, username string, maxCount int) ([]social.Profile, error) {
	username = social.NormalizeUsername(username)
	if maxCount <= 0 {
		maxCount = 20
	}

	if s.renderer == nil {
		return nil, fmt.Errorf("scrape following %s: headless browser disabled", username)
	}

	var (
		profiles []social.Profile
		seen     = make(map[string]struct{})
	)
	url := s.profileURL(username) + "/following"
	err := s.renderer.RenderScroll(ctx, url, s.cfg.MaxStaleScrolls, s.randomDelay,
		func(html string) bool {
			doc, parseErr := goquery.NewDocumentFromReader(strings.NewReader(html))
			if parseErr != nil {
				s.logger.Warn("following html parse failed", zap.String("username", username), zap.Error(parseErr))
				return true
			}
			for _, p := range parseFollowingCells(doc, seen) {
				if len(profiles) >= maxCount {
					break
				}
				profiles = append(profiles, p)
			}
			return len(profiles) < maxCount
		})
	metrics.ObserveScrape("following", err)
	if err != nil && len(profiles) == 0 {
		return nil, fmt.Errorf("scrape following %s: %w", username, err)
	}
	return profiles, nil
}

func (s *Scraper) fetchProfilePage(ctx context.Context, username, url string) (string, error) {
	if s.prober != nil && (s.detector != nil || s.renderer == nil) {
		body, err := s.prober.Fetch(ctx, url)
		if err == nil && (s.detector == nil || !s.detector.ShouldPromote(body)) {
			return string(body), nil
		}
		if s.renderer == nil {
			if err == nil {
				err = fmt.Errorf("probe markup incomplete and headless browser disabled")
			}
			return "", fmt.Errorf("probe profile %s: %w", username, err)
		}
		if err != nil {
			s.logger.Debug("probe fetch failed, promoting to browser",
				zap.String("username", username),
				zap.Error(err),
			)
		}
		metrics.ObserveHeadlessPromotion()
	}
	html, err := s.renderer.Render(ctx, url)
	if err != nil {
		return "", fmt.Errorf("render profile %s: %w", username, err)
	}
	return html, nil
}

func (s *Scraper) archive(ctx context.Context, kind, username string, html string) {
	if s.archiver == nil {
		return
	}
	if _, err := s.archiver.Archive(ctx, kind, username, []byte(html)); err != nil {
		s.logger.Warn("snapshot archive failed",
			zap.String("username", username),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}

func (s *Scraper) profileURL(username string) string {
	return s.cfg.BaseURL + "/" + username
}

func (s *Scraper) randomDelay() time.Duration {
	window := s.cfg.MaxDelay - s.cfg.MinDelay
	if window <= 0 {
		return s.cfg.MinDelay
	}
	return s.cfg.MinDelay + rand.N(window)
}
