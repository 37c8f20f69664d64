// Package headless drives a browser to render profile pages.
package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// Config controls the behavior of the browser pool.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
}

// Browser renders pages with headless Chrome via chromedp. A limiter
// channel bounds concurrent tabs; each render runs in its own task
// context off a shared exec allocator.
type Browser struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromedp creates a Browser backed by chromedp.
func NewChromedp(cfg Config) (*Browser, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Browser{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context, shutting down the browser.
func (b *Browser) Close() {
	b.allocCancel()
}

// Render navigates to url, waits for the body, nudges the viewport so
// lazy elements load, and returns the rendered outer HTML.
func (b *Browser) Render(ctx context.Context, url string) (string, error) {
	var html string
	err := b.withTab(ctx, func(tabCtx context.Context) error {
		actions := []chromedp.Action{
			b.userAgentAction(),
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Evaluate(`window.scrollTo(0, 150)`, nil),
			chromedp.Sleep(time.Second),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		}
		if err := chromedp.Run(tabCtx, actions...); err != nil {
			return fmt.Errorf("chromedp run: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return html, nil
}

// RenderScroll navigates to url and scrolls to the bottom repeatedly,
// invoking collect with the current HTML after each settle. It stops when
// collect returns false, when the document height fails to grow maxStale
// consecutive times, or when the context ends. The delay callback spaces
// out scrolls so the traffic pattern stays human-paced.
func (b *Browser) RenderScroll(
	ctx context.Context,
	url string,
	maxStale int,
	delay func() time.Duration,
	collect func(html string) bool,
) error {
	if maxStale <= 0 {
		maxStale = 10
	}
	return b.withTab(ctx, func(tabCtx context.Context) error {
		if err := chromedp.Run(tabCtx,
			b.userAgentAction(),
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(delay()),
		); err != nil {
			return fmt.Errorf("chromedp navigate: %w", err)
		}

		var lastHeight int64
		if err := chromedp.Run(tabCtx,
			chromedp.Evaluate(`document.body.scrollHeight`, &lastHeight),
		); err != nil {
			return fmt.Errorf("read scroll height: %w", err)
		}

		stale := 0
		for stale < maxStale {
			var html string
			if err := chromedp.Run(tabCtx,
				chromedp.OuterHTML("html", &html, chromedp.ByQuery),
			); err != nil {
				return fmt.Errorf("read page html: %w", err)
			}
			if !collect(html) {
				return nil
			}

			var newHeight int64
			if err := chromedp.Run(tabCtx,
				chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
				chromedp.Sleep(delay()),
				chromedp.Evaluate(`document.body.scrollHeight`, &newHeight),
			); err != nil {
				return fmt.Errorf("scroll page: %w", err)
			}

			if newHeight == lastHeight {
				stale++
			} else {
				stale = 0
			}
			lastHeight = newHeight
		}
		return nil
	})
}

func (b *Browser) withTab(ctx context.Context, fn func(context.Context) error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()

	tabCtx, tabCancel := chromedp.NewContext(b.allocator)
	defer tabCancel()

	tabCtx, cancel := context.WithTimeout(tabCtx, b.cfg.NavigationTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(tabCtx) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		tabCancel()
		return fmt.Errorf("render canceled: %w", ctx.Err())
	}
}

func (b *Browser) userAgentAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if b.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(b.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

func (b *Browser) acquire(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	select {
	case b.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser slot wait canceled: %w", ctx.Err())
	}
}

func (b *Browser) release() {
	if b.limiter == nil {
		return
	}
	select {
	case <-b.limiter:
	default:
	}
}
