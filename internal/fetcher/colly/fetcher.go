// Package collyfetcher implements the fast-path HTML probe using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher performs single-shot GET probes of profile pages. It exists so
// the service can avoid spinning up a browser for pages that arrive with
// enough server-rendered markup.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.SetRequestTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	// Social hosts are not honored via robots here; probes target public
	// profile pages only and promotion goes through the browser anyway.
	c.IgnoreRobotsTxt = true

	return &Fetcher{cfg: cfg, baseCollector: c}
}

// Fetch executes a single HTTP GET and returns the response body.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var (
		body     []byte
		status   int
		fetchErr error
	)

	collector := f.baseCollector.Clone()
	collector.Context = ctx
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := collector.Visit(url); err != nil {
		return nil, fmt.Errorf("probe visit %s: %w", url, err)
	}
	collector.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("probe fetch %s: %w", url, fetchErr)
	}
	if status >= http.StatusBadRequest {
		return nil, fmt.Errorf("probe fetch %s: status %d", url, status)
	}
	return body, nil
}
