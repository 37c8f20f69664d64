// Package snapshot persists raw rendered pages to a blob store.
package snapshot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/socialpulse/internal/social"
)

// Config controls blob paths and content type.
type Config struct {
	Prefix      string
	ContentType string
}

// Archiver hashes raw page HTML and writes it under a content-addressed
// path, so re-scrapes of an unchanged page dedupe naturally.
type Archiver struct {
	blobs  social.BlobStore
	hasher social.Hasher
	clock  social.Clock
	cfg    Config
	logger *zap.Logger
}

// New constructs an Archiver.
func New(blobs social.BlobStore, hasher social.Hasher, clock social.Clock, cfg Config, logger *zap.Logger) *Archiver {
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{
		blobs:  blobs,
		hasher: hasher,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
}

// Archive writes one page snapshot and returns its record.
func (a *Archiver) Archive(ctx context.Context, kind, username string, html []byte) (social.SnapshotRecord, error) {
	hash, err := a.hasher.Hash(html)
	if err != nil {
		return social.SnapshotRecord{}, fmt.Errorf("hash snapshot: %w", err)
	}

	path := a.buildPath(kind, username, hash)
	uri, err := a.blobs.PutObject(ctx, path, a.cfg.ContentType, html)
	if err != nil {
		return social.SnapshotRecord{}, fmt.Errorf("put snapshot: %w", err)
	}

	record := social.SnapshotRecord{
		Username:  username,
		Kind:      kind,
		FetchedAt: a.clock.Now(),
		Hash:      hash,
		BlobURI:   uri,
	}
	a.logger.Debug("page snapshot archived",
		zap.String("username", username),
		zap.String("kind", kind),
		zap.String("blob_uri", uri),
	)
	return record, nil
}

func (a *Archiver) buildPath(kind, username, hash string) string {
	prefix := strings.Trim(a.cfg.Prefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s/%s.html", username, kind, hash)
	}
	return fmt.Sprintf("%s/%s/%s/%s.html", prefix, username, kind, hash)
}
