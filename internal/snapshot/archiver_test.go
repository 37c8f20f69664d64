package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/socialpulse/internal/hash/sha256"
	storeMemory "github.com/JakeFAU/socialpulse/internal/storage/memory"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func TestArchiveWritesContentAddressedSnapshot(t *testing.T) {
	t.Parallel()

	blobs := storeMemory.NewBlobStore()
	hasher := sha256.New()
	now := time.Unix(1700000000, 0).UTC()
	arch := New(blobs, hasher, &fixedClock{now: now}, Config{Prefix: "snapshots"}, nil)

	html := []byte("<html><body>profile</body></html>")
	rec, err := arch.Archive(context.Background(), "profile", "jack", html)
	require.NoError(t, err)

	expectedHash, err := hasher.Hash(html)
	require.NoError(t, err)
	require.Equal(t, expectedHash, rec.Hash)
	require.Equal(t, "jack", rec.Username)
	require.Equal(t, "profile", rec.Kind)
	require.Equal(t, now, rec.FetchedAt)
	require.Contains(t, rec.BlobURI, "snapshots/jack/profile/"+expectedHash+".html")

	stored, ok := blobs.GetObject("snapshots/jack/profile/" + expectedHash + ".html")
	require.True(t, ok)
	require.Equal(t, html, stored)
}

func TestArchiveDedupesUnchangedPages(t *testing.T) {
	t.Parallel()

	blobs := storeMemory.NewBlobStore()
	arch := New(blobs, sha256.New(), &fixedClock{now: time.Now()}, Config{}, nil)

	html := []byte("<html>same</html>")
	first, err := arch.Archive(context.Background(), "timeline", "jack", html)
	require.NoError(t, err)
	second, err := arch.Archive(context.Background(), "timeline", "jack", html)
	require.NoError(t, err)

	require.Equal(t, first.BlobURI, second.BlobURI)
	require.Equal(t, 1, blobs.Len())
}
