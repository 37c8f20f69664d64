package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutGet(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	uri, err := store.PutObject(context.Background(), "snapshots/jane/profile/abc.html", "text/html", []byte("<html/>"))
	require.NoError(t, err)
	require.Equal(t, "mem://snapshots/jane/profile/abc.html", uri)

	data, ok := store.GetObject("snapshots/jane/profile/abc.html")
	require.True(t, ok)
	require.Equal(t, "<html/>", string(data))
	require.Equal(t, 1, store.Len())

	_, ok = store.GetObject("missing")
	require.False(t, ok)
}
