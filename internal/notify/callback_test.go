package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/socialpulse/internal/metrics"
	"github.com/JakeFAU/socialpulse/internal/social"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

func TestDeliverPostsSendsJSONBatch(t *testing.T) {
	t.Parallel()

	var got postBatch
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewCallbackNotifier(Config{Timeout: 5 * time.Second}, nil)
	posts := []social.Post{{ID: "1", Text: "hello", Username: "jack"}}

	err := n.DeliverPosts(context.Background(), srv.URL, "jack", "user-42", posts)
	require.NoError(t, err)
	require.Equal(t, "jack", got.Username)
	require.Equal(t, "user-42", got.UserID)
	require.Len(t, got.Posts, 1)
	require.Equal(t, "hello", got.Posts[0].Text)
}

func TestDeliverPostsRejectsNon2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewCallbackNotifier(Config{}, nil)
	err := n.DeliverPosts(context.Background(), srv.URL, "jack", "", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}

func TestDeliverPostsRequiresURL(t *testing.T) {
	t.Parallel()

	n := NewCallbackNotifier(Config{}, nil)
	err := n.DeliverPosts(context.Background(), "", "jack", "", nil)
	require.Error(t, err)
}

func TestDeliverPostsUnreachableHost(t *testing.T) {
	t.Parallel()

	n := NewCallbackNotifier(Config{Timeout: time.Second}, nil)
	err := n.DeliverPosts(context.Background(), "http://127.0.0.1:1/callback", "jack", "", nil)
	require.Error(t, err)
}
