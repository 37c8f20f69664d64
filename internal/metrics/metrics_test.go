package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	require.NotPanics(t, Init)
}

func TestObserversDoNotPanic(t *testing.T) {
	Init()

	require.NotPanics(t, func() {
		ObserveScrape("profile", nil)
		ObserveScrape("timeline", errors.New("boom"))
		AddPostsScraped(12)
		AddPostsScraped(0)
		AddProfilesDiscovered(3)
		ObserveJob("discovery", "succeeded")
		IncActiveWorkers()
		DecActiveWorkers()
		ObserveHeadlessPromotion()
		ObserveCallbackDelivery(nil)
		ObserveCallbackDelivery(errors.New("refused"))
		ObserveHTTPRequest("GET", "/v1/profiles/{username}", 200, 50*time.Millisecond)
	})
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()
	ObserveScrape("profile", nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "socialpulse_scrapes_total")
}
