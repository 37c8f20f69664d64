package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShouldPromoteTinyBody(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(60)
	require.True(t, h.ShouldPromote([]byte("<html></html>")))
}

func TestShouldNotPromoteRenderedProfile(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(60)
	body := `<html><body><div data-testid="UserName">Jane</div>` +
		strings.Repeat("<p>padding</p>", 300) + `</body></html>`
	require.False(t, h.ShouldPromote([]byte(body)))
}

func TestShouldPromoteLargeBodyWithoutMarkers(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(60)
	body := "<html><body>" + strings.Repeat("<p>shell</p>", 500) + "</body></html>"
	require.True(t, h.ShouldPromote([]byte(body)))
}

func TestMissingMarkersPromoteAtAnyThreshold(t *testing.T) {
	t.Parallel()

	body := "<html><body>" + strings.Repeat("<div>app shell</div>", 400) + "</body></html>"
	for _, threshold := range []int{50, 60, 100} {
		h := NewHeuristic(threshold)
		require.True(t, h.ShouldPromote([]byte(body)), "threshold %d", threshold)
	}
}

func TestZeroThresholdAlwaysPromotes(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(0)
	require.True(t, h.ShouldPromote([]byte(strings.Repeat("x", 10_000))))
}
