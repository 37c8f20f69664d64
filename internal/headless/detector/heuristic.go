// Package detector decides when a probe response needs a browser render.
package detector

import "strings"

// Default markers that only appear once the page has real profile markup.
var defaultMarkers = []string{
	`data-testid="UserName"`,
	`data-testid="tweet"`,
	`data-testid="UserCell"`,
}

const (
	defaultMinHTMLBytes = 2000

	sizeScore = 50
	// A body without any profile markers is a JavaScript shell no
	// matter how large it is, so missing markers score past any
	// configurable threshold on their own.
	markerScore = 100
)

// Heuristic scores a probe body and promotes it to a headless render
// when the score reaches the configured threshold.
type Heuristic struct {
	minHTMLBytes int
	threshold    int
	markers      []string
}

// NewHeuristic builds a Heuristic. A threshold <= 0 promotes everything,
// which matches how the upstream site behaves in practice: profile pages
// served without JavaScript rarely carry usable markup.
func NewHeuristic(threshold int) *Heuristic {
	return &Heuristic{
		minHTMLBytes: defaultMinHTMLBytes,
		threshold:    threshold,
		markers:      defaultMarkers,
	}
}

// ShouldPromote reports whether the probe body warrants a browser render.
func (h *Heuristic) ShouldPromote(body []byte) bool {
	if h.threshold <= 0 {
		return true
	}
	score := 0
	if len(body) < h.minHTMLBytes {
		score += sizeScore
	}
	if !h.containsMarker(string(body)) {
		score += markerScore
	}
	return score >= h.threshold
}

func (h *Heuristic) containsMarker(html string) bool {
	for _, marker := range h.markers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}
