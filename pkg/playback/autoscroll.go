package playback

import (
	"sync"
	"time"
)

const (
	// scrollNormalization is the unit scale scroll offsets are reported in.
	scrollNormalization = 100.0
	// DefaultScrollThreshold is the normalized offset delta above which a
	// scroll is treated as user-initiated.
	DefaultScrollThreshold = 0.3
)

// AutoScroll arbitrates "user scrolled away" against "the app scrolled to the
// active segment". Enabled by default. A programmatic scroll arms a short
// forced window during which the scroll-detection heuristic cannot disable
// the gate; without it the app's own scroll-to-segment would immediately
// trip the heuristic it triggered.
type AutoScroll struct {
	mu        sync.Mutex
	enabled   bool
	forced    bool
	timer     *time.Timer
	threshold float64

	lastOffset float64
	hasOffset  bool
}

// NewAutoScroll creates the gate with threshold, or DefaultScrollThreshold
// when threshold is zero or negative.
func NewAutoScroll(threshold float64) *AutoScroll {
	if threshold <= 0 {
		threshold = DefaultScrollThreshold
	}
	return &AutoScroll{
		enabled:   true,
		threshold: threshold,
	}
}

// Enabled reports whether the transcript view should follow the active
// segment.
func (a *AutoScroll) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// Enable turns auto-scroll on. A positive forced duration additionally arms
// the one-shot override window; when it lapses only the override clears,
// never the enabled flag itself.
func (a *AutoScroll) Enable(forced time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.enabled = true
	if forced <= 0 {
		return
	}

	a.forced = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(forced, func() {
		a.mu.Lock()
		a.forced = false
		a.mu.Unlock()
	})
}

// Disable turns auto-scroll off unless the forced override window is active.
func (a *AutoScroll) Disable() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.forced {
		return
	}
	a.enabled = false
}

// ReportOffset feeds one raw scroll offset from the view layer. When
// consecutive offsets differ by more than the threshold (on the 100-unit
// normalization scale) the scroll is treated as user-initiated and the gate
// is disabled, subject to the forced override.
func (a *AutoScroll) ReportOffset(offset float64) {
	a.mu.Lock()
	previous, had := a.lastOffset, a.hasOffset
	a.lastOffset = offset
	a.hasOffset = true
	a.mu.Unlock()

	if !had {
		return
	}
	delta := (offset - previous) / scrollNormalization
	if delta < 0 {
		delta = -delta
	}
	if delta > a.threshold {
		a.Disable()
	}
}

// Stop releases the override timer.
func (a *AutoScroll) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.forced = false
}
