// Package playback maps a continuously advancing playback clock onto the
// transcript: active-segment lookup, the auto-scroll gate, and the session
// that serializes all state the UI observes.
package playback

import (
	"time"

	"github.com/google/uuid"

	"github.com/sonoscribe/sonoscribe/pkg/segment"
)

// Player is the opaque media-playback surface. Implementations wrap the
// platform playback engine; the session only drives these primitives.
type Player interface {
	// Play starts or resumes playback.
	Play() error

	// Pause suspends playback, keeping the position.
	Pause() error

	// Seek moves the playback position to pos.
	Seek(pos time.Duration) error

	// SetRate sets the playback-speed multiplier.
	SetRate(rate float64) error

	// Position returns the current playback position.
	Position() time.Duration

	// Updates delivers the current position at a fixed sampling interval
	// (~100ms) while playing.
	Updates() <-chan time.Duration

	// Done is closed when the media reaches its end.
	Done() <-chan struct{}

	// Close releases the player.
	Close() error
}

// PlayerFactory opens a player for a local media file.
type PlayerFactory func(path string) (Player, error)

// ActiveSegment returns the ID of the first segment whose interval contains
// t, boundaries inclusive. Scan order is the post-processor's output order;
// at boundary instants shared by two segments the earlier one wins.
func ActiveSegment(t time.Duration, segments []segment.Segment) (uuid.UUID, bool) {
	for _, seg := range segments {
		if seg.Contains(t) {
			return seg.ID, true
		}
	}
	return uuid.UUID{}, false
}
