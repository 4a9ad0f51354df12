// Package segment holds the transcript data model and the post-processing
// that turns raw recognizer output into clean, merged, time-stamped segments.
package segment

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sonoscribe/sonoscribe/pkg/engine"
)

// Segment is one contiguous span of recognized speech. Values are immutable
// once produced; a transcription run replaces the whole slice.
type Segment struct {
	ID    uuid.UUID     `json:"id"`
	Text  string        `json:"text"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Contains reports whether t falls inside the segment, boundaries inclusive.
func (s Segment) Contains(t time.Duration) bool {
	return t >= s.Start && t <= s.End
}

// tagPattern matches recognizer-internal markup such as <|startoftranscript|>.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// CleanText strips engine tag markup and surrounding whitespace from raw
// recognizer text.
func CleanText(text string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(text, ""))
}

// Normalize converts raw engine fragments into the final ordered segment list.
//
// Fragments are processed in engine-emitted order. Tag markup is stripped and
// text trimmed; fragments left empty are dropped. When a fragment's cleaned
// text is byte-for-byte identical to the previous accepted segment the
// previous segment is extended to the fragment's end time instead of appending
// a duplicate. The recognizer re-emits unchanged partial hypotheses across
// chunk boundaries, so this collapse is required for a readable transcript.
func Normalize(raw []engine.RawSegment) []Segment {
	segments := make([]Segment, 0, len(raw))

	for _, fragment := range raw {
		text := CleanText(fragment.Text)
		if text == "" {
			continue
		}

		if n := len(segments); n > 0 && segments[n-1].Text == text {
			if fragment.End > segments[n-1].End {
				segments[n-1].End = fragment.End
			}
			continue
		}

		segments = append(segments, Segment{
			ID:    uuid.New(),
			Text:  text,
			Start: fragment.Start,
			End:   fragment.End,
		})
	}

	return segments
}

// Filter returns the segments whose text contains query, case-insensitively.
// An empty query returns the input slice unchanged.
func Filter(query string, segments []Segment) []Segment {
	if query == "" {
		return segments
	}

	needle := strings.ToLower(query)
	matched := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		if strings.Contains(strings.ToLower(seg.Text), needle) {
			matched = append(matched, seg)
		}
	}
	return matched
}
