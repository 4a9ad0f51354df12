package segment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FormatTimestamp renders a position as "mm:ss.mmm". Minutes are not wrapped
// at the hour; a 90-minute mark renders as "90:00.000".
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	totalSeconds := int(d.Seconds())
	minutes := totalSeconds / 60
	seconds := totalSeconds % 60
	millis := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
}

// Transcript renders segments as plain text, one "[mm:ss.mmm] text" line per
// segment.
func Transcript(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(fmt.Sprintf("[%s] %s\n", FormatTimestamp(seg.Start), seg.Text))
	}
	return b.String()
}

// ExportText renders segments as a single flattened string with blank-line
// separators, suitable for clipboard export.
func ExportText(segments []Segment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, fmt.Sprintf("[%s] %s", FormatTimestamp(seg.Start), seg.Text))
	}
	return strings.Join(lines, "\n\n")
}

// WriteTranscript writes the plain-text transcript to path, creating parent
// directories as needed.
func WriteTranscript(path string, segments []Segment) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(Transcript(segments)), 0o644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

// SRT renders segments in SubRip subtitle format.
func SRT(segments []Segment) []byte {
	var b strings.Builder
	for i, seg := range segments {
		b.WriteString(fmt.Sprintf("%d\n", i+1))
		b.WriteString(fmt.Sprintf("%s --> %s\n", formatSRTTime(seg.Start), formatSRTTime(seg.End)))
		b.WriteString(seg.Text)
		b.WriteString("\n\n")
	}
	return []byte(b.String())
}

// formatSRTTime formats a position for SRT timecodes.
func formatSRTTime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

// DefaultFilename suggests a transcript file name derived from the source
// media file and the current local time.
func DefaultFilename(mediaPath string) string {
	stamp := time.Now().Format("2006-01-02-1504")
	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	if base == "" || base == "." {
		return fmt.Sprintf("transcript_%s.txt", stamp)
	}
	return fmt.Sprintf("%s_transcript_%s.txt", base, stamp)
}
