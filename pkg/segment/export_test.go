package segment

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{
			name: "zero",
			d:    0,
			want: "00:00.000",
		},
		{
			name: "seconds and millis",
			d:    75*time.Second + 250*time.Millisecond,
			want: "01:15.250",
		},
		{
			name: "minutes not wrapped at the hour",
			d:    90 * time.Minute,
			want: "90:00.000",
		},
		{
			name: "negative clamped to zero",
			d:    -time.Second,
			want: "00:00.000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTimestamp(tt.d); got != tt.want {
				t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestTranscript(t *testing.T) {
	segments := []Segment{
		{Text: "first", Start: 0, End: time.Second},
		{Text: "second", Start: 61*time.Second + 500*time.Millisecond, End: 65 * time.Second},
	}

	want := "[00:00.000] first\n[01:01.500] second\n"
	if got := Transcript(segments); got != want {
		t.Errorf("Transcript() = %q, want %q", got, want)
	}
}

func TestExportText(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		want     string
	}{
		{
			name:     "empty",
			segments: nil,
			want:     "",
		},
		{
			name: "single segment has no separator",
			segments: []Segment{
				{Text: "only", Start: time.Second},
			},
			want: "[00:01.000] only",
		},
		{
			name: "segments joined by blank lines",
			segments: []Segment{
				{Text: "first", Start: 0},
				{Text: "second", Start: 2 * time.Second},
			},
			want: "[00:00.000] first\n\n[00:02.000] second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExportText(tt.segments); got != tt.want {
				t.Errorf("ExportText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteTranscript(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")

	segments := []Segment{{Text: "hello", Start: time.Second, End: 2 * time.Second}}
	if err := WriteTranscript(path, segments); err != nil {
		t.Fatalf("WriteTranscript() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read transcript: %v", err)
	}
	want := "[00:01.000] hello\n"
	if string(data) != want {
		t.Errorf("transcript content = %q, want %q", string(data), want)
	}
}

func TestSRT(t *testing.T) {
	segments := []Segment{
		{Text: "first", Start: 0, End: 1500 * time.Millisecond},
		{Text: "second", Start: time.Hour + time.Second, End: time.Hour + 3*time.Second},
	}

	want := "1\n00:00:00,000 --> 00:00:01,500\nfirst\n\n" +
		"2\n01:00:01,000 --> 01:00:03,000\nsecond\n\n"
	if got := string(SRT(segments)); got != want {
		t.Errorf("SRT() = %q, want %q", got, want)
	}
}

func TestDefaultFilename(t *testing.T) {
	got := DefaultFilename("/media/recordings/meeting.mp4")
	if !strings.HasPrefix(got, "meeting_transcript_") {
		t.Errorf("DefaultFilename() = %q, want meeting_transcript_ prefix", got)
	}
	if !strings.HasSuffix(got, ".txt") {
		t.Errorf("DefaultFilename() = %q, want .txt suffix", got)
	}
}
