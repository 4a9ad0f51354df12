package segment

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sonoscribe/sonoscribe/pkg/engine"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "plain text unchanged",
			text: "hello world",
			want: "hello world",
		},
		{
			name: "engine control tokens stripped",
			text: "<|startoftranscript|>hello world",
			want: "hello world",
		},
		{
			name: "tags stripped mid-sentence",
			text: "hello <x>world</x>",
			want: "hello world",
		},
		{
			name: "surrounding whitespace trimmed",
			text: "  hello world \n",
			want: "hello world",
		},
		{
			name: "tag-only text becomes empty",
			text: "<|nospeech|>",
			want: "",
		},
		{
			name: "empty input",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.text); got != tt.want {
				t.Errorf("CleanText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	seg := Segment{Text: "hi", Start: 2 * time.Second, End: 5 * time.Second}

	tests := []struct {
		name string
		at   time.Duration
		want bool
	}{
		{
			name: "before start",
			at:   time.Second,
			want: false,
		},
		{
			name: "start boundary inclusive",
			at:   2 * time.Second,
			want: true,
		},
		{
			name: "inside",
			at:   3 * time.Second,
			want: true,
		},
		{
			name: "end boundary inclusive",
			at:   5 * time.Second,
			want: true,
		},
		{
			name: "after end",
			at:   6 * time.Second,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := seg.Contains(tt.at); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  []engine.RawSegment
		want []Segment
	}{
		{
			name: "empty input",
			raw:  nil,
			want: []Segment{},
		},
		{
			name: "distinct fragments kept in order",
			raw: []engine.RawSegment{
				{Text: "one", Start: 0, End: time.Second},
				{Text: "two", Start: time.Second, End: 2 * time.Second},
			},
			want: []Segment{
				{Text: "one", Start: 0, End: time.Second},
				{Text: "two", Start: time.Second, End: 2 * time.Second},
			},
		},
		{
			name: "identical consecutive text merged by extending end",
			raw: []engine.RawSegment{
				{Text: "hi", Start: 0, End: time.Second},
				{Text: "hi", Start: time.Second, End: 2 * time.Second},
				{Text: "bye", Start: 2 * time.Second, End: 3 * time.Second},
			},
			want: []Segment{
				{Text: "hi", Start: 0, End: 2 * time.Second},
				{Text: "bye", Start: 2 * time.Second, End: 3 * time.Second},
			},
		},
		{
			name: "merge does not shrink end time",
			raw: []engine.RawSegment{
				{Text: "hi", Start: 0, End: 3 * time.Second},
				{Text: "hi", Start: time.Second, End: 2 * time.Second},
			},
			want: []Segment{
				{Text: "hi", Start: 0, End: 3 * time.Second},
			},
		},
		{
			name: "identical text separated by other text not merged",
			raw: []engine.RawSegment{
				{Text: "hi", Start: 0, End: time.Second},
				{Text: "bye", Start: time.Second, End: 2 * time.Second},
				{Text: "hi", Start: 2 * time.Second, End: 3 * time.Second},
			},
			want: []Segment{
				{Text: "hi", Start: 0, End: time.Second},
				{Text: "bye", Start: time.Second, End: 2 * time.Second},
				{Text: "hi", Start: 2 * time.Second, End: 3 * time.Second},
			},
		},
		{
			name: "fragments cleaned before comparison",
			raw: []engine.RawSegment{
				{Text: " hi ", Start: 0, End: time.Second},
				{Text: "<|x|>hi", Start: time.Second, End: 2 * time.Second},
			},
			want: []Segment{
				{Text: "hi", Start: 0, End: 2 * time.Second},
			},
		},
		{
			name: "empty fragments dropped without breaking merge chain",
			raw: []engine.RawSegment{
				{Text: "hi", Start: 0, End: time.Second},
				{Text: "<|nospeech|>", Start: time.Second, End: 2 * time.Second},
				{Text: "hi", Start: 2 * time.Second, End: 3 * time.Second},
			},
			want: []Segment{
				{Text: "hi", Start: 0, End: 3 * time.Second},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("Normalize() returned %d segments, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Text != tt.want[i].Text {
					t.Errorf("segment %d text = %q, want %q", i, got[i].Text, tt.want[i].Text)
				}
				if got[i].Start != tt.want[i].Start {
					t.Errorf("segment %d start = %v, want %v", i, got[i].Start, tt.want[i].Start)
				}
				if got[i].End != tt.want[i].End {
					t.Errorf("segment %d end = %v, want %v", i, got[i].End, tt.want[i].End)
				}
				if got[i].ID == uuid.Nil {
					t.Errorf("segment %d has zero ID", i)
				}
			}
		})
	}
}

func TestFilter(t *testing.T) {
	segments := []Segment{
		{Text: "Hello world"},
		{Text: "goodbye"},
		{Text: "HELLO again"},
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "empty query returns everything",
			query: "",
			want:  []string{"Hello world", "goodbye", "HELLO again"},
		},
		{
			name:  "case insensitive match",
			query: "hello",
			want:  []string{"Hello world", "HELLO again"},
		},
		{
			name:  "substring match",
			query: "bye",
			want:  []string{"goodbye"},
		},
		{
			name:  "no match",
			query: "missing",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(tt.query, segments)
			if len(got) != len(tt.want) {
				t.Fatalf("Filter() returned %d segments, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Text != tt.want[i] {
					t.Errorf("segment %d text = %q, want %q", i, got[i].Text, tt.want[i])
				}
			}
		})
	}
}

func TestFilterEmptyQueryReturnsSameSlice(t *testing.T) {
	segments := []Segment{{Text: "a"}, {Text: "b"}}
	got := Filter("", segments)
	if &got[0] != &segments[0] {
		t.Error("Filter(\"\") should return the input slice unchanged")
	}
}
