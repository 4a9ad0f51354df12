// Package media classifies input files and normalizes them into a decodable
// audio stream for the recognition engine.
package media

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Kind classifies an input file by its container type.
type Kind int

const (
	// KindAudio is a pure audio container.
	KindAudio Kind = iota
	// KindVideo is a video container whose audio track must be extracted.
	KindVideo
)

// Error taxonomy surfaced by ingestion.
var (
	// ErrUnsupportedFormat is returned for extensions outside the supported
	// audio/video table.
	ErrUnsupportedFormat = errors.New("unsupported media format")
	// ErrAudioFileLoadFailed is returned when container metadata cannot be read.
	ErrAudioFileLoadFailed = errors.New("failed to load audio file")
	// ErrExtractAudioFailed is returned when audio-track extraction fails or the
	// container carries no audio stream.
	ErrExtractAudioFailed = errors.New("failed to extract audio track")
	// ErrFileAccessDenied is returned when a scoped access grant cannot be
	// obtained. Access scoping is best-effort and this error is rarely fatal.
	ErrFileAccessDenied = errors.New("file access denied")
)

// audioExtensions and videoExtensions form the fixed supported-format table.
var (
	audioExtensions = map[string]struct{}{
		".mp3": {}, ".wav": {}, ".aac": {}, ".flac": {}, ".m4a": {},
	}
	videoExtensions = map[string]struct{}{
		".mp4": {}, ".mov": {}, ".m4v": {}, ".avi": {}, ".mkv": {}, ".webm": {}, ".flv": {},
	}
)

// ResolveKind classifies path by extension against the supported table.
func ResolveKind(path string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := audioExtensions[ext]; ok {
		return KindAudio, nil
	}
	if _, ok := videoExtensions[ext]; ok {
		return KindVideo, nil
	}
	return 0, ErrUnsupportedFormat
}

// IsSupported reports whether path has a supported audio or video extension.
func IsSupported(path string) bool {
	_, err := ResolveKind(path)
	return err == nil
}

// SupportedExtensions returns every supported extension, audio first, without
// leading dots.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(audioExtensions)+len(videoExtensions))
	for _, ext := range []string{".mp3", ".wav", ".aac", ".flac", ".m4a"} {
		exts = append(exts, strings.TrimPrefix(ext, "."))
	}
	for _, ext := range []string{".mp4", ".mov", ".m4v", ".avi", ".mkv", ".webm", ".flv"} {
		exts = append(exts, strings.TrimPrefix(ext, "."))
	}
	return exts
}

// File is the currently loaded media file reference.
type File struct {
	// Path is the local, session-owned copy of the source file.
	Path string
	// Duration is the container's total duration.
	Duration time.Duration
	// IsVideo reports whether the source was a video container.
	IsVideo bool
}

// Close removes the session-owned copy. Best-effort: a missing file is not an
// error.
func (f *File) Close() error {
	if f == nil || f.Path == "" {
		return nil
	}
	err := os.Remove(f.Path)
	f.Path = ""
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
