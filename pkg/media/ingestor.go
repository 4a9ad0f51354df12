package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/sonoscribe/sonoscribe/pkg/logger"
)

// Ingestor resolves media metadata and normalizes inputs into decodable audio.
type Ingestor interface {
	// Duration reads container metadata and reports the total duration.
	Duration(ctx context.Context, path string) (time.Duration, error)

	// ExtractAudio produces a standalone audio-only temporary file from a
	// video container. The caller owns the returned path and must delete it
	// after use.
	ExtractAudio(ctx context.Context, videoPath string) (string, error)

	// SecureCopy copies a user-picked file into the scratch directory,
	// bracketing the copy with access-scope hooks. The caller owns the copy.
	SecureCopy(ctx context.Context, path string) (string, error)

	// Load resolves a full File reference for path: secure copy, kind
	// classification, and duration.
	Load(ctx context.Context, path string) (*File, error)
}

// FFmpegIngestor implements Ingestor with ffmpeg/ffprobe.
type FFmpegIngestor struct {
	scratchDir string
}

var _ Ingestor = (*FFmpegIngestor)(nil)

// NewIngestor creates an ingestor writing temporaries under scratchDir.
func NewIngestor(scratchDir string) *FFmpegIngestor {
	if scratchDir == "" {
		scratchDir = filepath.Join(os.TempDir(), "sonoscribe")
	}
	return &FFmpegIngestor{scratchDir: scratchDir}
}

// probeFormat mirrors the ffprobe JSON fields ingestion needs.
type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
}

// Duration reads container metadata and reports the total duration.
func (in *FFmpegIngestor) Duration(ctx context.Context, path string) (time.Duration, error) {
	probe, err := in.probe(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrAudioFileLoadFailed, err)
	}

	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unreadable duration %q", ErrAudioFileLoadFailed, probe.Format.Duration)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// ExtractAudio exports the audio track of a video container to a temporary
// 16 kHz mono WAV file, the input format the recognition engine expects.
// Partial output is removed on every failure path.
func (in *FFmpegIngestor) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	log := logger.WithComponent("ingestor").WithField("file", filepath.Base(videoPath))

	probe, err := in.probe(videoPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrExtractAudioFailed, err)
	}
	hasAudio := false
	for _, stream := range probe.Streams {
		if stream.CodecType == "audio" {
			hasAudio = true
			break
		}
	}
	if !hasAudio {
		return "", fmt.Errorf("%w: no audio track in container", ErrExtractAudioFailed)
	}

	if err := os.MkdirAll(in.scratchDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %s", ErrExtractAudioFailed, err)
	}
	outPath := filepath.Join(in.scratchDir, fmt.Sprintf("extract_%d.wav", time.Now().UnixNano()))

	log.Info().Str("output", outPath).Msg("Extracting audio track")

	err = ffmpeg.Input(videoPath).
		Output(outPath, ffmpeg.KwArgs{
			"vn":     "",
			"acodec": "pcm_s16le",
			"ar":     "16000",
			"ac":     "1",
		}).
		OverWriteOutput().
		Silent(true).
		Run()
	if err != nil {
		_ = os.Remove(outPath)
		return "", fmt.Errorf("%w: %s", ErrExtractAudioFailed, err)
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("%w: output file was not created", ErrExtractAudioFailed)
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(outPath)
		return "", err
	}

	return outPath, nil
}

// SecureCopy copies path into the scratch directory. The begin/end access
// bracket mirrors sandboxed file-picker grants; on this platform the grant is
// a no-op and the copy is always attempted.
func (in *FFmpegIngestor) SecureCopy(ctx context.Context, path string) (string, error) {
	release, err := beginScopedAccess(path)
	if err != nil {
		logger.WithComponent("ingestor").WithError(err).Warn().Msg("Scoped access grant unavailable, copying anyway")
	}
	defer release()

	if err := os.MkdirAll(in.scratchDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %s", ErrAudioFileLoadFailed, err)
	}

	src, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return "", fmt.Errorf("%w: %s", ErrFileAccessDenied, err)
		}
		return "", fmt.Errorf("%w: %s", ErrAudioFileLoadFailed, err)
	}
	defer func() {
		_ = src.Close()
	}()

	dstPath := filepath.Join(in.scratchDir, filepath.Base(path))
	_ = os.Remove(dstPath)

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrAudioFileLoadFailed, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("%w: %s", ErrAudioFileLoadFailed, err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("%w: %s", ErrAudioFileLoadFailed, err)
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(dstPath)
		return "", err
	}

	return dstPath, nil
}

// Load resolves a full File reference for path.
func (in *FFmpegIngestor) Load(ctx context.Context, path string) (*File, error) {
	kind, err := ResolveKind(path)
	if err != nil {
		return nil, err
	}

	localPath, err := in.SecureCopy(ctx, path)
	if err != nil {
		return nil, err
	}

	duration, err := in.Duration(ctx, localPath)
	if err != nil {
		_ = os.Remove(localPath)
		return nil, err
	}

	return &File{
		Path:     localPath,
		Duration: duration,
		IsVideo:  kind == KindVideo,
	}, nil
}

func (in *FFmpegIngestor) probe(path string) (*probeFormat, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	raw, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, err
	}

	var probe probeFormat
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, fmt.Errorf("parse probe JSON: %w", err)
	}
	return &probe, nil
}

// beginScopedAccess requests a security-scoped access grant for path and
// returns its release func. There is no sandbox grant API on this platform,
// so the grant always succeeds as a no-op; the bracket is kept so the copy
// path matches the contract on platforms that do enforce one.
func beginScopedAccess(string) (release func(), err error) {
	return func() {}, nil
}
