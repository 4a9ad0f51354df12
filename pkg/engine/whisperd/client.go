// Package whisperd implements the engine contract against a local
// whisper.cpp server (whisper-server) over HTTP.
package whisperd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sonoscribe/sonoscribe/pkg/engine"
	"github.com/sonoscribe/sonoscribe/pkg/logger"
)

// DefaultBaseURL is where whisper-server listens when started with defaults.
const DefaultBaseURL = "http://127.0.0.1:8080"

// Client talks to a whisper.cpp whisper-server instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ engine.Engine = (*Client)(nil)

// NewClient creates a client for the whisper.cpp server at baseURL.
func NewClient(baseURL string, requestTimeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if requestTimeout <= 0 {
		// Recognition of long files can run for a very long time.
		requestTimeout = 30 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Load switches the served model to the given artifact.
func (c *Client) Load(ctx context.Context, cfg engine.ModelConfig) error {
	log := logger.WithComponent("whisperd").WithField("model", cfg.Name)

	form := url.Values{}
	form.Set("model", cfg.Path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/load", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create load request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("load model request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("load model failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	log.Info().Str("path", cfg.Path).Msg("Model loaded by whisper-server")
	return nil
}

// inferenceResponse mirrors whisper-server's verbose_json output.
type inferenceResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

// Transcribe runs one recognition call over the audio file at audioPath.
//
// The server processes the whole file in a single request, so progress is
// reported at coarse request milestones rather than per decoded second.
func (c *Client) Transcribe(ctx context.Context, audioPath string, opts engine.DecodeOptions, onProgress engine.ProgressFunc) ([]engine.RawSegment, error) {
	log := logger.WithComponent("whisperd").WithField("file", filepath.Base(audioPath))

	report := func(fraction float64) {
		if onProgress != nil {
			onProgress(fraction)
		}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	audioFile, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer func() {
		_ = audioFile.Close()
	}()

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, audioFile); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	_ = writer.WriteField("response_format", "verbose_json")
	_ = writer.WriteField("temperature", fmt.Sprintf("%.1f", opts.Temperature))
	if opts.Language != "" && opts.Language != "auto" {
		_ = writer.WriteField("language", opts.Language)
	}
	if opts.ChunkStrategy == engine.ChunkVAD {
		_ = writer.WriteField("vad", "true")
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize form: %w", err)
	}

	report(0.05)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/inference", &buf)
	if err != nil {
		return nil, fmt.Errorf("create inference request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	log.Debug().Str("language", opts.Language).Str("chunking", string(opts.ChunkStrategy)).Msg("Sending inference request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	report(0.9)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read inference response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed inferenceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse inference response: %w", err)
	}

	raw := make([]engine.RawSegment, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		raw = append(raw, engine.RawSegment{
			Text:  seg.Text,
			Start: time.Duration(seg.Start * float64(time.Second)),
			End:   time.Duration(seg.End * float64(time.Second)),
		})
	}

	report(1.0)
	log.Debug().Int("segments", len(raw)).Msg("Inference response parsed")

	return raw, nil
}

// ClearState flushes partial decode state. The server decodes each request
// independently, so there is nothing to flush beyond idle connections.
func (c *Client) ClearState(ctx context.Context) error {
	c.httpClient.CloseIdleConnections()
	return ctx.Err()
}

// Close releases the engine handle.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
