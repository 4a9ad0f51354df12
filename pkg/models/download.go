package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sonoscribe/sonoscribe/pkg/logger"
)

// DownloadOptions bounds one artifact download.
type DownloadOptions struct {
	// Timeout caps a single download attempt. Zero means no explicit cap.
	Timeout time.Duration
	// Retries is the number of additional attempts after the first failure.
	Retries int
	// Backoff is the wait between attempts, doubled each retry.
	Backoff time.Duration
}

// DefaultDownloadOptions returns the download policy used when the config
// does not override it.
func DefaultDownloadOptions() DownloadOptions {
	return DownloadOptions{
		Timeout: 30 * time.Minute,
		Retries: 2,
		Backoff: 5 * time.Second,
	}
}

// Downloader fetches model artifacts to local storage. It is an interface so
// lifecycle tests can run without the network.
type Downloader interface {
	// Download fetches url into destPath, reporting byte progress as a
	// fraction in [0,1] when the size is known. The write is atomic: the
	// artifact appears at destPath only after a complete fetch.
	Download(ctx context.Context, url, destPath string, onProgress func(float64)) error
}

// HTTPDownloader implements Downloader over plain HTTP with bounded retries.
type HTTPDownloader struct {
	client *http.Client
	opts   DownloadOptions
}

var _ Downloader = (*HTTPDownloader)(nil)

// NewHTTPDownloader creates a downloader with the given policy.
func NewHTTPDownloader(opts DownloadOptions) *HTTPDownloader {
	return &HTTPDownloader{
		client: &http.Client{},
		opts:   opts,
	}
}

// Download fetches url into destPath with retries and atomic rename.
func (d *HTTPDownloader) Download(ctx context.Context, url, destPath string, onProgress func(float64)) error {
	log := logger.WithComponent("model-download").WithField("dest", filepath.Base(destPath))

	backoff := d.opts.Backoff
	var lastErr error
	for attempt := 0; attempt <= d.opts.Retries; attempt++ {
		if attempt > 0 {
			log.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Msg("Retrying model download")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}

		lastErr = d.downloadOnce(ctx, url, destPath, onProgress)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

func (d *HTTPDownloader) downloadOnce(ctx context.Context, url, destPath string, onProgress func(float64)) error {
	attemptCtx := ctx
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed (status %d)", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}

	partialPath := destPath + ".partial"
	out, err := os.Create(partialPath)
	if err != nil {
		return fmt.Errorf("create partial file: %w", err)
	}

	writer := &progressWriter{
		dst:        out,
		total:      resp.ContentLength,
		onProgress: onProgress,
	}
	_, copyErr := io.Copy(writer, resp.Body)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(partialPath)
		if copyErr != nil {
			return fmt.Errorf("download body: %w", copyErr)
		}
		return fmt.Errorf("finish partial file: %w", closeErr)
	}

	if err := os.Rename(partialPath, destPath); err != nil {
		_ = os.Remove(partialPath)
		return fmt.Errorf("finalize artifact: %w", err)
	}
	return nil
}

// progressWriter relays byte counts as a completion fraction.
type progressWriter struct {
	dst        io.Writer
	total      int64
	written    int64
	onProgress func(float64)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	n, err := w.dst.Write(p)
	w.written += int64(n)
	if w.onProgress != nil && w.total > 0 {
		fraction := float64(w.written) / float64(w.total)
		if fraction > 1 {
			fraction = 1
		}
		w.onProgress(fraction)
	}
	return n, err
}
