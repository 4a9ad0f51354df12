package models

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHTTPDownloaderDownload(t *testing.T) {
	payload := []byte("model artifact bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "20")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()
	destPath := filepath.Join(dir, "sub", "ggml-base.bin")

	var fractions []float64
	dl := NewHTTPDownloader(DownloadOptions{Timeout: 10 * time.Second})
	err := dl.Download(context.Background(), server.URL, destPath, func(fraction float64) {
		fractions = append(fractions, fraction)
	})
	if err != nil {
		t.Fatalf("Download() failed: %v", err)
	}

	data, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("Failed to read artifact: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("artifact content = %q, want %q", data, payload)
	}

	if len(fractions) == 0 {
		t.Fatal("no progress reported")
	}
	if last := fractions[len(fractions)-1]; last != 1 {
		t.Errorf("final progress = %v, want 1", last)
	}

	if _, err := os.Stat(destPath + ".partial"); !os.IsNotExist(err) {
		t.Error("partial file should be gone after a successful download")
	}
}

func TestHTTPDownloaderRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "ggml-base.bin")
	dl := NewHTTPDownloader(DownloadOptions{Retries: 2, Backoff: time.Millisecond})

	if err := dl.Download(context.Background(), server.URL, destPath, nil); err != nil {
		t.Fatalf("Download() failed: %v", err)
	}
	if attempts != 2 {
		t.Errorf("server saw %d attempts, want 2", attempts)
	}
}

func TestHTTPDownloaderGivesUpAfterRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "ggml-base.bin")
	dl := NewHTTPDownloader(DownloadOptions{Retries: 1, Backoff: time.Millisecond})

	if err := dl.Download(context.Background(), server.URL, destPath, nil); err == nil {
		t.Fatal("Download() should fail after exhausting retries")
	}
	if attempts != 2 {
		t.Errorf("server saw %d attempts, want 2", attempts)
	}
	if _, err := os.Stat(destPath); !os.IsNotExist(err) {
		t.Error("no artifact should exist after a failed download")
	}
}

func TestHTTPDownloaderHonorsCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	destPath := filepath.Join(t.TempDir(), "ggml-base.bin")
	dl := NewHTTPDownloader(DownloadOptions{Retries: 5, Backoff: time.Hour})

	err := dl.Download(ctx, server.URL, destPath, nil)
	if err == nil {
		t.Fatal("Download() should fail with a cancelled context")
	}
	if err != context.Canceled {
		t.Errorf("Download() error = %v, want context.Canceled", err)
	}
}

func TestVariantURL(t *testing.T) {
	tests := []struct {
		name string
		repo string
		want string
	}{
		{
			name: "explicit repo",
			repo: "ggerganov/whisper.cpp",
			want: "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
		},
		{
			name: "empty repo falls back to default",
			repo: "",
			want: "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			variant, ok := Lookup("base")
			if !ok {
				t.Fatal("base variant missing from catalog")
			}
			if got := variant.URL(tt.repo); got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}
