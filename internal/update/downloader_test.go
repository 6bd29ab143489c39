package update

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"
)

func TestNewHTTPDownloader(t *testing.T) {
	downloader := NewHTTPDownloader()

	if downloader.client == nil {
		t.Fatal("HTTP client should not be nil")
	}
	if downloader.client.Timeout != DefaultDownloadTimeout {
		t.Errorf("client timeout = %v, want %v", downloader.client.Timeout, DefaultDownloadTimeout)
	}
	if downloader.stallTimeout != DefaultStallTimeout {
		t.Errorf("stall timeout = %v, want %v", downloader.stallTimeout, DefaultStallTimeout)
	}

	tuned := NewHTTPDownloader().WithTimeout(time.Minute).WithStallTimeout(time.Second)
	if tuned.client.Timeout != time.Minute || tuned.stallTimeout != time.Second {
		t.Errorf("tuned = %v / %v", tuned.client.Timeout, tuned.stallTimeout)
	}
}

// stallingServer sends headers and a few bytes, then goes silent until the
// client hangs up or the test ends.
func stallingServer(t *testing.T, sendHeaders bool) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sendHeaders {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("partial"))
			w.(http.Flusher).Flush()
		}
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })
	return server
}

func TestHTTPDownloaderDownload_Stalled(t *testing.T) {
	tests := []struct {
		name        string
		sendHeaders bool
	}{
		{"stalls mid-body", true},
		{"never answers", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := stallingServer(t, tt.sendHeaders)
			dstPath := filepath.Join(t.TempDir(), "bundle.tar.gz")

			done := make(chan error, 1)
			go func() {
				done <- NewHTTPDownloader().WithStallTimeout(100*time.Millisecond).
					Download(context.Background(), server.URL, dstPath)
			}()

			select {
			case err := <-done:
				if !errors.Is(err, ErrDownloadStalled) {
					t.Errorf("Download() error = %v, want ErrDownloadStalled", err)
				}
			case <-time.After(10 * time.Second):
				t.Fatal("Download() did not give up on a stalled server")
			}

			if _, err := os.Stat(dstPath); !os.IsNotExist(err) {
				t.Error("File should not exist after stalled download")
			}
			leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(dstPath), ".*.part"))
			if len(leftovers) != 0 {
				t.Errorf("temporary files left behind: %v", leftovers)
			}
		})
	}
}

// A transfer slower than the stall timeout in total, but never silent for
// that long, completes.
func TestHTTPDownloaderDownload_SlowButSteady(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 8; i++ {
			_, _ = w.Write([]byte("x"))
			w.(http.Flusher).Flush()
			time.Sleep(40 * time.Millisecond)
		}
	}))
	defer server.Close()

	dstPath := filepath.Join(t.TempDir(), "bundle.tar.gz")
	err := NewHTTPDownloader().WithStallTimeout(150*time.Millisecond).
		Download(context.Background(), server.URL, dstPath)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if content, _ := os.ReadFile(dstPath); string(content) != "xxxxxxxx" {
		t.Errorf("content = %q", content)
	}
}

func TestHTTPDownloaderDownload_Success(t *testing.T) {
	testContent := []byte("bundle bytes")

	userAgents := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgents <- r.Header.Get("User-Agent")
		_, _ = w.Write(testContent)
	}))
	defer server.Close()

	// Parents are created on demand
	dstPath := filepath.Join(t.TempDir(), "1.3.0", "bundle.tar.gz")

	downloader := NewHTTPDownloader()
	if err := downloader.Download(context.Background(), server.URL, dstPath); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	content, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("Failed to read downloaded file: %v", err)
	}
	if string(content) != string(testContent) {
		t.Errorf("Content mismatch: got %s, want %s", content, testContent)
	}
	if gotUA := <-userAgents; gotUA != UserAgent {
		t.Errorf("User-Agent = %s, want %s", gotUA, UserAgent)
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(dstPath), ".*.part"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestHTTPDownloaderDownload_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dstPath := filepath.Join(t.TempDir(), "bundle.zip")

	downloader := NewHTTPDownloader()
	if err := downloader.Download(context.Background(), server.URL, dstPath); err == nil {
		t.Error("Expected error for 404 response")
	}

	if _, err := os.Stat(dstPath); !os.IsNotExist(err) {
		t.Error("File should not exist after failed download")
	}
}

func TestHTTPDownloaderDownload_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	dstPath := filepath.Join(t.TempDir(), "bundle.zip")

	downloader := NewHTTPDownloader()
	if err := downloader.Download(context.Background(), url, dstPath); err == nil {
		t.Error("Expected error for closed server")
	}
	if _, err := os.Stat(dstPath); !os.IsNotExist(err) {
		t.Error("File should not exist after failed download")
	}
}

func TestHTTPDownloaderDownload_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dstPath := filepath.Join(t.TempDir(), "bundle.zip")
	if err := NewHTTPDownloader().Download(ctx, server.URL, dstPath); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestHTTPDownloaderDownload_InvalidDestination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("test"))
	}))
	defer server.Close()

	// A regular file where a parent directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	downloader := NewHTTPDownloader()
	if err := downloader.Download(context.Background(), server.URL, filepath.Join(blocker, "bundle.zip")); err == nil {
		t.Error("Expected error for invalid destination path")
	}
}

func TestHTTPDownloaderDownload_ConcurrentWritersConverge(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("rename over a file being renamed is not atomic on Windows")
	}
	testContent := []byte("identical bundle bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(testContent)
	}))
	defer server.Close()

	dstPath := filepath.Join(t.TempDir(), "1.3.0", "bundle.tar.gz")
	downloader := NewHTTPDownloader()

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- downloader.Download(context.Background(), server.URL, dstPath)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Download() error = %v", err)
		}
	}

	content, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != string(testContent) {
		t.Errorf("Content mismatch: got %s", content)
	}
}
