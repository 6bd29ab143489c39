package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Download bounds. The stall timeout aborts a transfer that stops making
// progress; the overall timeout caps a slow but steady one.
const (
	DefaultDownloadTimeout = 10 * time.Minute
	DefaultStallTimeout    = DefaultRequestTimeout
)

// ErrDownloadStalled is returned when no bytes arrive within the stall timeout.
var ErrDownloadStalled = errors.New("download stalled")

// HTTPDownloader downloads release bundles over HTTP
type HTTPDownloader struct {
	client       *http.Client
	stallTimeout time.Duration
}

// NewHTTPDownloader creates a downloader with the default bounds.
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{
		client:       &http.Client{Timeout: DefaultDownloadTimeout},
		stallTimeout: DefaultStallTimeout,
	}
}

// WithHTTPClient replaces the underlying client
func (d *HTTPDownloader) WithHTTPClient(client *http.Client) *HTTPDownloader {
	if client != nil {
		d.client = client
	}
	return d
}

// WithTimeout caps the whole transfer, headers and body included.
func (d *HTTPDownloader) WithTimeout(timeout time.Duration) *HTTPDownloader {
	if timeout > 0 {
		c := *d.client
		c.Timeout = timeout
		d.client = &c
	}
	return d
}

// WithStallTimeout sets how long the transfer may go without receiving bytes.
func (d *HTTPDownloader) WithStallTimeout(timeout time.Duration) *HTTPDownloader {
	if timeout > 0 {
		d.stallTimeout = timeout
	}
	return d
}

// Download streams url to dst, creating parent directories. Bytes land in a
// temporary sibling first and are renamed into place, so a failed download
// never leaves a partial file at dst.
func (d *HTTPDownloader) Download(ctx context.Context, url, dst string) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// Re-armed on every read; fires only when the transfer stops progressing
	watchdog := time.AfterFunc(d.stallTimeout, func() { cancel(ErrDownloadStalled) })
	defer watchdog.Stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, stallCause(ctx, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	body := &progressReader{r: resp.Body, timer: watchdog, timeout: d.stallTimeout}
	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write bundle: %w", stallCause(ctx, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write bundle: %w", err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move bundle into place: %w", err)
	}

	return nil
}

// progressReader re-arms the stall timer whenever bytes arrive.
type progressReader struct {
	r       io.Reader
	timer   *time.Timer
	timeout time.Duration
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.timer.Reset(p.timeout)
	}
	return n, err
}

// stallCause reports ErrDownloadStalled in place of the bare cancellation
// error when the watchdog ended the transfer.
func stallCause(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); errors.Is(cause, ErrDownloadStalled) {
		return fmt.Errorf("%w: %w", ErrDownloadStalled, err)
	}
	return err
}
