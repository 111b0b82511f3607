// Package media moves source videos between blob storage and the local scratch directory.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"uploadqueue/internal/logger"

	"golang.org/x/time/rate"
)

// ErrDeleteDisabled is returned by DeleteRemote when no blob token is configured.
var ErrDeleteDisabled = errors.New("blob deletion disabled: no token configured")

// ErrStalled is returned by Fetch when the source sends nothing for DownloadTimeout.
var ErrStalled = errors.New("download stalled")

const (
	chunkSize        = 1024 * 1024
	defaultExtension = ".mp4"
)

// Config holds the settings of a Fetcher.
type Config struct {
	ScratchDir      string
	DownloadTimeout time.Duration
	DeleteTimeout   time.Duration

	// BlobToken authorizes remote deletes. Empty disables them.
	BlobToken     string
	BlobDeleteURL string

	// ProgressInterval throttles progress logging (default: 5s).
	ProgressInterval time.Duration
}

// Fetcher downloads blobs to scratch files and deletes them remotely after use.
type Fetcher struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a fetcher. A nil client selects http.DefaultClient.
func New(config Config, client *http.Client, log *slog.Logger) *Fetcher {
	if config.ScratchDir == "" {
		config.ScratchDir = os.TempDir()
	}
	if config.DownloadTimeout <= 0 {
		config.DownloadTimeout = 300 * time.Second
	}
	if config.DeleteTimeout <= 0 {
		config.DeleteTimeout = 30 * time.Second
	}
	if config.ProgressInterval <= 0 {
		config.ProgressInterval = 5 * time.Second
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Fetcher{config: config, client: client, logger: log}
}

// Fetch streams sourceURL into a new scratch file and returns its path.
// The file keeps the extension of suggestedName (".mp4" if it has none).
// DownloadTimeout bounds each wait for data, from the response headers to
// every read of the body, so a slow but steady transfer never times out.
// On any failure the partial file is removed.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL, suggestedName string) (localPath string, err error) {
	log := logger.FromContext(ctx, f.logger)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stalled := fmt.Errorf("%w: no data for %s", ErrStalled, f.config.DownloadTimeout)
	idle := time.AfterFunc(f.config.DownloadTimeout, func() { cancel(stalled) })
	defer idle.Stop()

	// The client reports its own cancellation; surface the stall instead.
	cause := func(err error) error {
		if c := context.Cause(ctx); errors.Is(c, ErrStalled) {
			return c
		}
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", sourceURL, cause(err))
	}
	defer resp.Body.Close()
	idle.Reset(f.config.DownloadTimeout)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %d", sourceURL, resp.StatusCode)
	}

	out, err := os.CreateTemp(f.config.ScratchDir, "upload-*"+Extension(suggestedName))
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close scratch file: %w", cerr)
		}
		if err != nil {
			os.Remove(out.Name())
			localPath = ""
		}
	}()

	total := resp.ContentLength
	progressLog := rate.Sometimes{Interval: f.config.ProgressInterval}
	buf := make([]byte, chunkSize)
	var written int64

	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return "", fmt.Errorf("write scratch file: %w", werr)
			}
			written += int64(n)
			idle.Reset(f.config.DownloadTimeout)
			if total > 0 {
				progressLog.Do(func() {
					log.Info("download progress", "percent", written*100/total, "bytes", written, "total", total)
				})
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", fmt.Errorf("read %s: %w", sourceURL, cause(rerr))
		}
	}

	if total > 0 && written != total {
		return "", fmt.Errorf("download %s: got %d of %d bytes", sourceURL, written, total)
	}

	log.Info("download complete", "path", out.Name(), "bytes", written)
	return out.Name(), nil
}

// Release removes a scratch file. Failures are logged, never returned.
func (f *Fetcher) Release(ctx context.Context, localPath string) {
	if localPath == "" {
		return
	}
	if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.FromContext(ctx, f.logger).Warn("failed to remove scratch file", "path", localPath, "error", err)
	}
}

type deleteRequest struct {
	URLs []string `json:"urls"`
}

// DeleteRemote asks blob storage to delete sourceURL.
// Callers treat the result as advisory; it never changes a job's outcome.
func (f *Fetcher) DeleteRemote(ctx context.Context, sourceURL string) error {
	if f.config.BlobToken == "" {
		return ErrDeleteDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, f.config.DeleteTimeout)
	defer cancel()

	body, err := json.Marshal(deleteRequest{URLs: []string{sourceURL}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.config.BlobDeleteURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.config.BlobToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delete blob: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Extension returns the extension of name, or ".mp4" if it has none.
func Extension(name string) string {
	// Names may be URL paths or local file names.
	ext := path.Ext(filepath.Base(strings.TrimSpace(name)))
	if ext == "" || ext == "." {
		return defaultExtension
	}
	return ext
}
