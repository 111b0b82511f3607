package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"uploadqueue/internal/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

// ErrFileNotFound is returned when the local file is missing. It is never retried.
var ErrFileNotFound = errors.New("local file not found")

// Error is a failed upload together with the number of retries spent on it.
type Error struct {
	Class   Class
	Retries int
	Err     error
}

func (e *Error) Error() string {
	if e.Retries > 0 {
		return fmt.Sprintf("upload failed after %d retries: %v", e.Retries, e.Err)
	}
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// EngineConfig holds the retry policy of the engine.
type EngineConfig struct {
	MaxRetries int

	// Sleep waits between attempts. Defaults to SleepContext.
	Sleep func(ctx context.Context, d time.Duration) error

	// Jitter returns a value in [0, 1). Defaults to math/rand.
	Jitter func() float64

	// ProgressInterval throttles progress logging (default: 5s).
	ProgressInterval time.Duration
}

// Engine runs a resumable upload to completion, retrying transient failures.
type Engine struct {
	transport Transport
	config    EngineConfig
	logger    *slog.Logger

	retries metric.Int64Counter
	bytes   metric.Int64Counter
}

var _ Uploader = (*Engine)(nil)

// NewEngine creates an engine on top of transport.
func NewEngine(transport Transport, config EngineConfig, log *slog.Logger) *Engine {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.Sleep == nil {
		config.Sleep = SleepContext
	}
	if config.Jitter == nil {
		config.Jitter = rand.Float64
	}
	if config.ProgressInterval <= 0 {
		config.ProgressInterval = 5 * time.Second
	}
	if log == nil {
		log = logger.Discard()
	}

	meter := otel.Meter("uploadqueue-upload")
	retries, _ := meter.Int64Counter("upload_retries_total",
		metric.WithDescription("Retries of transient upload failures"))
	bytes, _ := meter.Int64Counter("upload_bytes_total",
		metric.WithDescription("Bytes acknowledged by the video platform"),
		metric.WithUnit("By"))

	return &Engine{
		transport: transport,
		config:    config,
		logger:    log,
		retries:   retries,
		bytes:     bytes,
	}
}

// Upload sends req.FilePath and returns the remote video ID.
// It persists nothing; the caller records the outcome.
func (e *Engine) Upload(ctx context.Context, req Request) (string, error) {
	log := logger.FromContext(ctx, e.logger)

	if _, err := os.Stat(req.FilePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &Error{Class: Fatal, Err: fmt.Errorf("%w: %s", ErrFileNotFound, req.FilePath)}
		}
		return "", &Error{Class: Fatal, Err: fmt.Errorf("stat %s: %w", req.FilePath, err)}
	}

	session, err := e.transport.Open(ctx, req)
	if err != nil {
		return "", &Error{Class: Fatal, Err: fmt.Errorf("open upload session: %w", err)}
	}
	defer session.Close()

	progressLog := rate.Sometimes{Interval: e.config.ProgressInterval}
	var acked int64
	attempt := 0

	for {
		progress, videoID, err := session.Next(ctx)
		if err == nil {
			if progress.Sent > acked {
				e.bytes.Add(ctx, progress.Sent-acked)
				acked = progress.Sent
			}
			if videoID != "" {
				log.Info("upload complete", "video_id", videoID, "bytes", progress.Total, "retries", attempt)
				return videoID, nil
			}
			progressLog.Do(func() {
				log.Info("upload progress", "percent", percent(progress), "sent", progress.Sent, "total", progress.Total)
			})
			continue
		}

		class := Classify(err)
		if class == Fatal {
			return "", &Error{Class: Fatal, Retries: attempt, Err: err}
		}
		if attempt >= e.config.MaxRetries {
			return "", &Error{Class: Retriable, Retries: attempt, Err: fmt.Errorf("retries exhausted: %w", err)}
		}

		attempt++
		wait := Backoff(attempt, e.config.Jitter())
		e.retries.Add(ctx, 1, metric.WithAttributes(attribute.Int("attempt", attempt)))
		log.Warn("retriable upload error",
			"error", err,
			"attempt", attempt,
			"max_retries", e.config.MaxRetries,
			"backoff", wait.String(),
		)

		if err := e.config.Sleep(ctx, wait); err != nil {
			return "", &Error{Class: Fatal, Retries: attempt, Err: fmt.Errorf("interrupted during backoff: %w", err)}
		}
	}
}

func percent(p Progress) int {
	if p.Total <= 0 {
		return 0
	}
	return int(p.Sent * 100 / p.Total)
}
