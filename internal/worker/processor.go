// Package worker runs the upload queue: quota check, claim, and per-job fetch, upload and reconcile.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"uploadqueue/internal/logger"
	"uploadqueue/internal/media"
	"uploadqueue/internal/metadata"
	"uploadqueue/internal/store"
	"uploadqueue/internal/upload"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "uploadqueue-worker"

// MediaFetcher moves source media between blob storage and scratch files.
type MediaFetcher interface {
	Fetch(ctx context.Context, sourceURL, suggestedName string) (string, error)
	Release(ctx context.Context, localPath string)
	DeleteRemote(ctx context.Context, sourceURL string) error
}

// ProcessorConfig holds the settings of a run.
type ProcessorConfig struct {
	DailyLimit int
	CategoryID string
	Privacy    upload.Privacy

	// ReconcileTimeout bounds the database writes after a successful upload (default: 30s).
	ReconcileTimeout time.Duration
}

// Summary reports the outcome of one run.
type Summary struct {
	Capacity  int
	Processed int
	Succeeded int
	Failed    int
}

type outcome string

const (
	outcomeSucceeded   outcome = "succeeded"
	outcomeFailed      outcome = "failed"
	outcomeInterrupted outcome = "interrupted"
)

// Processor drains the upload queue once per call to Run.
type Processor struct {
	store     store.Store
	fetcher   MediaFetcher
	connector upload.Connector
	config    ProcessorConfig
	logger    *slog.Logger
	now       func() time.Time

	jobsProcessed metric.Int64Counter
	jobDuration   metric.Float64Histogram
}

// NewProcessor creates a processor.
func NewProcessor(s store.Store, f MediaFetcher, c upload.Connector, config ProcessorConfig, log *slog.Logger) *Processor {
	if config.ReconcileTimeout <= 0 {
		config.ReconcileTimeout = 30 * time.Second
	}
	if config.CategoryID == "" {
		config.CategoryID = "22"
	}
	if config.Privacy == "" {
		config.Privacy = upload.PrivacyUnlisted
	}
	if log == nil {
		log = logger.Discard()
	}

	meter := otel.Meter(tracerName)
	jobsProcessed, _ := meter.Int64Counter("upload_jobs_processed_total",
		metric.WithDescription("Queue jobs processed, by outcome"))
	jobDuration, _ := meter.Float64Histogram("upload_job_duration_seconds",
		metric.WithDescription("Time spent on one queue job"),
		metric.WithUnit("s"))

	return &Processor{
		store:         s,
		fetcher:       f,
		connector:     c,
		config:        config,
		logger:        log,
		now:           time.Now,
		jobsProcessed: jobsProcessed,
		jobDuration:   jobDuration,
	}
}

// Run performs one pass over the queue. It returns an error only for failures
// above the job boundary: quota read, claim, name lookups, authentication and
// cancellation. Individual job failures are recorded and counted.
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	ctx = logger.WithRunID(ctx, uuid.NewString())
	log := logger.FromContext(ctx, p.logger)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "process_queue")
	defer span.End()

	var summary Summary

	count, err := p.store.GetDailyCount(ctx, store.Day(p.now()))
	if err != nil {
		return summary, p.abort(span, fmt.Errorf("read daily upload count: %w", err))
	}

	summary.Capacity = p.config.DailyLimit - count
	span.SetAttributes(
		attribute.Int("quota.limit", p.config.DailyLimit),
		attribute.Int("quota.used", count),
	)
	if summary.Capacity <= 0 {
		log.Info("daily upload limit reached", "limit", p.config.DailyLimit, "count", count)
		summary.Capacity = 0
		return summary, nil
	}

	jobs, err := p.store.ClaimPending(ctx, summary.Capacity)
	if err != nil {
		return summary, p.abort(span, fmt.Errorf("claim pending jobs: %w", err))
	}
	if len(jobs) == 0 {
		log.Info("no pending jobs", "capacity", summary.Capacity)
		return summary, nil
	}
	log.Info("claimed jobs", "count", len(jobs), "capacity", summary.Capacity)

	actNames, err := p.store.ResolveActNames(ctx, collectIDs(jobs, func(j *store.QueueJob) []string { return j.ActIDs }))
	if err != nil {
		return summary, p.abort(span, fmt.Errorf("resolve act names: %w", err))
	}
	userNames, err := p.store.ResolveUserNames(ctx, collectIDs(jobs, func(j *store.QueueJob) []string { return j.PerformerIDs }))
	if err != nil {
		return summary, p.abort(span, fmt.Errorf("resolve performer names: %w", err))
	}

	uploader, err := p.connector.Connect(ctx)
	if err != nil {
		return summary, p.abort(span, fmt.Errorf("authenticate: %w", err))
	}

	for i := range jobs {
		if err := ctx.Err(); err != nil {
			log.Warn("run interrupted, remaining jobs stay pending", "remaining", len(jobs)-i)
			return summary, p.abort(span, fmt.Errorf("run interrupted: %w", err))
		}

		switch p.processJob(ctx, uploader, &jobs[i], actNames, userNames) {
		case outcomeSucceeded:
			summary.Processed++
			summary.Succeeded++
		case outcomeFailed:
			summary.Processed++
			summary.Failed++
		case outcomeInterrupted:
			log.Warn("run interrupted, remaining jobs stay pending", "remaining", len(jobs)-i)
			return summary, p.abort(span, fmt.Errorf("run interrupted: %w", context.Cause(ctx)))
		}
	}

	log.Info("run complete",
		"processed", summary.Processed,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (p *Processor) abort(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// processJob handles one job end to end. The scratch file is released on every path.
func (p *Processor) processJob(ctx context.Context, uploader upload.Uploader, job *store.QueueJob, actNames, userNames map[string]string) (result outcome) {
	ctx = logger.WithJobID(ctx, job.ID)
	log := logger.FromContext(ctx, p.logger)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "process_job",
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("job.file_name", job.FileName),
			attribute.Int("job.year", job.Year),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		attrs := metric.WithAttributes(attribute.String("outcome", string(result)))
		p.jobsProcessed.Add(ctx, 1, attrs)
		p.jobDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}()

	var localPath string
	defer func() {
		if localPath != "" {
			p.fetcher.Release(ctx, localPath)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			result = p.recordFailure(ctx, job, fmt.Sprintf("Processing error: panic: %v", r))
		}
	}()

	log.Info("processing job", "title", job.Title, "uploader", job.UploaderName())

	var err error
	localPath, err = p.fetcher.Fetch(ctx, job.BlobURL, job.FileName)
	if err != nil {
		return p.fail(ctx, job, fmt.Errorf("fetch source: %w", err))
	}

	meta := metadata.For(job, actNames, userNames)
	videoID, err := uploader.Upload(ctx, upload.Request{
		FilePath:    localPath,
		Title:       meta.Title,
		Description: meta.Description,
		CategoryID:  p.config.CategoryID,
		Privacy:     p.config.Privacy,
		Tags:        meta.Tags,
	})
	if err != nil {
		return p.fail(ctx, job, err)
	}
	if videoID == "" {
		return p.recordFailure(ctx, job, "Upload failed - no video ID returned")
	}

	resultURL, err := p.reconcile(ctx, job, videoID)
	if err != nil {
		// The video exists remotely; keep its URL in the message for manual follow-up.
		return p.recordFailure(ctx, job, fmt.Sprintf("Reconcile error: uploaded as %s but not recorded: %v", ResultURL(videoID), err))
	}

	log.Info("job uploaded", "url", resultURL)
	span.SetAttributes(attribute.String("video.id", videoID))

	p.deleteSource(ctx, job)
	return outcomeSucceeded
}

// fail records a processing error. A job stopped by cancellation before any
// durable write is left PENDING instead.
func (p *Processor) fail(ctx context.Context, job *store.QueueJob, cause error) outcome {
	if ctx.Err() != nil && errors.Is(cause, ctx.Err()) {
		logger.FromContext(ctx, p.logger).Warn("job interrupted, left pending", "error", cause)
		trace.SpanFromContext(ctx).RecordError(cause)
		return outcomeInterrupted
	}
	return p.recordFailure(ctx, job, "Processing error: "+cause.Error())
}

// recordFailure moves the job to FAILED. The write is not tied to ctx cancellation.
func (p *Processor) recordFailure(ctx context.Context, job *store.QueueJob, message string) outcome {
	log := logger.FromContext(ctx, p.logger)
	span := trace.SpanFromContext(ctx)
	span.SetStatus(codes.Error, message)

	log.Error("job failed", "error", message)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.config.ReconcileTimeout)
	defer cancel()

	if err := p.store.MarkFailed(writeCtx, nil, job.ID, message); err != nil {
		log.Error("failed to record job failure", "error", err)
	}
	return outcomeFailed
}

func (p *Processor) deleteSource(ctx context.Context, job *store.QueueJob) {
	log := logger.FromContext(ctx, p.logger)

	err := p.fetcher.DeleteRemote(context.WithoutCancel(ctx), job.BlobURL)
	switch {
	case errors.Is(err, media.ErrDeleteDisabled):
		log.Warn("blob token not configured, source blob kept", "blob_url", job.BlobURL)
	case err != nil:
		log.Warn("failed to delete source blob", "blob_url", job.BlobURL, "error", err)
	default:
		log.Info("source blob deleted", "blob_url", job.BlobURL)
	}
}

// collectIDs returns the distinct IDs referenced by jobs, in first-seen order.
func collectIDs(jobs []store.QueueJob, ids func(*store.QueueJob) []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range jobs {
		for _, id := range ids(&jobs[i]) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
