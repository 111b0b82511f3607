package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"uploadqueue/internal/logger"
	"uploadqueue/internal/store"
)

// ResultURL is the public watch URL of an uploaded video.
func ResultURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// reconcile records a confirmed upload: the job's UPLOADED transition, the
// video with its act and performer links, and the quota increment commit
// together or not at all. It runs to completion even if ctx is cancelled,
// since the upload it records has already happened.
func (p *Processor) reconcile(ctx context.Context, job *store.QueueJob, videoID string) (resultURL string, err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.config.ReconcileTimeout)
	defer cancel()

	resultURL = ResultURL(videoID)

	tx, err := p.store.BeginTx(ctx)
	if err != nil {
		return "", err
	}
	// Roll back on every exit short of a commit, panics included.
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.FromContext(ctx, p.logger).Error("rollback failed", "error", rbErr)
		}
	}()

	if err = p.store.MarkUploaded(ctx, tx, job.ID, resultURL); err != nil {
		return "", err
	}

	video := &store.VideoRecord{
		YouTubeURL:   resultURL,
		YouTubeID:    videoID,
		Title:        job.Title,
		Year:         job.Year,
		Description:  job.Description,
		ShowType:     job.ShowType,
		UploaderID:   job.UploaderID,
		ActIDs:       job.ActIDs,
		PerformerIDs: job.PerformerIDs,
	}
	if err = p.store.CreateVideo(ctx, tx, video); err != nil {
		return "", err
	}

	if err = p.store.IncrementDailyCount(ctx, tx, p.now()); err != nil {
		return "", err
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	committed = true
	return resultURL, nil
}
