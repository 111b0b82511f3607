package postgres

import (
	"context"
	"fmt"

	"uploadqueue/internal/store"

	"github.com/google/uuid"
)

// CreateVideo inserts the video row and its act and performer links.
// Callers pass a transaction so the bundle commits together with the queue transition.
func (s *Store) CreateVideo(ctx context.Context, tx store.DBTransaction, video *store.VideoRecord) error {
	executor := s.getExecutor(tx)

	if video.ID == "" {
		video.ID = uuid.NewString()
	}

	_, err := executor.ExecContext(ctx, `
		INSERT INTO videos (
			id, youtube_url, youtube_id, title, year, description,
			show_type, uploader_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`,
		video.ID,
		video.YouTubeURL,
		video.YouTubeID,
		video.Title,
		video.Year,
		video.Description,
		video.ShowType,
		video.UploaderID,
	)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}

	for _, actID := range video.ActIDs {
		if _, err := executor.ExecContext(ctx, `
			INSERT INTO video_acts (id, video_id, act_id, created_at)
			VALUES ($1, $2, $3, NOW())
		`, uuid.NewString(), video.ID, actID); err != nil {
			return fmt.Errorf("link act %s: %w", actID, err)
		}
	}

	for _, userID := range video.PerformerIDs {
		if _, err := executor.ExecContext(ctx, `
			INSERT INTO video_performers (id, video_id, user_id, created_at)
			VALUES ($1, $2, $3, NOW())
		`, uuid.NewString(), video.ID, userID); err != nil {
			return fmt.Errorf("link performer %s: %w", userID, err)
		}
	}

	return nil
}
