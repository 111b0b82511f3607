package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "uploadqueue",
	Short: "uploadqueue publishes queued circus recordings to YouTube",
	Long: `uploadqueue drains the upload queue written by the archive web app.

Each run reads today's upload count, claims as many pending jobs as the daily
limit allows, downloads each source video from blob storage, uploads it to
YouTube with a resumable chunked upload and records the result.

Common workflows:

  Apply the database schema:
    uploadqueue migrate

  Process the queue once (typically from cron or a CI schedule):
    uploadqueue run

  Inspect the queue and today's quota:
    uploadqueue status

Configuration:
  Settings come from an optional YAML file (--config) and environment
  variables, which take precedence:
    DATABASE_URL            Postgres connection string (required)
    DAILY_UPLOAD_LIMIT      Uploads allowed per UTC day (default: 10)
    YOUTUBE_CLIENT_ID       OAuth client ID (required by run)
    YOUTUBE_CLIENT_SECRET   OAuth client secret (required by run)
    YOUTUBE_REFRESH_TOKEN   OAuth refresh token (required by run)
    BLOB_READ_WRITE_TOKEN   Blob storage token; without it source blobs are kept`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which commands use for cancellation.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); environment variables override it")
}
