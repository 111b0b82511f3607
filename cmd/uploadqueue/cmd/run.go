package cmd

import (
	"context"
	"net/http"

	"uploadqueue/internal/config"
	"uploadqueue/internal/logger"
	"uploadqueue/internal/media"
	"uploadqueue/internal/observability"
	"uploadqueue/internal/store/postgres"
	"uploadqueue/internal/upload"
	"uploadqueue/internal/upload/youtube"
	"uploadqueue/internal/worker"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process pending uploads once",
	Long: `Run one pass over the upload queue: check today's quota, claim the oldest
pending jobs that fit, and fetch, upload and record each of them in order.

A failed job is marked FAILED and the run moves on. The command exits non-zero
only when the run itself cannot proceed (configuration, database, or
authentication errors) or when it is interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := cfg.ValidateUpload(); err != nil {
			return err
		}
		summary, err := runOnce(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		cmd.Printf("Processed: %d  Succeeded: %d  Failed: %d\n", summary.Processed, summary.Succeeded, summary.Failed)
		return nil
	},
}

func runOnce(ctx context.Context, cfg *config.Config) (worker.Summary, error) {
	log := logger.New(cfg.LogLevel)

	shutdownTracer, err := observability.InitTracer(ctx, "uploadqueue", cfg.OTELEndpoint)
	if err != nil {
		return worker.Summary{}, err
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	if cfg.MetricsAddr != "" {
		metricsHandler, shutdownMetrics, err := observability.InitMetrics()
		if err != nil {
			return worker.Summary{}, err
		}
		stopServer := observability.ServeMetrics(cfg.MetricsAddr, metricsHandler, log)
		defer func() {
			if err := stopServer(context.Background()); err != nil {
				log.Error("failed to stop metrics server", "error", err)
			}
			if err := shutdownMetrics(context.Background()); err != nil {
				log.Error("failed to shutdown metrics", "error", err)
			}
		}()
	}

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return worker.Summary{}, err
	}
	defer db.Close()

	if cfg.BlobToken == "" {
		log.Warn("BLOB_READ_WRITE_TOKEN not set, source blobs will not be deleted")
	}

	fetcher := media.New(media.Config{
		ScratchDir:      cfg.ScratchDir,
		DownloadTimeout: cfg.DownloadTimeout,
		DeleteTimeout:   cfg.DeleteTimeout,
		BlobToken:       cfg.BlobToken,
		BlobDeleteURL:   cfg.BlobDeleteURL,
	}, &http.Client{}, log)

	connector := youtube.NewConnector(youtube.Config{
		ClientID:     cfg.YouTubeClientID,
		ClientSecret: cfg.YouTubeClientSecret,
		RefreshToken: cfg.YouTubeRefreshToken,
		ChunkSize:    cfg.UploadChunkSize,
		Engine:       upload.EngineConfig{MaxRetries: cfg.UploadMaxRetries},
	}, log)

	processor := worker.NewProcessor(db, fetcher, connector, worker.ProcessorConfig{
		DailyLimit: cfg.DailyUploadLimit,
		CategoryID: cfg.UploadCategoryID,
		Privacy:    upload.Privacy(cfg.UploadPrivacy),
	}, log)

	summary, err := processor.Run(ctx)
	if err != nil {
		log.Error("run aborted", "error", err)
	}
	return summary, err
}

func init() {
	rootCmd.AddCommand(runCmd)
}
