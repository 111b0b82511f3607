package cmd

import (
	"context"
	"fmt"
	"time"

	"uploadqueue/internal/config"
	"uploadqueue/internal/store"
	"uploadqueue/internal/store/postgres"

	"github.com/spf13/cobra"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue counts and today's quota usage",
	Long:  `Print the number of queue jobs per status (PENDING, UPLOADED, FAILED), today's upload count against the daily limit, and the oldest pending jobs. Nothing is modified.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		db, err := postgres.New(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		return printQueueStatus(cmd, db, cfg.DailyUploadLimit, statusLimit, time.Now())
	},
}

type statusReader interface {
	CountByStatus(ctx context.Context) ([]store.StatusCount, error)
	GetDailyCount(ctx context.Context, day time.Time) (int, error)
	ClaimPending(ctx context.Context, limit int) ([]store.QueueJob, error)
}

func printQueueStatus(cmd *cobra.Command, r statusReader, dailyLimit, listLimit int, now time.Time) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	counts, err := r.CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("count jobs: %w", err)
	}
	used, err := r.GetDailyCount(ctx, store.Day(now))
	if err != nil {
		return fmt.Errorf("read daily upload count: %w", err)
	}

	cmd.Printf("%sUpload Queue%s\n", colorBold, colorReset)
	cmd.Println("──────────────────────────────")
	for _, c := range counts {
		cmd.Printf("%-22s %d\n", colorizeStatus(c.Status), c.Count)
	}
	if len(counts) == 0 {
		cmd.Println("(empty)")
	}

	remaining := dailyLimit - used
	if remaining < 0 {
		remaining = 0
	}
	cmd.Printf("\n%sToday (%s UTC):%s %d/%d uploaded, %d remaining\n",
		colorDim, store.Day(now).Format("2006-01-02"), colorReset, used, dailyLimit, remaining)

	if listLimit <= 0 {
		return nil
	}
	pending, err := r.ClaimPending(ctx, listLimit)
	if err != nil {
		return fmt.Errorf("list pending jobs: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	cmd.Printf("\n%sOldest pending:%s\n", colorBold, colorReset)
	for _, job := range pending {
		cmd.Printf("  %s  %s  %s %s(%s ago, by %s)%s\n",
			job.ID, job.Title, job.FileName, colorDim, relativeTime(now.Sub(job.CreatedAt)), job.UploaderName(), colorReset)
	}
	return nil
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorCyan   = "\033[36m"
)

func statusIcon(status store.JobStatus) string {
	switch status {
	case store.JobStatusUploaded:
		return colorGreen + "✓" + colorReset
	case store.JobStatusFailed:
		return colorRed + "✗" + colorReset
	case store.JobStatusPending:
		return colorCyan + "◯" + colorReset
	default:
		return "•"
	}
}

func colorizeStatus(status store.JobStatus) string {
	icon := statusIcon(status)
	switch status {
	case store.JobStatusUploaded:
		return icon + " " + colorGreen + string(status) + colorReset
	case store.JobStatusFailed:
		return icon + " " + colorRed + string(status) + colorReset
	case store.JobStatusPending:
		return icon + " " + colorCyan + string(status) + colorReset
	default:
		return string(status)
	}
}

func relativeTime(duration time.Duration) string {
	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	}
	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "number of oldest pending jobs to list (0 to skip)")
	rootCmd.AddCommand(statusCmd)
}
