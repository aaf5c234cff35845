package cmd

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"rowferry/config"
	"rowferry/transfer"
)

const timeRounding = time.Millisecond

var schedule string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy only the rows the destination table is missing",
	Long: `Compares source and destination row counts and copies the missing tail
range in ordered batches. Assumes the destination is a stable-order prefix of
the source (append-only sources only); rows are never diffed by content.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&schedule, "schedule", "", "Run repeatedly on a cron schedule (e.g. \"*/5 * * * *\")")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if schedule == "" {
		return syncOnce()
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := syncOnce(); err != nil {
			log.Error().Err(err).Msg("scheduled sync failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid --schedule %q: %w", schedule, err)
	}

	log.Info().Msgf("running sync on schedule %q", schedule)
	c.Run()
	return nil
}

func syncOnce() error {
	// Config is reloaded per run so scheduled syncs pick up edits.
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	result, err := transfer.NewSyncer(cfg).Run()
	if err != nil {
		return err
	}

	if result.InSync {
		log.Info().Msgf("already in sync (source=%d, destination=%d)", result.SourceCount, result.DestinationCount)
		return nil
	}

	if !result.Success {
		return fmt.Errorf("synced %d rows in %s but counts still differ (source=%d, destination=%d): %w",
			result.RowsCopied, result.Duration.Round(timeRounding),
			result.SourceCount, result.DestinationCount, transfer.ErrVerificationMismatch)
	}

	log.Info().Msgf("sync complete: %d rows in %d batches (%s)",
		result.RowsCopied, result.Batches, result.Duration.Round(timeRounding))
	return nil
}
