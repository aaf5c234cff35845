package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"rowferry/config"
	"rowferry/transfer"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy every row from the source table to the destination table",
	Long: `Copies the source table to the destination table in ordered batches.
Creates the destination table from the source schema when configured, and
optionally truncates the destination first. The run is verified by comparing
row counts afterwards.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Migration.TruncateDestination {
		if err := confirmTruncate(cfg.Destination.Table); err != nil {
			return err
		}
	}

	result, err := transfer.NewMigrator(cfg).Run()
	if err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("migrated %d rows in %s but counts differ (source=%d, destination=%d): %w",
			result.RowsCopied, result.Duration.Round(timeRounding),
			result.SourceCount, result.DestinationCount, transfer.ErrVerificationMismatch)
	}

	log.Info().Msgf("migration complete: %d rows in %d batches (%s)",
		result.RowsCopied, result.Batches, result.Duration.Round(timeRounding))
	return nil
}

// confirmTruncate gates the irreversible delete-all behind an explicit
// confirmation: an interactive prompt on a terminal, the --yes flag otherwise.
func confirmTruncate(table string) error {
	if assumeYes {
		return nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("truncate_destination is set; pass --yes to confirm deleting all rows from %s", table)
	}

	var confirmed bool
	prompt := huh.NewConfirm().
		Title(fmt.Sprintf("Delete ALL rows from destination table %s?", table)).
		Description("This is irreversible.").
		Value(&confirmed)

	if err := prompt.Run(); err != nil {
		return fmt.Errorf("confirmation prompt failed: %w", err)
	}
	if !confirmed {
		return fmt.Errorf("aborted: truncate of %s not confirmed", table)
	}

	return nil
}
