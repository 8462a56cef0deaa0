package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkpic.dev/gtfs"
)

var transfersCmd = &cobra.Command{
	Use:   "transfers",
	Short: "Generate in-seat transfers",
	Long: "Resolves the carriage-switch table into blocks, materializes " +
		"each block as linked trip fragments, repairs transfers crossing " +
		"day boundaries and assigns block IDs.",
	RunE: runTransfers,
}

func init() {
	rootCmd.AddCommand(transfersCmd)
}

func runTransfers(cmd *cobra.Command, args []string) error {
	path, err := resolveArchive(cmd.Context())
	if err != nil {
		return err
	}

	store, err := openStorage()
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	if err := gtfs.NewInSeatTransferGenerator().Run(store, path); err != nil {
		return fmt.Errorf("generating in-seat transfers: %w", err)
	}
	if err := gtfs.NewTimeTravelFixer().Run(store); err != nil {
		return fmt.Errorf("fixing time travelling transfers: %w", err)
	}
	if err := gtfs.NewBlockIDAssigner().Run(store); err != nil {
		return fmt.Errorf("assigning block ids: %w", err)
	}

	return nil
}
