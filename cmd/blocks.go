package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"pkpic.dev/gtfs"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Print resolved in-seat transfer blocks",
	Long:  "Resolves the carriage-switch table into blocks and prints them, without writing to the database.",
	RunE:  runBlocks,
}

func init() {
	rootCmd.AddCommand(blocksCmd)
}

func runBlocks(cmd *cobra.Command, args []string) error {
	path, err := resolveArchive(cmd.Context())
	if err != nil {
		return err
	}

	store, err := openStorage()
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	byDay, err := gtfs.NewInSeatTransferGenerator().ResolveBlocks(store, path)
	if err != nil {
		return err
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	for _, day := range days {
		for _, b := range byDay[day] {
			legs := make([]string, 0, len(b.Legs))
			for _, leg := range b.Legs {
				if leg.ToStopSeq < 0 {
					legs = append(legs, fmt.Sprintf("%s[%d..]", leg.TripID, leg.FromStopSeq))
				} else {
					legs = append(legs, fmt.Sprintf("%s[%d..%d]", leg.TripID, leg.FromStopSeq, leg.ToStopSeq))
				}
			}
			fmt.Printf(
				"%s carriages=%s %s\n",
				day,
				strings.Join(b.SortedCarriages(), "/"),
				strings.Join(legs, " -> "),
			)
		}
	}

	return nil
}
