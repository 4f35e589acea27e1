package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bibfold/bibfold/internal/dedupe"
)

func init() {
	rootCmd.AddCommand(mergeCmd)
}

var mergeCmd = &cobra.Command{
	Use:   "merge <primary-key> <secondary-key>",
	Short: "Merge two entries, keeping the primary",
	Long: `Merge two entries into one.

Fields missing from the primary are filled from the secondary, then
the secondary entry is deleted. Where both entries have a field, the
primary's value is kept.

Example:
  bibfold merge He2016Deep He2016DeepB`,
	Args: cobra.ExactArgs(2),
	RunE: runMerge,
}

func runMerge(cmd *cobra.Command, args []string) error {
	db := mustOpenStore()
	defer db.Close()

	primary, err := db.GetByKey(args[0])
	if err != nil {
		exitWithError(ExitError, "getting entry: %v", err)
	}
	if primary == nil {
		exitWithError(ExitNotFound, "entry not found: %s", args[0])
	}

	secondary, err := db.GetByKey(args[1])
	if err != nil {
		exitWithError(ExitError, "getting entry: %v", err)
	}
	if secondary == nil {
		exitWithError(ExitNotFound, "entry not found: %s", args[1])
	}

	primary.Record = dedupe.Merge(primary.Record, secondary.Record)
	annotateEntry(primary)

	if err := db.Update(primary.ID, primary); err != nil {
		exitWithError(ExitError, "updating entry: %v", err)
	}
	if err := db.Delete(secondary.ID); err != nil {
		exitWithError(ExitError, "deleting secondary entry: %v", err)
	}

	merged, err := db.GetByID(primary.ID)
	if err != nil {
		exitWithError(ExitError, "getting merged entry: %v", err)
	}

	if humanOutput {
		fmt.Printf("Merged %s into %s\n", args[1], args[0])
		fmt.Println()
		printEntryDetail(*merged)
	} else {
		outputJSON(merged)
	}

	return nil
}
