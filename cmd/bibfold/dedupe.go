package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bibfold/bibfold/internal/dedupe"
	"github.com/bibfold/bibfold/internal/record"
)

var dedupeThreshold float64

func init() {
	dedupeCmd.Flags().Float64Var(&dedupeThreshold, "threshold", dedupe.DefaultThreshold, "Minimum confidence to report (0-1]")
	rootCmd.AddCommand(dedupeCmd)
}

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Find likely duplicate entries",
	Long: `Find likely duplicate entries in the library.

Pairs are matched by DOI, arXiv ID, or fuzzy title and author
similarity and reported with a confidence score, highest first.
Nothing is modified; use merge to combine a pair.

Examples:
  bibfold dedupe
  bibfold dedupe --threshold 0.95`,
	RunE: runDedupe,
}

// DedupeResult is the response for the dedupe command.
type DedupeResult struct {
	Duplicates []dedupe.Match `json:"duplicates"`
}

func runDedupe(cmd *cobra.Command, args []string) error {
	if dedupeThreshold <= 0 || dedupeThreshold > 1 {
		exitWithError(ExitError, "threshold must be in (0, 1]")
	}

	db := mustOpenStore()
	defer db.Close()

	entries, err := db.All()
	if err != nil {
		exitWithError(ExitError, "reading library: %v", err)
	}

	records := make([]*record.Record, len(entries))
	for i := range entries {
		records[i] = entries[i].Record
	}

	matches := dedupe.FindDuplicates(records, dedupeThreshold)
	if matches == nil {
		matches = []dedupe.Match{}
	}

	if humanOutput {
		if len(matches) == 0 {
			fmt.Println("No duplicates found")
		} else {
			fmt.Printf("Found %d duplicate pairs:\n\n", len(matches))
			for _, m := range matches {
				fmt.Printf("  [%.2f] %s <-> %s\n", m.Confidence, m.KeyA, m.KeyB)
				fmt.Printf("         %s\n\n", m.Reason)
			}
			fmt.Println("Use 'bibfold merge <primary-key> <secondary-key>' to combine a pair.")
		}
	} else {
		outputJSON(DedupeResult{Duplicates: matches})
	}

	return nil
}
