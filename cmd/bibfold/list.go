package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bibfold/bibfold/internal/store"
)

var (
	listType   string
	listYear   string
	listAuthor string
	listLimit  int
)

func init() {
	listCmd.Flags().StringVar(&listType, "type", "", "Filter by entry type (article, inproceedings, ...)")
	listCmd.Flags().StringVar(&listYear, "year", "", "Filter by exact year")
	listCmd.Flags().StringVar(&listAuthor, "author", "", "Filter by author substring")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum entries to return (0 = all)")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries in the library",
	Long: `List entries in the library, newest first.

Examples:
  bibfold list
  bibfold list --type article --year 2023
  bibfold list --author Hinton --limit 10`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	db := mustOpenStore()
	defer db.Close()

	filters := store.ListFilters{
		Type:   listType,
		Year:   listYear,
		Author: listAuthor,
		Limit:  listLimit,
	}

	var entries []store.Entry
	var err error
	if filters == (store.ListFilters{}) {
		entries, err = db.All()
	} else {
		entries, err = db.List(filters)
	}
	if err != nil {
		exitWithError(ExitError, "listing entries: %v", err)
	}

	// Empty result is not an error
	if entries == nil {
		entries = []store.Entry{}
	}

	if humanOutput {
		if len(entries) == 0 {
			fmt.Println("No entries found")
		} else {
			fmt.Printf("%d entries:\n\n", len(entries))
			for i, e := range entries {
				printEntrySummary(i+1, e)
			}
		}
	} else {
		outputJSON(entries)
	}

	return nil
}
