package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a single entry by citation key",
	Long: `Get a single entry by its citation key.

Example:
  bibfold get He2016Deep`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	db := mustOpenStore()
	defer db.Close()

	key := args[0]
	entry, err := db.GetByKey(key)
	if err != nil {
		exitWithError(ExitError, "getting entry: %v", err)
	}
	if entry == nil {
		exitWithError(ExitNotFound, "entry not found: %s", key)
	}

	if humanOutput {
		printEntryDetail(*entry)
	} else {
		outputJSON(entry)
	}

	return nil
}
