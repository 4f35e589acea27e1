package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(deleteCmd)
}

var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete an entry by citation key",
	Long: `Delete an entry by its citation key.

Example:
  bibfold delete He2016Deep`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

// DeleteResult is the response for the delete command.
type DeleteResult struct {
	Status string `json:"status"`
	Key    string `json:"key"`
}

func runDelete(cmd *cobra.Command, args []string) error {
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

	if err := db.Delete(entry.ID); err != nil {
		exitWithError(ExitError, "deleting entry: %v", err)
	}

	if humanOutput {
		fmt.Printf("Deleted %s\n", key)
	} else {
		outputJSON(DeleteResult{Status: "deleted", Key: key})
	}

	return nil
}
