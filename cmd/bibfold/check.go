package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bibfold/bibfold/internal/validate"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate every entry in the library",
	Long: `Validate every entry and report missing or malformed fields.

A missing required field (by entry type) is an error; missing
recommended fields and format problems are warnings. Nothing is
modified.

Example:
  bibfold check`,
	RunE: runCheck,
}

// CheckResult is the response for the check command.
type CheckResult struct {
	Status   string       `json:"status"`
	Entries  int          `json:"entries"`
	Valid    int          `json:"valid"`
	Warnings int          `json:"warnings"`
	Errors   int          `json:"errors"`
	Issues   []CheckIssue `json:"issues"`
}

// CheckIssue lists one entry's validation findings.
type CheckIssue struct {
	CitationKey string   `json:"citation_key"`
	Status      string   `json:"status"`
	Messages    []string `json:"messages"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	db := mustOpenStore()
	defer db.Close()

	entries, err := db.All()
	if err != nil {
		exitWithError(ExitError, "reading library: %v", err)
	}

	result := CheckResult{Entries: len(entries), Issues: []CheckIssue{}}
	for i := range entries {
		res := validate.Check(entries[i].Record)
		switch res.Status {
		case validate.StatusValid:
			result.Valid++
		case validate.StatusWarning:
			result.Warnings++
		case validate.StatusError:
			result.Errors++
		}
		if res.Status != validate.StatusValid {
			result.Issues = append(result.Issues, CheckIssue{
				CitationKey: entries[i].Record.CitationKey,
				Status:      string(res.Status),
				Messages:    res.Messages,
			})
		}
	}

	result.Status = "ok"
	if result.Errors > 0 {
		result.Status = "errors"
	} else if result.Warnings > 0 {
		result.Status = "warnings"
	}

	if humanOutput {
		if len(result.Issues) == 0 {
			fmt.Printf("Library check: OK\n\n%d entries checked\n", result.Entries)
		} else {
			fmt.Printf("Library check: %d valid, %d warnings, %d errors\n\n", result.Valid, result.Warnings, result.Errors)
			for _, issue := range result.Issues {
				fmt.Printf("  [%s] %s\n", issue.Status, issue.CitationKey)
				for _, msg := range issue.Messages {
					fmt.Printf("         %s\n", msg)
				}
				fmt.Println()
			}
			fmt.Printf("%d entries checked\n", result.Entries)
		}
	} else {
		outputJSON(result)
	}

	return nil
}
