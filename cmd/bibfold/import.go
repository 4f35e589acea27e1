package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bibfold/bibfold/internal/bibtex"
	"github.com/bibfold/bibfold/internal/normalize"
	"github.com/bibfold/bibfold/internal/record"
	"github.com/bibfold/bibfold/internal/store"
)

var importDryRun bool

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Parse and check without writing")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <file.bib>",
	Short: "Import entries from a BibTeX file",
	Long: `Import entries from a BibTeX file.

Each parsed entry is normalized against the library's citation keys
and checked against existing entries for duplicates. Duplicates and
per-entry problems are reported; the rest are stored.

Examples:
  bibfold import references.bib
  bibfold import references.bib --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// ImportResult is the response for the import command.
type ImportResult struct {
	Imported   []store.Entry     `json:"imported"`
	Duplicates []ImportDuplicate `json:"duplicates"`
	Errors     []ImportError     `json:"errors"`
}

// ImportDuplicate reports an entry skipped because it matches an
// existing one.
type ImportDuplicate struct {
	NewEntry      *record.Record `json:"new_entry"`
	ExistingEntry store.Entry    `json:"existing_entry"`
	Confidence    float64        `json:"confidence"`
	Reason        string         `json:"reason"`
}

// ImportError reports an entry that could not be imported.
type ImportError struct {
	CitationKey string `json:"citation_key"`
	Error       string `json:"error"`
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		exitWithError(ExitError, "reading file: %v", err)
	}

	records, err := bibtex.Parse(string(data))
	if err != nil {
		exitWithError(ExitDataError, "parsing %s: %v", args[0], err)
	}
	if len(records) == 0 {
		exitWithError(ExitDataError, "no entries found in %s", args[0])
	}

	db := mustOpenStore()
	defer db.Close()

	keys, err := db.ExistingKeys()
	if err != nil {
		exitWithError(ExitError, "reading citation keys: %v", err)
	}
	existing, err := db.All()
	if err != nil {
		exitWithError(ExitError, "reading library: %v", err)
	}

	norm := normalize.New()
	result := ImportResult{
		Imported:   []store.Entry{},
		Duplicates: []ImportDuplicate{},
		Errors:     []ImportError{},
	}

	for _, rec := range records {
		rec.Source = record.SourceImport
		if err := norm.Normalize(rec, keys); err != nil {
			result.Errors = append(result.Errors, ImportError{
				CitationKey: rec.CitationKey,
				Error:       err.Error(),
			})
			continue
		}

		if match := findDuplicate(rec, existing); match != nil {
			dup := ImportDuplicate{
				NewEntry:   rec,
				Confidence: match.Confidence,
				Reason:     match.Reason,
			}
			if ex, err := db.GetByKey(match.KeyB); err == nil && ex != nil {
				dup.ExistingEntry = *ex
			}
			result.Duplicates = append(result.Duplicates, dup)
			continue
		}

		entry := store.Entry{Record: rec}
		annotateEntry(&entry)

		if importDryRun {
			result.Imported = append(result.Imported, entry)
			existing = append(existing, entry)
			continue
		}

		id, err := db.Insert(&entry)
		if err != nil {
			result.Errors = append(result.Errors, ImportError{
				CitationKey: rec.CitationKey,
				Error:       err.Error(),
			})
			continue
		}
		stored, err := db.GetByID(id)
		if err != nil {
			exitWithError(ExitError, "getting stored entry: %v", err)
		}
		result.Imported = append(result.Imported, *stored)
		existing = append(existing, *stored)
	}

	if humanOutput {
		printImportResultHuman(result, importDryRun)
	} else {
		outputJSON(result)
	}

	return nil
}

// printImportResultHuman prints the import report in human-readable format.
func printImportResultHuman(result ImportResult, isDryRun bool) {
	if isDryRun {
		fmt.Println("Dry run - no changes made")
		fmt.Println()
	}

	fmt.Printf("Imported %d entries\n", len(result.Imported))
	for _, e := range result.Imported {
		fmt.Printf("  %s: %s\n", e.Record.CitationKey, truncateString(e.Record.Title, ListTitleMaxLen))
	}

	if len(result.Duplicates) > 0 {
		fmt.Printf("\nSkipped %d duplicates:\n", len(result.Duplicates))
		for _, d := range result.Duplicates {
			fmt.Printf("  %s: %s (confidence %.2f)\n", d.NewEntry.CitationKey, d.Reason, d.Confidence)
		}
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  %s: %s\n", e.CitationKey, e.Error)
		}
	}
}
