package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bibfold/bibfold/internal/abbrev"
	"github.com/bibfold/bibfold/internal/bibtex"
	"github.com/bibfold/bibfold/internal/record"
)

var (
	exportMode   string
	exportAbbrev bool
	exportOut    string
)

func init() {
	exportCmd.Flags().StringVar(&exportMode, "mode", "detailed", "Field set: detailed, standard, or minimal")
	exportCmd.Flags().BoolVar(&exportAbbrev, "abbrev", false, "Abbreviate journal and booktitle names")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the library as BibTeX",
	Long: `Export the library as BibTeX, newest entries first.

Modes control which fields are emitted:
  detailed - every field, including extras (default)
  standard - common citation fields
  minimal  - author, title, venue, year

Examples:
  bibfold export > references.bib
  bibfold export --mode standard --abbrev -o references.bib
  bibfold export --mode minimal`,
	RunE: runExport,
}

// ExportResult is the response when exporting to a file.
type ExportResult struct {
	Exported int    `json:"exported"`
	Path     string `json:"path"`
}

func runExport(cmd *cobra.Command, args []string) error {
	db := mustOpenStore()
	defer db.Close()

	entries, err := db.All()
	if err != nil {
		exitWithError(ExitError, "reading library: %v", err)
	}

	records := make([]*record.Record, len(entries))
	for i := range entries {
		rec := entries[i].Record
		if exportAbbrev {
			if rec.Journal != "" {
				rec.Journal = abbrev.Abbreviate(rec.Journal)
			}
			if rec.BookTitle != "" {
				rec.BookTitle = abbrev.Abbreviate(rec.BookTitle)
			}
		}
		records[i] = rec
	}

	out := bibtex.SerializeAll(records, bibtex.ParseMode(exportMode))

	if exportOut == "" {
		// BibTeX is always text output, never JSON
		fmt.Print(out)
		return nil
	}

	if err := os.WriteFile(exportOut, []byte(out), 0644); err != nil {
		exitWithError(ExitError, "writing %s: %v", exportOut, err)
	}

	if humanOutput {
		fmt.Printf("Exported %d entries to %s\n", len(records), exportOut)
	} else {
		outputJSON(ExportResult{Exported: len(records), Path: exportOut})
	}
	return nil
}
