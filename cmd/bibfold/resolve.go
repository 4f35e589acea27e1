package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bibfold/bibfold/internal/dedupe"
	"github.com/bibfold/bibfold/internal/pdfdoi"
	"github.com/bibfold/bibfold/internal/record"
	"github.com/bibfold/bibfold/internal/resolve"
	"github.com/bibfold/bibfold/internal/store"
)

var (
	resolvePDF     string
	resolveDryRun  bool
	resolveWorkers int
)

func init() {
	resolveCmd.Flags().StringVar(&resolvePDF, "pdf", "", "Extract a DOI or arXiv ID from a PDF and resolve it")
	resolveCmd.Flags().BoolVar(&resolveDryRun, "dry-run", false, "Resolve without writing to the library")
	resolveCmd.Flags().IntVar(&resolveWorkers, "workers", 0, "Concurrent resolutions (default from config)")
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <query>...",
	Short: "Resolve queries into BibTeX records and store them",
	Long: `Resolve DOIs, arXiv IDs, or titles into BibTeX records.

Each query is classified by shape: DOIs start with "10.", arXiv IDs
match the modern or legacy numbering, and everything else is treated
as a title search. Resolved records are normalized and stored unless
--dry-run is given. Records that duplicate an existing entry are
reported and skipped. Multiple queries resolve concurrently.

Examples:
  bibfold resolve 10.1126/science.abf4063
  bibfold resolve 1512.03385 "Attention is all you need"
  bibfold resolve --pdf paper.pdf
  bibfold resolve --dry-run "deep residual learning"`,
	Args: cobra.ArbitraryArgs,
	RunE: runResolve,
}

// ResolveOutcome reports one query's resolution.
type ResolveOutcome struct {
	Query      string             `json:"query"`
	Status     string             `json:"status"` // added, duplicate, error
	Entry      *store.Entry       `json:"entry,omitempty"`
	Record     *record.Record     `json:"record,omitempty"` // dry-run only
	SourceInfo resolve.SourceInfo `json:"source_info"`
	Duplicate  *dedupe.Match      `json:"duplicate,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// ResolveResult is the response for the resolve command.
type ResolveResult struct {
	Added      int              `json:"added"`
	Duplicates int              `json:"duplicates"`
	Errors     int              `json:"errors"`
	Outcomes   []ResolveOutcome `json:"outcomes"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	queries := args
	if resolvePDF != "" {
		id, err := pdfdoi.ExtractIdentifier(resolvePDF)
		if err != nil {
			exitWithError(ExitDataError, "extracting identifier from %s: %v", resolvePDF, err)
		}
		queries = append(queries, id)
	}
	if len(queries) == 0 {
		exitWithError(ExitError, "must specify at least one query or --pdf")
	}

	cfg := mustLoadConfig()
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

	resolver := buildResolver(cfg, resolveWorkers)
	outcomes := resolver.ResolveAll(cmd.Context(), queries, keys)

	var result ResolveResult
	for i, out := range outcomes {
		ro := ResolveOutcome{Query: queries[i], SourceInfo: out.SourceInfo}

		if out.Record == nil {
			ro.Status = "error"
			ro.Error = out.Err
			result.Errors++
			result.Outcomes = append(result.Outcomes, ro)
			continue
		}

		if match := findDuplicate(out.Record, existing); match != nil {
			ro.Status = "duplicate"
			ro.Duplicate = match
			result.Duplicates++
			result.Outcomes = append(result.Outcomes, ro)
			continue
		}

		if resolveDryRun {
			ro.Status = "added"
			ro.Record = out.Record
			existing = append(existing, store.Entry{Record: out.Record})
			result.Added++
			result.Outcomes = append(result.Outcomes, ro)
			continue
		}

		entry := &store.Entry{Record: out.Record}
		annotateEntry(entry)
		id, err := db.Insert(entry)
		if err != nil {
			ro.Status = "error"
			ro.Error = err.Error()
			result.Errors++
			result.Outcomes = append(result.Outcomes, ro)
			continue
		}
		stored, err := db.GetByID(id)
		if err != nil {
			exitWithError(ExitError, "getting stored entry: %v", err)
		}

		// Later queries in the batch dedupe against this one too.
		existing = append(existing, *stored)

		ro.Status = "added"
		ro.Entry = stored
		result.Added++
		result.Outcomes = append(result.Outcomes, ro)
	}

	if humanOutput {
		printResolveResultHuman(result, resolveDryRun)
	} else {
		outputJSON(result)
	}

	if result.Errors > 0 && result.Added == 0 && result.Duplicates == 0 {
		os.Exit(ExitDataError)
	}
	return nil
}

// findDuplicate returns the first duplicate match between rec and the
// stored entries, or nil.
func findDuplicate(rec *record.Record, entries []store.Entry) *dedupe.Match {
	for i := range entries {
		if m := dedupe.CheckDuplicate(rec, entries[i].Record); m != nil {
			return m
		}
	}
	return nil
}

// printResolveResultHuman prints the resolve result in human-readable format.
func printResolveResultHuman(result ResolveResult, isDryRun bool) {
	if isDryRun {
		fmt.Println("Dry run - no changes made")
		fmt.Println()
	}

	for _, out := range result.Outcomes {
		switch out.Status {
		case "added":
			rec := out.Record
			if out.Entry != nil {
				rec = out.Entry.Record
			}
			fmt.Printf("Added %s\n", rec.CitationKey)
			fmt.Printf("  %s\n", truncateString(rec.Title, SearchTitleMaxLen))
			fmt.Printf("  source: %s, bibtex: %s\n\n", rec.Source, out.SourceInfo.BibtexSource)
		case "duplicate":
			fmt.Printf("Skipped %q\n", out.Query)
			fmt.Printf("  %s (confidence %.2f)\n\n", out.Duplicate.Reason, out.Duplicate.Confidence)
		case "error":
			fmt.Printf("Failed %q\n", out.Query)
			fmt.Printf("  %s\n\n", out.Error)
		}
	}

	fmt.Printf("%d added, %d duplicates, %d errors\n", result.Added, result.Duplicates, result.Errors)
}
