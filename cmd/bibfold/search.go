package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bibfold/bibfold/internal/resolve"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", resolve.DefaultSearchLimit, "Maximum results to return")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search metadata providers without storing anything",
	Long: `Search metadata providers for papers matching a query.

DOI and arXiv queries look up the single matching paper. Title queries
search Semantic Scholar and Google Scholar and merge the results,
published versions first. Nothing is written to the library; use
resolve to store a paper.

Examples:
  bibfold search "attention is all you need"
  bibfold search 1512.03385
  bibfold search "residual learning" --limit 10`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

// SearchResponse is the response for the search command.
type SearchResponse struct {
	Query   string                 `json:"query"`
	Results []resolve.SearchResult `json:"results"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	resolver := buildResolver(cfg, 0)

	results, err := resolver.Search(cmd.Context(), args[0], searchLimit)
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}

	// Empty result is not an error
	if results == nil {
		results = []resolve.SearchResult{}
	}

	if humanOutput {
		if len(results) == 0 {
			fmt.Println("No results found")
		} else {
			fmt.Printf("Found %d results:\n\n", len(results))
			for i, r := range results {
				printSearchResultHuman(i+1, r)
			}
		}
	} else {
		outputJSON(SearchResponse{Query: args[0], Results: results})
	}

	return nil
}

func printSearchResultHuman(num int, r resolve.SearchResult) {
	fmt.Printf("[%d] %s\n", num, truncateString(r.Title, SearchTitleMaxLen))

	if len(r.Authors) > 0 {
		fmt.Printf("    %s\n", formatAuthorsShort(strings.Join(r.Authors, " and "), 3))
	}

	line := r.Year
	if r.Venue != "" {
		line = fmt.Sprintf("%s (%s)", r.Venue, r.Year)
	}
	if r.CitationCount > 0 {
		line += fmt.Sprintf(", %d citations", r.CitationCount)
	}
	if line != "" {
		fmt.Printf("    %s\n", line)
	}

	if r.DOI != "" {
		fmt.Printf("    doi: %s\n", r.DOI)
	}
	if r.ArxivID != "" {
		fmt.Printf("    arXiv: %s\n", r.ArxivID)
	}
	fmt.Println()
}
