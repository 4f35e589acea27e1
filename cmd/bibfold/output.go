package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/bibfold/bibfold/internal/store"
)

// Constants for output formatting.
const (
	ListTitleMaxLen   = 60 // Used in list command output
	SearchTitleMaxLen = 70 // Used in search result summaries
	TextWrapWidth     = 68 // Standard text wrap width in detail views
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// wrapText wraps text to the specified width with indentation on subsequent lines.
func wrapText(text string, width int, indent string) string {
	if len(text) <= width {
		return text
	}

	var lines []string
	words := strings.Fields(text)
	var currentLine strings.Builder

	for _, word := range words {
		if currentLine.Len() == 0 {
			currentLine.WriteString(word)
		} else if currentLine.Len()+1+len(word) <= width {
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return strings.Join(lines, "\n"+indent)
}

// formatAuthorsShort renders a BibTeX author list ("A and B and C") as
// a comma-separated line, keeping at most maxCount names before "et al.".
func formatAuthorsShort(authors string, maxCount int) string {
	if authors == "" {
		return ""
	}

	var names []string
	for i, name := range strings.Split(authors, " and ") {
		if i >= maxCount {
			names = append(names, "et al.")
			break
		}
		names = append(names, strings.TrimSpace(name))
	}
	return strings.Join(names, ", ")
}

// printEntrySummary prints a numbered short block for one entry.
func printEntrySummary(num int, e store.Entry) {
	r := e.Record
	fmt.Printf("[%d] %s\n", num, r.CitationKey)
	fmt.Printf("    %s\n", truncateString(r.Title, ListTitleMaxLen))

	if r.Author != "" {
		fmt.Printf("    %s\n", formatAuthorsShort(r.Author, 3))
	}

	venue := r.Journal
	if venue == "" {
		venue = r.BookTitle
	}
	if venue != "" {
		fmt.Printf("    %s (%s)\n", venue, r.Year)
	} else if r.Year != "" {
		fmt.Printf("    (%s)\n", r.Year)
	}
	fmt.Println()
}

// printEntryDetail prints the full record for the get command.
func printEntryDetail(e store.Entry) {
	r := e.Record
	fmt.Println(r.CitationKey)
	fmt.Println(strings.Repeat("=", SearchTitleMaxLen))
	fmt.Println()

	fmt.Printf("Type:     %s\n", r.Type)
	fmt.Printf("Title:    %s\n", wrapText(r.Title, TextWrapWidth, "          "))

	if r.Author != "" {
		fmt.Printf("Authors:  %s\n", wrapText(r.Author, TextWrapWidth, "          "))
	}

	venue := r.Journal
	if venue == "" {
		venue = r.BookTitle
	}
	if venue != "" {
		fmt.Printf("Venue:    %s\n", venue)
	}
	if r.Year != "" {
		fmt.Printf("Year:     %s\n", r.Year)
	}
	if r.Pages != "" {
		fmt.Printf("Pages:    %s\n", r.Pages)
	}
	if r.DOI != "" {
		fmt.Printf("DOI:      %s\n", r.DOI)
	}
	if r.ArxivID != "" {
		fmt.Printf("arXiv:    %s\n", r.ArxivID)
	}
	if r.URL != "" {
		fmt.Printf("URL:      %s\n", r.URL)
	}
	if r.Source != "" {
		fmt.Printf("Source:   %s\n", r.Source)
	}

	if e.ValidationStatus != "" {
		fmt.Printf("Status:   %s\n", e.ValidationStatus)
		for _, msg := range e.ValidationMessages {
			fmt.Printf("          - %s\n", msg)
		}
	}

	if e.RawBibtex != "" {
		fmt.Println()
		fmt.Println(e.RawBibtex)
	}
}
