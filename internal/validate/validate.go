// Package validate checks records for field completeness and format
// problems. A missing required field is an error; everything else the
// checker finds is a warning. Validation never blocks storage or
// resolution, it only annotates.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bibfold/bibfold/internal/record"
)

// Status summarizes a validation result.
type Status string

const (
	StatusValid   Status = "valid"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Result carries the status and the individual findings.
type Result struct {
	Status   Status   `json:"status"`
	Messages []string `json:"messages,omitempty"`
}

// rule lists field names per entry type. A name containing "|" means
// any one of the alternatives satisfies the requirement.
type rule struct {
	required    []string
	recommended []string
}

var rulesByType = map[record.EntryType]rule{
	record.TypeArticle: {
		required:    []string{"author", "title", "journal", "year"},
		recommended: []string{"volume", "number", "pages", "month", "doi"},
	},
	record.TypeBook: {
		required:    []string{"author|editor", "title", "publisher", "year"},
		recommended: []string{"volume", "series", "address", "month"},
	},
	record.TypeBooklet: {
		required:    []string{"title"},
		recommended: []string{"author", "address", "month", "year"},
	},
	record.TypeConference: {
		required:    []string{"author", "title", "booktitle", "year"},
		recommended: []string{"editor", "pages", "address", "month", "organization", "publisher"},
	},
	record.TypeInBook: {
		required:    []string{"author|editor", "title", "pages", "publisher", "year"},
		recommended: []string{"volume", "series", "address", "month"},
	},
	record.TypeInCollection: {
		required:    []string{"author", "title", "booktitle", "publisher", "year"},
		recommended: []string{"editor", "pages", "address", "month"},
	},
	record.TypeInProceedings: {
		required:    []string{"author", "title", "booktitle", "year"},
		recommended: []string{"editor", "pages", "address", "month", "organization", "publisher"},
	},
	record.TypeManual: {
		required:    []string{"title"},
		recommended: []string{"author", "organization", "address", "month", "year"},
	},
	record.TypeMastersThesis: {
		required:    []string{"author", "title", "school", "year"},
		recommended: []string{"address", "month"},
	},
	record.TypeMisc: {
		recommended: []string{"author", "title", "year"},
	},
	record.TypePhDThesis: {
		required:    []string{"author", "title", "school", "year"},
		recommended: []string{"address", "month"},
	},
	record.TypeProceedings: {
		required:    []string{"title", "year"},
		recommended: []string{"editor", "publisher", "organization", "address", "month"},
	},
	record.TypeTechReport: {
		required:    []string{"author", "title", "institution", "year"},
		recommended: []string{"number", "address", "month"},
	},
	record.TypeUnpublished: {
		required:    []string{"author", "title", "note"},
		recommended: []string{"month", "year"},
	},
}

var (
	doiRe        = regexp.MustCompile(`^10\.\d{4,}/`)
	yearRe       = regexp.MustCompile(`^\d{4}$`)
	pageRangeRe  = regexp.MustCompile(`^\d+\s*--\s*\d+$`)
	pageSingleRe = regexp.MustCompile(`^\d+$`)
)

// Check validates a record against the rules for its entry type.
// Unknown types fall back to the misc rules.
func Check(rec *record.Record) Result {
	rules, ok := rulesByType[rec.Type]
	if !ok {
		rules = rulesByType[record.TypeMisc]
	}

	var messages []string
	hasError := false
	hasWarning := false

	for _, field := range rules.required {
		if !fieldPresent(rec, field) {
			messages = append(messages, "Missing required field: "+displayName(field))
			hasError = true
		}
	}

	for _, field := range rules.recommended {
		if !fieldPresent(rec, field) {
			messages = append(messages, "Missing recommended field: "+field)
			hasWarning = true
		}
	}

	if rec.DOI != "" && !doiRe.MatchString(rec.DOI) {
		messages = append(messages, fmt.Sprintf("Invalid DOI format: %s", rec.DOI))
		hasWarning = true
	}
	if rec.Year != "" && !yearRe.MatchString(rec.Year) {
		messages = append(messages, fmt.Sprintf("Invalid year format: %s", rec.Year))
		hasWarning = true
	}
	if rec.Pages != "" && !pageRangeRe.MatchString(rec.Pages) && !pageSingleRe.MatchString(rec.Pages) {
		messages = append(messages, fmt.Sprintf("Non-standard page format: %s", rec.Pages))
		hasWarning = true
	}
	if rec.Month != "" && !record.IsMonthAbbrev(rec.Month) {
		messages = append(messages, fmt.Sprintf("Non-standard month format: %s", rec.Month))
		hasWarning = true
	}

	status := StatusValid
	if hasWarning {
		status = StatusWarning
	}
	if hasError {
		status = StatusError
	}
	return Result{Status: status, Messages: messages}
}

// fieldPresent resolves an "a|b" alternation as any-of.
func fieldPresent(rec *record.Record, field string) bool {
	for _, name := range strings.Split(field, "|") {
		if v, ok := rec.Field(name); ok && v != "" {
			return true
		}
	}
	return false
}

func displayName(field string) string {
	return strings.ReplaceAll(field, "|", " or ")
}
