// Package bibtex parses and serializes the BibTeX record interchange
// format. Serialization is deterministic: the same record and mode
// always produce byte-identical output.
package bibtex

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bibfold/bibfold/internal/record"
)

// Mode selects which fields Serialize emits.
type Mode string

const (
	// ModeDetailed emits every field, including extras.
	ModeDetailed Mode = "detailed"

	// ModeStandard emits the common citation fields.
	ModeStandard Mode = "standard"

	// ModeMinimal emits only the fields needed to identify a work.
	ModeMinimal Mode = "minimal"
)

// ParseMode maps a raw mode name onto the enumerated set, defaulting
// to detailed.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeStandard:
		return ModeStandard
	case ModeMinimal:
		return ModeMinimal
	default:
		return ModeDetailed
	}
}

// fieldOrder is the emission order for known fields. archiveprefix is
// synthesized next to eprint when an arXiv ID is present.
var fieldOrder = []string{
	"author", "title", "journal", "booktitle", "year", "month",
	"volume", "number", "pages", "doi", "url", "eprint", "archiveprefix",
	"publisher", "editor", "series", "address", "organization",
	"school", "institution", "note", "keywords", "abstract",
}

// standardFields is the whitelist for ModeStandard.
var standardFields = map[string]bool{
	"author": true, "title": true, "journal": true, "booktitle": true,
	"year": true, "volume": true, "number": true, "pages": true,
	"doi": true, "month": true, "publisher": true, "editor": true,
	"school": true, "institution": true, "series": true,
	"eprint": true, "archiveprefix": true,
}

// minimalFields is the whitelist for ModeMinimal.
var minimalFields = map[string]bool{
	"author": true, "title": true, "journal": true, "booktitle": true,
	"year": true, "eprint": true, "archiveprefix": true,
}

// includeField reports whether mode emits the named field.
func includeField(mode Mode, name string) bool {
	switch mode {
	case ModeStandard:
		return standardFields[name]
	case ModeMinimal:
		return minimalFields[name]
	default:
		return true
	}
}

// Serialize renders a single record as a BibTeX block.
func Serialize(r *record.Record, mode Mode) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", r.Type, r.CitationKey))

	for _, name := range fieldOrder {
		if !includeField(mode, name) {
			continue
		}
		if name == "archiveprefix" {
			if r.ArxivID != "" {
				b.WriteString("  archiveprefix = {arXiv},\n")
			}
			continue
		}
		value, _ := r.Field(name)
		if value == "" {
			continue
		}
		writeField(&b, name, value)
	}

	if mode == ModeDetailed {
		names := r.Extra.Names()
		sort.Strings(names)
		for _, name := range names {
			value, _ := r.Extra.Get(name)
			if value == "" {
				continue
			}
			writeField(&b, name, value)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// SerializeAll renders records as blank-line separated blocks.
func SerializeAll(records []*record.Record, mode Mode) string {
	blocks := make([]string, len(records))
	for i, r := range records {
		blocks[i] = Serialize(r, mode)
	}
	return strings.Join(blocks, "\n")
}

// writeField emits one "  name = {value}," line. The month field is
// emitted bare when its value is already a canonical abbreviation,
// matching bibliography-style literals.
func writeField(b *strings.Builder, name, value string) {
	if name == "month" && record.IsMonthAbbrev(value) {
		b.WriteString(fmt.Sprintf("  month = %s,\n", value))
		return
	}
	b.WriteString(fmt.Sprintf("  %s = {%s},\n", name, value))
}
