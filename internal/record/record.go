// Package record defines the core domain types for bibliographic entries.
package record

import "strings"

// EntryType classifies a bibliographic entry.
type EntryType string

const (
	TypeArticle       EntryType = "article"
	TypeBook          EntryType = "book"
	TypeBooklet       EntryType = "booklet"
	TypeConference    EntryType = "conference"
	TypeInBook        EntryType = "inbook"
	TypeInCollection  EntryType = "incollection"
	TypeInProceedings EntryType = "inproceedings"
	TypeManual        EntryType = "manual"
	TypeMastersThesis EntryType = "mastersthesis"
	TypeMisc          EntryType = "misc"
	TypePhDThesis     EntryType = "phdthesis"
	TypeProceedings   EntryType = "proceedings"
	TypeTechReport    EntryType = "techreport"
	TypeUnpublished   EntryType = "unpublished"
)

// entryTypes is the closed set of recognized entry types.
var entryTypes = map[EntryType]bool{
	TypeArticle:       true,
	TypeBook:          true,
	TypeBooklet:       true,
	TypeConference:    true,
	TypeInBook:        true,
	TypeInCollection:  true,
	TypeInProceedings: true,
	TypeManual:        true,
	TypeMastersThesis: true,
	TypeMisc:          true,
	TypePhDThesis:     true,
	TypeProceedings:   true,
	TypeTechReport:    true,
	TypeUnpublished:   true,
}

// ParseEntryType maps a raw type name onto the enumerated set.
// Unknown names coerce to misc.
func ParseEntryType(s string) EntryType {
	t := EntryType(strings.ToLower(strings.TrimSpace(s)))
	if entryTypes[t] {
		return t
	}
	return TypeMisc
}

// Source tracks which metadata path produced a record.
type Source string

const (
	SourceManual          Source = "manual"
	SourceImport          Source = "import"
	SourceScholar         Source = "scholar"
	SourceSemanticScholar Source = "semantic_scholar"
	SourceCrossRef        Source = "crossref"
	SourceArxiv           Source = "arxiv"
)

// Record represents a single bibliographic entry.
type Record struct {
	// Identity
	CitationKey string    `json:"citation_key"`
	Type        EntryType `json:"entry_type"`

	// Core fields. All optional; empty string means absent.
	Author       string `json:"author,omitempty"`
	Title        string `json:"title,omitempty"`
	Journal      string `json:"journal,omitempty"`
	BookTitle    string `json:"booktitle,omitempty"`
	Year         string `json:"year,omitempty"`
	Month        string `json:"month,omitempty"`
	Volume       string `json:"volume,omitempty"`
	Number       string `json:"number,omitempty"`
	Pages        string `json:"pages,omitempty"`
	DOI          string `json:"doi,omitempty"`
	URL          string `json:"url,omitempty"`
	ArxivID      string `json:"arxiv_id,omitempty"`
	Publisher    string `json:"publisher,omitempty"`
	Editor       string `json:"editor,omitempty"`
	Series       string `json:"series,omitempty"`
	Address      string `json:"address,omitempty"`
	Organization string `json:"organization,omitempty"`
	School       string `json:"school,omitempty"`
	Institution  string `json:"institution,omitempty"`
	Note         string `json:"note,omitempty"`
	Keywords     string `json:"keywords,omitempty"`
	Abstract     string `json:"abstract,omitempty"`

	// Extra holds unrecognized fields verbatim, in first-seen order.
	Extra Fields `json:"extra"`

	// Provenance
	Source Source `json:"source,omitempty"`
}

// knownFields maps interchange field names onto Record accessors.
// Accessor pairs keep field dispatch explicit instead of reflective.
var knownFields = map[string]struct {
	get func(*Record) string
	set func(*Record, string)
}{
	"author":       {func(r *Record) string { return r.Author }, func(r *Record, v string) { r.Author = v }},
	"title":        {func(r *Record) string { return r.Title }, func(r *Record, v string) { r.Title = v }},
	"journal":      {func(r *Record) string { return r.Journal }, func(r *Record, v string) { r.Journal = v }},
	"booktitle":    {func(r *Record) string { return r.BookTitle }, func(r *Record, v string) { r.BookTitle = v }},
	"year":         {func(r *Record) string { return r.Year }, func(r *Record, v string) { r.Year = v }},
	"month":        {func(r *Record) string { return r.Month }, func(r *Record, v string) { r.Month = v }},
	"volume":       {func(r *Record) string { return r.Volume }, func(r *Record, v string) { r.Volume = v }},
	"number":       {func(r *Record) string { return r.Number }, func(r *Record, v string) { r.Number = v }},
	"pages":        {func(r *Record) string { return r.Pages }, func(r *Record, v string) { r.Pages = v }},
	"doi":          {func(r *Record) string { return r.DOI }, func(r *Record, v string) { r.DOI = v }},
	"url":          {func(r *Record) string { return r.URL }, func(r *Record, v string) { r.URL = v }},
	"eprint":       {func(r *Record) string { return r.ArxivID }, func(r *Record, v string) { r.ArxivID = v }},
	"publisher":    {func(r *Record) string { return r.Publisher }, func(r *Record, v string) { r.Publisher = v }},
	"editor":       {func(r *Record) string { return r.Editor }, func(r *Record, v string) { r.Editor = v }},
	"series":       {func(r *Record) string { return r.Series }, func(r *Record, v string) { r.Series = v }},
	"address":      {func(r *Record) string { return r.Address }, func(r *Record, v string) { r.Address = v }},
	"organization": {func(r *Record) string { return r.Organization }, func(r *Record, v string) { r.Organization = v }},
	"school":       {func(r *Record) string { return r.School }, func(r *Record, v string) { r.School = v }},
	"institution":  {func(r *Record) string { return r.Institution }, func(r *Record, v string) { r.Institution = v }},
	"note":         {func(r *Record) string { return r.Note }, func(r *Record, v string) { r.Note = v }},
	"keywords":     {func(r *Record) string { return r.Keywords }, func(r *Record, v string) { r.Keywords = v }},
	"abstract":     {func(r *Record) string { return r.Abstract }, func(r *Record, v string) { r.Abstract = v }},
}

// IsKnownField reports whether name maps onto a Record struct field.
// The interchange name "eprint" maps onto ArxivID.
func IsKnownField(name string) bool {
	_, ok := knownFields[name]
	return ok
}

// Field returns the value of the named known field and whether the
// name is recognized.
func (r *Record) Field(name string) (string, bool) {
	f, ok := knownFields[name]
	if !ok {
		return "", false
	}
	return f.get(r), true
}

// SetField assigns the named known field. It reports whether the name
// was recognized; unrecognized names are left to the caller to stash
// in Extra.
func (r *Record) SetField(name, value string) bool {
	f, ok := knownFields[name]
	if !ok {
		return false
	}
	f.set(r, value)
	return true
}

// FieldNames lists every known interchange field name. Order is not
// specified; serialization order lives in the codec.
func FieldNames() []string {
	names := make([]string, 0, len(knownFields))
	for name := range knownFields {
		names = append(names, name)
	}
	return names
}

// Clone returns a deep copy, including the Extra mapping.
func (r *Record) Clone() *Record {
	c := *r
	c.Extra = r.Extra.Clone()
	return &c
}
