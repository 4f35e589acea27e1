package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/bibfold/bibfold/internal/abbrev"
	"github.com/bibfold/bibfold/internal/bibtex"
	"github.com/bibfold/bibfold/internal/dedupe"
	"github.com/bibfold/bibfold/internal/record"
	"github.com/bibfold/bibfold/internal/resolve"
	"github.com/bibfold/bibfold/internal/store"
	"github.com/bibfold/bibfold/internal/validate"
)

// handleHealth reports liveness and the library size.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.db.Count()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"entries": count,
	})
}

// listEntries handles GET /api/entries with optional type, year,
// author, and limit filters. Without filters, entries come back
// newest first.
func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := store.ListFilters{
		Type:   q.Get("type"),
		Year:   q.Get("year"),
		Author: q.Get("author"),
		Limit:  parseInt(q.Get("limit"), 0),
	}

	var entries []store.Entry
	var err error
	if filters == (store.ListFilters{}) {
		entries, err = s.db.All()
	} else {
		entries, err = s.db.List(filters)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// createEntry handles POST /api/entries. The body is either
// {"bibtex": "..."} or a flat field map with at least entry_type.
// Either way the record is normalized, given a fresh citation key,
// validated, and stored.
func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(fields) == 0 {
		respondError(w, http.StatusBadRequest, "no data provided")
		return
	}

	var rec *record.Record
	if src, ok := fields["bibtex"]; ok {
		records, err := bibtex.Parse(src)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(records) == 0 {
			respondError(w, http.StatusBadRequest, "no entries found in BibTeX")
			return
		}
		rec = records[0]
	} else {
		if fields["entry_type"] == "" {
			respondError(w, http.StatusBadRequest, "missing required field: entry_type")
			return
		}
		rec = recordFromFields(fields)
	}
	if rec.Source == "" {
		rec.Source = record.SourceManual
	}

	keys, err := s.db.ExistingKeys()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.norm.Normalize(rec, keys); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry := &store.Entry{Record: rec}
	annotate(entry)
	id, err := s.db.Insert(entry)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.db.GetByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	entry, err := s.db.GetByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entry == nil {
		respondError(w, http.StatusNotFound, "entry not found")
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// updateEntry handles PUT /api/entries/{id}. The body is a flat field
// map; named fields are overwritten, everything else is left alone,
// and the entry is re-validated. Updates never re-normalize, so a
// hand-edited citation key survives.
func (s *Server) updateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(updates) == 0 {
		respondError(w, http.StatusBadRequest, "no data provided")
		return
	}

	entry, err := s.db.GetByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entry == nil {
		respondError(w, http.StatusNotFound, "entry not found")
		return
	}

	for name, value := range updates {
		applyField(entry.Record, name, value)
	}
	annotate(entry)
	if err := s.db.Update(id, entry); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := s.db.GetByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	entry, err := s.db.GetByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entry == nil {
		respondError(w, http.StatusNotFound, "entry not found")
		return
	}
	if err := s.db.Delete(id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// importReport summarizes one import run.
type importReport struct {
	Imported   []store.Entry     `json:"imported"`
	Duplicates []importDuplicate `json:"duplicates"`
	Errors     []importError     `json:"errors"`
}

type importDuplicate struct {
	NewEntry      *record.Record `json:"new_entry"`
	ExistingEntry store.Entry    `json:"existing_entry"`
	Confidence    float64        `json:"confidence"`
	Reason        string         `json:"reason"`
}

type importError struct {
	CitationKey string `json:"citation_key"`
	Error       string `json:"error"`
}

// handleImport handles POST /api/import. Each parsed record is
// normalized and checked against the library; duplicates are reported
// rather than inserted.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	src, err := importBody(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := bibtex.Parse(src)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(records) == 0 {
		respondError(w, http.StatusBadRequest, "no entries found in BibTeX")
		return
	}

	existing, err := s.db.All()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	keys := make(map[string]bool, len(existing))
	for i := range existing {
		keys[existing[i].Record.CitationKey] = true
	}

	report := importReport{
		Imported:   []store.Entry{},
		Duplicates: []importDuplicate{},
		Errors:     []importError{},
	}
	for _, rec := range records {
		rec.Source = record.SourceImport
		if err := s.norm.Normalize(rec, keys); err != nil {
			report.Errors = append(report.Errors, importError{
				CitationKey: rec.CitationKey,
				Error:       err.Error(),
			})
			continue
		}

		if dup := findDuplicate(rec, existing); dup != nil {
			report.Duplicates = append(report.Duplicates, *dup)
			continue
		}

		entry := &store.Entry{Record: rec}
		annotate(entry)
		id, err := s.db.Insert(entry)
		if err != nil {
			report.Errors = append(report.Errors, importError{
				CitationKey: rec.CitationKey,
				Error:       err.Error(),
			})
			continue
		}
		created, err := s.db.GetByID(id)
		if err != nil {
			report.Errors = append(report.Errors, importError{
				CitationKey: rec.CitationKey,
				Error:       err.Error(),
			})
			continue
		}
		existing = append(existing, *created)
		report.Imported = append(report.Imported, *created)
	}
	respondJSON(w, http.StatusOK, report)
}

// findDuplicate returns the first stored entry that duplicates rec.
func findDuplicate(rec *record.Record, existing []store.Entry) *importDuplicate {
	for i := range existing {
		if m := dedupe.CheckDuplicate(rec, existing[i].Record); m != nil {
			return &importDuplicate{
				NewEntry:      rec,
				ExistingEntry: existing[i],
				Confidence:    m.Confidence,
				Reason:        m.Reason,
			}
		}
	}
	return nil
}

// importBody extracts BibTeX from the request: a JSON object with a
// "bibtex" key, or the raw request body.
func importBody(r *http.Request) (string, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", fmt.Errorf("reading request body: %w", err)
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Bibtex string `json:"bibtex"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return "", errors.New("invalid JSON body")
		}
		if req.Bibtex == "" {
			return "", errors.New("no BibTeX data provided")
		}
		return req.Bibtex, nil
	}
	if strings.TrimSpace(string(body)) == "" {
		return "", errors.New("no BibTeX data provided")
	}
	return string(body), nil
}

var exportFilenames = map[bibtex.Mode]string{
	bibtex.ModeDetailed: "references_detailed.bib",
	bibtex.ModeStandard: "references.bib",
	bibtex.ModeMinimal:  "references_minimal.bib",
}

// handleExport handles GET /api/export?mode=&abbrev=. The response is
// a downloadable .bib file; abbrev=true rewrites journal and booktitle
// to their abbreviated forms.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	mode := bibtex.ParseMode(r.URL.Query().Get("mode"))
	useAbbrev := boolParam(r.URL.Query().Get("abbrev"))

	entries, err := s.db.All()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	records := make([]*record.Record, len(entries))
	for i := range entries {
		rec := entries[i].Record
		if useAbbrev {
			if rec.Journal != "" {
				rec.Journal = abbrev.Abbreviate(rec.Journal)
			}
			if rec.BookTitle != "" {
				rec.BookTitle = abbrev.Abbreviate(rec.BookTitle)
			}
		}
		records[i] = rec
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilenames[mode]+`"`)
	io.WriteString(w, bibtex.SerializeAll(records, mode))
}

// handleSearch handles GET /api/search?q=&limit=, proxying the
// resolver's provider search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "no query provided")
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 0)

	results, err := s.resolver.Search(r.Context(), query, limit)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	if results == nil {
		results = []resolve.SearchResult{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"results": results,
	})
}

// resolveResponse is a stored entry plus resolution provenance.
type resolveResponse struct {
	*store.Entry
	SourceInfo resolve.SourceInfo `json:"source_info"`
}

// handleResolve handles POST /api/resolve: resolve the query against
// the providers and store the resulting record.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, "no query provided")
		return
	}

	keys, err := s.db.ExistingKeys()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	outcome := s.resolver.Resolve(r.Context(), req.Query, keys)
	if outcome.Record == nil {
		respondError(w, http.StatusNotFound, outcome.Err)
		return
	}

	entry := &store.Entry{Record: outcome.Record}
	annotate(entry)
	id, err := s.db.Insert(entry)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	created, err := s.db.GetByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, resolveResponse{
		Entry:      created,
		SourceInfo: outcome.SourceInfo,
	})
}

// handleDuplicates handles GET /api/duplicates?threshold=.
func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	threshold := dedupe.DefaultThreshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > 1 {
			respondError(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		threshold = f
	}

	entries, err := s.db.All()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	records := make([]*record.Record, len(entries))
	for i := range entries {
		records[i] = entries[i].Record
	}
	matches := dedupe.FindDuplicates(records, threshold)
	if matches == nil {
		matches = []dedupe.Match{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"duplicates": matches})
}

// handleMerge handles POST /api/merge: fold the secondary entry into
// the primary and delete it. The primary's values win on conflicts.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PrimaryID   int64 `json:"primary_id"`
		SecondaryID int64 `json:"secondary_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PrimaryID == 0 || req.SecondaryID == 0 {
		respondError(w, http.StatusBadRequest, "provide primary_id and secondary_id")
		return
	}

	primary, err := s.db.GetByID(req.PrimaryID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	secondary, err := s.db.GetByID(req.SecondaryID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if primary == nil || secondary == nil {
		respondError(w, http.StatusNotFound, "entry not found")
		return
	}

	primary.Record = dedupe.Merge(primary.Record, secondary.Record)
	annotate(primary)
	if err := s.db.Update(req.PrimaryID, primary); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.db.Delete(req.SecondaryID); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	merged, err := s.db.GetByID(req.PrimaryID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, merged)
}

// handleNormalize handles POST /api/normalize: re-normalize every
// entry against a fresh key set.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	entries, err := s.db.All()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	keys := make(map[string]bool)
	count := 0
	for i := range entries {
		entry := &entries[i]
		if err := s.norm.Normalize(entry.Record, keys); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		annotate(entry)
		if err := s.db.Update(entry.ID, entry); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		count++
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("normalized %d entries", count),
		"count":   count,
	})
}

// annotate refreshes the entry's validation result and raw BibTeX
// rendering from its current record.
func annotate(entry *store.Entry) {
	res := validate.Check(entry.Record)
	entry.ValidationStatus = string(res.Status)
	entry.ValidationMessages = res.Messages
	entry.RawBibtex = bibtex.Serialize(entry.Record, bibtex.ModeDetailed)
}

// recordFromFields builds a record from a flat JSON field map.
// Unrecognized names become extra fields, in name order since JSON
// objects carry none.
func recordFromFields(fields map[string]string) *record.Record {
	rec := &record.Record{Type: record.ParseEntryType(fields["entry_type"])}
	var extras []string
	for name, value := range fields {
		switch name {
		case "entry_type":
		case "citation_key":
			rec.CitationKey = value
		case "source":
			rec.Source = record.Source(value)
		case "arxiv_id":
			rec.ArxivID = value
		default:
			if !rec.SetField(name, value) {
				extras = append(extras, name)
			}
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		rec.Extra.Set(name, fields[name])
	}
	return rec
}

// applyField assigns one updatable field by its JSON name. Unknown
// names are ignored, so extras and provenance stay untouched.
func applyField(rec *record.Record, name, value string) {
	switch name {
	case "citation_key":
		rec.CitationKey = value
	case "entry_type":
		rec.Type = record.ParseEntryType(value)
	case "arxiv_id":
		rec.ArxivID = value
	default:
		rec.SetField(name, value)
	}
}

// entryID parses the {id} path segment, responding with 400 on junk.
func entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid entry id")
		return 0, false
	}
	return id, true
}

// parseInt parses an integer parameter, returning fallback on empty
// or malformed input.
func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

// boolParam reports whether a query flag is set.
func boolParam(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

// respondError writes a JSON error body with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}
