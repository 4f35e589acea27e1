// Package store persists bibliographic records in a SQLite database
// with full-text search over titles, authors, and abstracts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bibfold/bibfold/internal/record"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database holding the reference library.
type DB struct {
	db *sql.DB
}

// Entry is a stored record together with its row metadata.
type Entry struct {
	ID                 int64          `json:"id"`
	Record             *record.Record `json:"record"`
	RawBibtex          string         `json:"raw_bibtex,omitempty"`
	ValidationStatus   string         `json:"validation_status,omitempty"`
	ValidationMessages []string       `json:"validation_messages,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// selectEntryFields is the standard column list for SELECT queries.
const selectEntryFields = `id, citation_key, entry_type,
	author, title, journal, booktitle, year, month,
	volume, number, pages, doi, url, arxiv_id,
	publisher, editor, series, address, organization,
	school, institution, note, keywords, abstract,
	extra_json, raw_bibtex, validation_status, validation_messages,
	source, created_at, updated_at`

var arxivVersionRe = regexp.MustCompile(`v\d+$`)

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			citation_key TEXT NOT NULL UNIQUE,
			entry_type TEXT NOT NULL,
			author TEXT,
			title TEXT,
			journal TEXT,
			booktitle TEXT,
			year TEXT,
			month TEXT,
			volume TEXT,
			number TEXT,
			pages TEXT,
			doi TEXT,
			url TEXT,
			arxiv_id TEXT,
			publisher TEXT,
			editor TEXT,
			series TEXT,
			address TEXT,
			organization TEXT,
			school TEXT,
			institution TEXT,
			note TEXT,
			keywords TEXT,
			abstract TEXT,
			extra_json TEXT,
			raw_bibtex TEXT,
			validation_status TEXT,
			validation_messages TEXT,
			source TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_entries_doi ON entries(doi) WHERE doi IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_entries_arxiv ON entries(arxiv_id) WHERE arxiv_id IS NOT NULL;

		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			citation_key,
			title,
			author,
			abstract,
			keywords
		);
	`

	_, err := db.Exec(schema)
	return err
}

// Insert stores an entry and returns its row id. The citation key must
// be unique across the database.
func (d *DB) Insert(entry *Entry) (int64, error) {
	rec := entry.Record
	extraJSON, messagesJSON, err := encodeJSONFields(entry)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := d.db.Exec(`
		INSERT INTO entries (
			citation_key, entry_type,
			author, title, journal, booktitle, year, month,
			volume, number, pages, doi, url, arxiv_id,
			publisher, editor, series, address, organization,
			school, institution, note, keywords, abstract,
			extra_json, raw_bibtex, validation_status, validation_messages,
			source, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entryArgs(entry, extraJSON, messagesJSON, now, now)...)
	if err != nil {
		return 0, fmt.Errorf("inserting entry %s: %w", rec.CitationKey, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := d.insertFTS(rec); err != nil {
		return 0, fmt.Errorf("indexing entry %s: %w", rec.CitationKey, err)
	}
	return id, nil
}

// Update replaces the stored entry at id, keeping its creation time.
func (d *DB) Update(id int64, entry *Entry) error {
	old, err := d.GetByID(id)
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("entry %d not found", id)
	}

	rec := entry.Record
	extraJSON, messagesJSON, err := encodeJSONFields(entry)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)

	args := entryArgs(entry, extraJSON, messagesJSON, old.CreatedAt.UTC().Format(time.RFC3339), now)
	args = append(args, id)
	_, err = d.db.Exec(`
		UPDATE entries SET
			citation_key = ?, entry_type = ?,
			author = ?, title = ?, journal = ?, booktitle = ?, year = ?, month = ?,
			volume = ?, number = ?, pages = ?, doi = ?, url = ?, arxiv_id = ?,
			publisher = ?, editor = ?, series = ?, address = ?, organization = ?,
			school = ?, institution = ?, note = ?, keywords = ?, abstract = ?,
			extra_json = ?, raw_bibtex = ?, validation_status = ?, validation_messages = ?,
			source = ?, created_at = ?, updated_at = ?
		WHERE id = ?
	`, args...)
	if err != nil {
		return fmt.Errorf("updating entry %d: %w", id, err)
	}

	if _, err := d.db.Exec(`DELETE FROM entries_fts WHERE citation_key = ?`, old.Record.CitationKey); err != nil {
		return fmt.Errorf("reindexing entry %s: %w", rec.CitationKey, err)
	}
	return d.insertFTS(rec)
}

// Delete removes an entry by row id.
func (d *DB) Delete(id int64) error {
	entry, err := d.GetByID(id)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("entry %d not found", id)
	}

	if _, err := d.db.Exec(`DELETE FROM entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting entry %d: %w", id, err)
	}
	_, err = d.db.Exec(`DELETE FROM entries_fts WHERE citation_key = ?`, entry.Record.CitationKey)
	return err
}

// GetByID retrieves an entry by row id, or nil when absent.
func (d *DB) GetByID(id int64) (*Entry, error) {
	row := d.db.QueryRow(`SELECT `+selectEntryFields+` FROM entries WHERE id = ?`, id)
	return scanEntry(row)
}

// GetByKey retrieves an entry by citation key, or nil when absent.
func (d *DB) GetByKey(key string) (*Entry, error) {
	row := d.db.QueryRow(`SELECT `+selectEntryFields+` FROM entries WHERE citation_key = ?`, key)
	return scanEntry(row)
}

// All returns every entry, newest first.
func (d *DB) All() ([]Entry, error) {
	rows, err := d.db.Query(`SELECT ` + selectEntryFields + ` FROM entries ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// FindByDOI returns entries whose DOI matches, ignoring case.
func (d *DB) FindByDOI(doi string) ([]Entry, error) {
	rows, err := d.db.Query(`SELECT `+selectEntryFields+` FROM entries WHERE LOWER(doi) = LOWER(?)`, doi)
	if err != nil {
		return nil, fmt.Errorf("finding by doi: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// FindByArxivID returns entries whose arXiv id matches, ignoring any
// version suffix on either side.
func (d *DB) FindByArxivID(id string) ([]Entry, error) {
	base := arxivVersionRe.ReplaceAllString(id, "")
	rows, err := d.db.Query(`
		SELECT `+selectEntryFields+`
		FROM entries
		WHERE arxiv_id = ? OR arxiv_id LIKE ?`, base, base+"v%")
	if err != nil {
		return nil, fmt.Errorf("finding by arxiv id: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// SearchByTitle returns entries whose title contains the given text,
// ignoring case.
func (d *DB) SearchByTitle(title string) ([]Entry, error) {
	rows, err := d.db.Query(`
		SELECT `+selectEntryFields+`
		FROM entries
		WHERE title LIKE ?
		ORDER BY citation_key`, "%"+title+"%")
	if err != nil {
		return nil, fmt.Errorf("searching by title: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListFilters narrows List results. Zero values leave a filter off.
type ListFilters struct {
	Type   string // exact entry type
	Year   string // exact year
	Author string // substring match on the author field
	Limit  int
}

// List returns entries ordered by citation key, optionally filtered.
func (d *DB) List(filters ListFilters) ([]Entry, error) {
	query := `SELECT ` + selectEntryFields + ` FROM entries WHERE 1=1`
	var args []interface{}

	if filters.Type != "" {
		query += " AND entry_type = ?"
		args = append(args, filters.Type)
	}
	if filters.Year != "" {
		query += " AND year = ?"
		args = append(args, filters.Year)
	}
	if filters.Author != "" {
		query += " AND author LIKE ?"
		args = append(args, "%"+filters.Author+"%")
	}

	query += " ORDER BY citation_key"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Search performs a full-text search over indexed fields.
func (d *DB) Search(query string, limit int) ([]Entry, error) {
	ftsQuery := prepareFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := d.db.Query(`
		SELECT `+selectEntryFields+`
		FROM entries
		WHERE citation_key IN (SELECT citation_key FROM entries_fts WHERE entries_fts MATCH ?)
		ORDER BY citation_key
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ExistingKeys returns the set of citation keys in use.
func (d *DB) ExistingKeys() (map[string]bool, error) {
	rows, err := d.db.Query(`SELECT citation_key FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys[key] = true
	}
	return keys, rows.Err()
}

// Count returns the total number of entries.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&count)
	return count, err
}

func (d *DB) insertFTS(rec *record.Record) error {
	_, err := d.db.Exec(`
		INSERT INTO entries_fts (citation_key, title, author, abstract, keywords)
		VALUES (?, ?, ?, ?, ?)
	`, rec.CitationKey, rec.Title, rec.Author, rec.Abstract, rec.Keywords)
	return err
}

func encodeJSONFields(entry *Entry) (extraJSON, messagesJSON string, err error) {
	rec := entry.Record
	if rec.Extra.Len() > 0 {
		data, err := json.Marshal(rec.Extra)
		if err != nil {
			return "", "", fmt.Errorf("encoding extra fields for %s: %w", rec.CitationKey, err)
		}
		extraJSON = string(data)
	}
	if len(entry.ValidationMessages) > 0 {
		data, err := json.Marshal(entry.ValidationMessages)
		if err != nil {
			return "", "", fmt.Errorf("encoding validation messages for %s: %w", rec.CitationKey, err)
		}
		messagesJSON = string(data)
	}
	return extraJSON, messagesJSON, nil
}

// entryArgs builds the value list matching the insert column order.
func entryArgs(entry *Entry, extraJSON, messagesJSON, createdAt, updatedAt string) []interface{} {
	rec := entry.Record
	return []interface{}{
		rec.CitationKey, string(rec.Type),
		nullable(rec.Author), nullable(rec.Title), nullable(rec.Journal), nullable(rec.BookTitle),
		nullable(rec.Year), nullable(rec.Month),
		nullable(rec.Volume), nullable(rec.Number), nullable(rec.Pages),
		nullable(rec.DOI), nullable(rec.URL), nullable(rec.ArxivID),
		nullable(rec.Publisher), nullable(rec.Editor), nullable(rec.Series), nullable(rec.Address),
		nullable(rec.Organization), nullable(rec.School), nullable(rec.Institution),
		nullable(rec.Note), nullable(rec.Keywords), nullable(rec.Abstract),
		nullable(extraJSON), nullable(entry.RawBibtex), nullable(entry.ValidationStatus), nullable(messagesJSON),
		nullable(string(rec.Source)),
		createdAt, updatedAt,
	}
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*Entry, error) {
	var entry Entry
	rec := &record.Record{}
	var entryType, createdAt, updatedAt string
	var author, title, journal, booktitle, year, month sql.NullString
	var volume, number, pages, doi, urlField, arxivID sql.NullString
	var publisher, editor, series, address, organization sql.NullString
	var school, institution, note, keywords, abstract sql.NullString
	var extraJSON, rawBibtex, validationStatus, messagesJSON, source sql.NullString

	err := s.Scan(
		&entry.ID, &rec.CitationKey, &entryType,
		&author, &title, &journal, &booktitle, &year, &month,
		&volume, &number, &pages, &doi, &urlField, &arxivID,
		&publisher, &editor, &series, &address, &organization,
		&school, &institution, &note, &keywords, &abstract,
		&extraJSON, &rawBibtex, &validationStatus, &messagesJSON,
		&source, &createdAt, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rec.Type = record.EntryType(entryType)
	rec.Author = author.String
	rec.Title = title.String
	rec.Journal = journal.String
	rec.BookTitle = booktitle.String
	rec.Year = year.String
	rec.Month = month.String
	rec.Volume = volume.String
	rec.Number = number.String
	rec.Pages = pages.String
	rec.DOI = doi.String
	rec.URL = urlField.String
	rec.ArxivID = arxivID.String
	rec.Publisher = publisher.String
	rec.Editor = editor.String
	rec.Series = series.String
	rec.Address = address.String
	rec.Organization = organization.String
	rec.School = school.String
	rec.Institution = institution.String
	rec.Note = note.String
	rec.Keywords = keywords.String
	rec.Abstract = abstract.String
	rec.Source = record.Source(source.String)

	if extraJSON.Valid && extraJSON.String != "" {
		if err := json.Unmarshal([]byte(extraJSON.String), &rec.Extra); err != nil {
			return nil, fmt.Errorf("decoding extra fields for %s: %w", rec.CitationKey, err)
		}
	}
	if messagesJSON.Valid && messagesJSON.String != "" {
		if err := json.Unmarshal([]byte(messagesJSON.String), &entry.ValidationMessages); err != nil {
			return nil, fmt.Errorf("decoding validation messages for %s: %w", rec.CitationKey, err)
		}
	}

	entry.Record = rec
	entry.RawBibtex = rawBibtex.String
	entry.ValidationStatus = validationStatus.String
	if entry.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for %s: %w", rec.CitationKey, err)
	}
	if entry.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at for %s: %w", rec.CitationKey, err)
	}

	return &entry, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries, rows.Err()
}

// nullable converts a string to sql.NullString, treating empty as NULL.
func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	if strings.ContainsAny(query, "\"*+-:(){}[]^~") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}
