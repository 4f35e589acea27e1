package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bibfold/bibfold/internal/record"
)

// setupTestDB creates a test database seeded with three entries.
func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	db, err := Open(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	recs := []*record.Record{
		{
			CitationKey: "He2016Deep",
			Type:        record.TypeInProceedings,
			Author:      "He, Kaiming and Zhang, Xiangyu and Ren, Shaoqing and Sun, Jian",
			Title:       "Deep Residual Learning for Image Recognition",
			BookTitle:   "Proceedings of the {IEEE} Conference on Computer Vision and Pattern Recognition",
			Year:        "2016",
			Pages:       "770--778",
			DOI:         "10.1109/CVPR.2016.90",
			Abstract:    "Deeper neural networks are more difficult to train.",
			Source:      record.SourceCrossRef,
		},
		{
			CitationKey: "Vaswani2017Attention",
			Type:        record.TypeArticle,
			Author:      "Vaswani, Ashish and Shazeer, Noam",
			Title:       "Attention Is All You Need",
			Journal:     "Advances in Neural Information Processing Systems",
			Year:        "2017",
			ArxivID:     "1706.03762",
			Source:      record.SourceArxiv,
		},
		{
			CitationKey: "Goodfellow2016Deep",
			Type:        record.TypeBook,
			Author:      "Goodfellow, Ian and Bengio, Yoshua and Courville, Aaron",
			Title:       "Deep Learning",
			Year:        "2016",
			Publisher:   "MIT Press",
			Keywords:    "neural networks, optimization",
			Source:      record.SourceManual,
		},
	}
	for _, rec := range recs {
		if _, err := db.Insert(&Entry{Record: rec}); err != nil {
			db.Close()
			t.Fatalf("Insert(%s) error = %v", rec.CitationKey, err)
		}
	}

	cleanup := func() {
		db.Close()
	}
	return db, cleanup
}

func TestOpen_CreatesFile(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "library.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Open() did not create database file")
	}
}

func TestDB_InsertAndGetByKey(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	rec := &record.Record{
		CitationKey: "Kingma2015Adam",
		Type:        record.TypeInProceedings,
		Author:      "Kingma, Diederik P. and Ba, Jimmy",
		Title:       "Adam: {A} Method for Stochastic Optimization",
		BookTitle:   "International Conference on Learning Representations",
		Year:        "2015",
		Month:       "may",
		ArxivID:     "1412.6980",
		URL:         "https://arxiv.org/abs/1412.6980",
		Note:        "Poster session",
		Source:      record.SourceScholar,
	}
	rec.Extra.Set("eventtitle", "ICLR 2015")
	rec.Extra.Set("venue", "San Diego")

	id, err := db.Insert(&Entry{
		Record:             rec,
		RawBibtex:          "@inproceedings{kingma2015adam, title={Adam}}",
		ValidationStatus:   "warning",
		ValidationMessages: []string{"missing recommended field: pages"},
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if id == 0 {
		t.Error("Insert() returned id 0")
	}

	entry, err := db.GetByKey("Kingma2015Adam")
	if err != nil {
		t.Fatalf("GetByKey() error = %v", err)
	}
	if entry == nil {
		t.Fatal("GetByKey() returned nil")
	}

	got := entry.Record
	if got.Type != record.TypeInProceedings {
		t.Errorf("Type = %q, want inproceedings", got.Type)
	}
	if got.Author != rec.Author {
		t.Errorf("Author = %q, want %q", got.Author, rec.Author)
	}
	if got.Title != rec.Title {
		t.Errorf("Title = %q, want %q", got.Title, rec.Title)
	}
	if got.Month != "may" {
		t.Errorf("Month = %q, want may", got.Month)
	}
	if got.ArxivID != "1412.6980" {
		t.Errorf("ArxivID = %q, want 1412.6980", got.ArxivID)
	}
	if got.Source != record.SourceScholar {
		t.Errorf("Source = %q, want scholar", got.Source)
	}
	if v, ok := got.Extra.Get("eventtitle"); !ok || v != "ICLR 2015" {
		t.Errorf("Extra eventtitle = %q, %v", v, ok)
	}
	if names := got.Extra.Names(); len(names) != 2 || names[0] != "eventtitle" || names[1] != "venue" {
		t.Errorf("Extra field order = %v, want [eventtitle venue]", names)
	}
	if !strings.Contains(entry.RawBibtex, "kingma2015adam") {
		t.Errorf("RawBibtex = %q, want original text", entry.RawBibtex)
	}
	if entry.ValidationStatus != "warning" {
		t.Errorf("ValidationStatus = %q, want warning", entry.ValidationStatus)
	}
	if len(entry.ValidationMessages) != 1 || !strings.Contains(entry.ValidationMessages[0], "pages") {
		t.Errorf("ValidationMessages = %v", entry.ValidationMessages)
	}
	if entry.CreatedAt.IsZero() || entry.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestDB_InsertDuplicateKey(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := db.Insert(&Entry{Record: &record.Record{
		CitationKey: "He2016Deep",
		Type:        record.TypeMisc,
		Title:       "Another Paper",
	}})
	if err == nil {
		t.Fatal("Insert() with duplicate key succeeded, want error")
	}
	if !strings.Contains(err.Error(), "He2016Deep") {
		t.Errorf("error = %v, want mention of the key", err)
	}
}

func TestDB_GetByID(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	entry, err := db.GetByKey("He2016Deep")
	if err != nil || entry == nil {
		t.Fatalf("GetByKey() = %v, %v", entry, err)
	}

	byID, err := db.GetByID(entry.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID == nil || byID.Record.CitationKey != "He2016Deep" {
		t.Errorf("GetByID() = %+v, want He2016Deep", byID)
	}

	missing, err := db.GetByID(99999)
	if err != nil {
		t.Fatalf("GetByID(99999) error = %v", err)
	}
	if missing != nil {
		t.Errorf("GetByID(99999) = %+v, want nil", missing)
	}
}

func TestDB_All_NewestFirst(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	entries, err := db.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("All() = %d entries, want 3", len(entries))
	}
	if entries[0].Record.CitationKey != "Goodfellow2016Deep" {
		t.Errorf("All()[0] = %s, want Goodfellow2016Deep (newest)", entries[0].Record.CitationKey)
	}
	if entries[2].Record.CitationKey != "He2016Deep" {
		t.Errorf("All()[2] = %s, want He2016Deep (oldest)", entries[2].Record.CitationKey)
	}
}

func TestDB_Update(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	entry, err := db.GetByKey("Vaswani2017Attention")
	if err != nil || entry == nil {
		t.Fatalf("GetByKey() = %v, %v", entry, err)
	}

	updated := *entry
	rec := *entry.Record
	rec.CitationKey = "Vaswani2017AttentionB"
	rec.Journal = ""
	rec.Type = record.TypeInProceedings
	rec.BookTitle = "Advances in Neural Information Processing Systems"
	updated.Record = &rec
	updated.ValidationStatus = "valid"

	if err := db.Update(entry.ID, &updated); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	old, err := db.GetByKey("Vaswani2017Attention")
	if err != nil {
		t.Fatalf("GetByKey(old) error = %v", err)
	}
	if old != nil {
		t.Error("old citation key still present after update")
	}

	got, err := db.GetByKey("Vaswani2017AttentionB")
	if err != nil || got == nil {
		t.Fatalf("GetByKey(new) = %v, %v", got, err)
	}
	if got.Record.Type != record.TypeInProceedings {
		t.Errorf("Type = %q, want inproceedings", got.Record.Type)
	}
	if got.Record.BookTitle != rec.BookTitle {
		t.Errorf("BookTitle = %q, want %q", got.Record.BookTitle, rec.BookTitle)
	}
	if got.ValidationStatus != "valid" {
		t.Errorf("ValidationStatus = %q, want valid", got.ValidationStatus)
	}
	if !got.CreatedAt.Equal(entry.CreatedAt) {
		t.Errorf("CreatedAt changed on update: %v -> %v", entry.CreatedAt, got.CreatedAt)
	}
}

func TestDB_UpdateMissing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	err := db.Update(99999, &Entry{Record: &record.Record{CitationKey: "X", Type: record.TypeMisc}})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Update(99999) error = %v, want not found", err)
	}
}

func TestDB_Delete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	entry, err := db.GetByKey("Goodfellow2016Deep")
	if err != nil || entry == nil {
		t.Fatalf("GetByKey() = %v, %v", entry, err)
	}

	if err := db.Delete(entry.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	gone, err := db.GetByID(entry.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if gone != nil {
		t.Error("entry still present after delete")
	}

	if err := db.Delete(entry.ID); err == nil {
		t.Error("second Delete() succeeded, want not found error")
	}

	// The deleted entry must drop out of search results too.
	results, err := db.Search("optimization", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() after delete = %d results, want 0", len(results))
	}
}

func TestDB_FindByDOI(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	tests := []struct {
		doi  string
		want int
	}{
		{"10.1109/CVPR.2016.90", 1},
		{"10.1109/cvpr.2016.90", 1},
		{"10.9999/none", 0},
	}

	for _, tt := range tests {
		entries, err := db.FindByDOI(tt.doi)
		if err != nil {
			t.Fatalf("FindByDOI(%q) error = %v", tt.doi, err)
		}
		if len(entries) != tt.want {
			t.Errorf("FindByDOI(%q) = %d entries, want %d", tt.doi, len(entries), tt.want)
		}
	}
}

func TestDB_FindByArxivID(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	// Stored id carries a version, queries may not, and vice versa.
	if _, err := db.Insert(&Entry{Record: &record.Record{
		CitationKey: "Zhang2016Under",
		Type:        record.TypeMisc,
		Title:       "Understanding Deep Learning Requires Rethinking Generalization",
		ArxivID:     "1611.03530v2",
	}}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	tests := []struct {
		id      string
		wantKey string
	}{
		{"1706.03762", "Vaswani2017Attention"},
		{"1706.03762v5", "Vaswani2017Attention"},
		{"1611.03530", "Zhang2016Under"},
		{"1611.03530v1", "Zhang2016Under"},
	}

	for _, tt := range tests {
		entries, err := db.FindByArxivID(tt.id)
		if err != nil {
			t.Fatalf("FindByArxivID(%q) error = %v", tt.id, err)
		}
		if len(entries) != 1 || entries[0].Record.CitationKey != tt.wantKey {
			t.Errorf("FindByArxivID(%q) = %+v, want %s", tt.id, entries, tt.wantKey)
		}
	}

	none, err := db.FindByArxivID("9999.99999")
	if err != nil {
		t.Fatalf("FindByArxivID() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("FindByArxivID(miss) = %d entries, want 0", len(none))
	}
}

func TestDB_SearchByTitle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	entries, err := db.SearchByTitle("residual learning")
	if err != nil {
		t.Fatalf("SearchByTitle() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Record.CitationKey != "He2016Deep" {
		t.Errorf("SearchByTitle() = %+v, want He2016Deep", entries)
	}

	// Case-insensitive.
	entries, err = db.SearchByTitle("RESIDUAL")
	if err != nil {
		t.Fatalf("SearchByTitle() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("SearchByTitle(upper) = %d entries, want 1", len(entries))
	}

	none, err := db.SearchByTitle("nonexistent")
	if err != nil {
		t.Fatalf("SearchByTitle() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("SearchByTitle(miss) = %d entries, want 0", len(none))
	}
}

func TestDB_List(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	tests := []struct {
		name     string
		filters  ListFilters
		wantKeys []string
	}{
		{
			name:     "all ordered by key",
			filters:  ListFilters{},
			wantKeys: []string{"Goodfellow2016Deep", "He2016Deep", "Vaswani2017Attention"},
		},
		{
			name:     "by type",
			filters:  ListFilters{Type: "book"},
			wantKeys: []string{"Goodfellow2016Deep"},
		},
		{
			name:     "by year",
			filters:  ListFilters{Year: "2016"},
			wantKeys: []string{"Goodfellow2016Deep", "He2016Deep"},
		},
		{
			name:     "by author substring",
			filters:  ListFilters{Author: "Vaswani"},
			wantKeys: []string{"Vaswani2017Attention"},
		},
		{
			name:     "year and limit",
			filters:  ListFilters{Year: "2016", Limit: 1},
			wantKeys: []string{"Goodfellow2016Deep"},
		},
		{
			name:     "no match",
			filters:  ListFilters{Type: "phdthesis"},
			wantKeys: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := db.List(tt.filters)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			var keys []string
			for _, e := range entries {
				keys = append(keys, e.Record.CitationKey)
			}
			if len(keys) != len(tt.wantKeys) {
				t.Fatalf("List() keys = %v, want %v", keys, tt.wantKeys)
			}
			for i := range keys {
				if keys[i] != tt.wantKeys[i] {
					t.Errorf("List() keys = %v, want %v", keys, tt.wantKeys)
					break
				}
			}
		})
	}
}

func TestDB_Search(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	results, err := db.Search("residual", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Record.CitationKey != "He2016Deep" {
		t.Errorf("Search(residual) = %+v, want He2016Deep", results)
	}

	// Keywords are indexed too.
	results, err = db.Search("optimization", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Record.CitationKey != "Goodfellow2016Deep" {
		t.Errorf("Search(optimization) = %+v, want Goodfellow2016Deep", results)
	}

	// Queries with FTS operators get quoted rather than erroring.
	if _, err := db.Search(`attention "is" all`, 10); err != nil {
		t.Errorf("Search(quoted) error = %v", err)
	}

	none, err := db.Search("zzzzz", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Search(miss) = %d results, want 0", len(none))
	}
}

func TestDB_SearchReflectsUpdates(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	entry, err := db.GetByKey("Goodfellow2016Deep")
	if err != nil || entry == nil {
		t.Fatalf("GetByKey() = %v, %v", entry, err)
	}

	updated := *entry
	rec := *entry.Record
	rec.Title = "Probabilistic Graphical Models"
	rec.Keywords = ""
	updated.Record = &rec
	if err := db.Update(entry.ID, &updated); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	results, err := db.Search("graphical", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Record.CitationKey != "Goodfellow2016Deep" {
		t.Errorf("Search(new title) = %+v, want Goodfellow2016Deep", results)
	}

	stale, err := db.Search("optimization", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("Search(old keywords) = %d results, want 0", len(stale))
	}
}

func TestDB_ExistingKeys(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	keys, err := db.ExistingKeys()
	if err != nil {
		t.Fatalf("ExistingKeys() error = %v", err)
	}
	if len(keys) != 3 {
		t.Errorf("ExistingKeys() = %d keys, want 3", len(keys))
	}
	for _, want := range []string{"He2016Deep", "Vaswani2017Attention", "Goodfellow2016Deep"} {
		if !keys[want] {
			t.Errorf("ExistingKeys() missing %s", want)
		}
	}
}

func TestDB_Count(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	count, err := db.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}
