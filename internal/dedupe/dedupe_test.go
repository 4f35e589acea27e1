package dedupe

import (
	"testing"

	"github.com/bibfold/bibfold/internal/record"
)

func TestCheckDuplicate_DOIMatch(t *testing.T) {
	a := &record.Record{CitationKey: "A", DOI: "10.1000/xyz123", Title: "Completely Different"}
	b := &record.Record{CitationKey: "B", DOI: "10.1000/XYZ123", Title: "Another Title Entirely"}

	m := CheckDuplicate(a, b)
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.Confidence != 1.00 {
		t.Errorf("Confidence = %v, want 1.00", m.Confidence)
	}
	if m.KeyA != "A" || m.KeyB != "B" {
		t.Errorf("keys = %s/%s", m.KeyA, m.KeyB)
	}
}

func TestCheckDuplicate_ArxivVersions(t *testing.T) {
	a := &record.Record{CitationKey: "A", ArxivID: "2301.00001v1"}
	b := &record.Record{CitationKey: "B", ArxivID: "2301.00001v2"}

	m := CheckDuplicate(a, b)
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.Confidence != 0.98 {
		t.Errorf("Confidence = %v, want 0.98", m.Confidence)
	}

	c := &record.Record{CitationKey: "C", ArxivID: "2301.00002"}
	if m := CheckDuplicate(a, c); m != nil {
		t.Errorf("different arXiv IDs matched: %+v", m)
	}
}

func TestCheckDuplicate_TitleAndYear(t *testing.T) {
	a := &record.Record{
		CitationKey: "A",
		Title:       "Deep Residual Learning for Image Recognition",
		Year:        "2016",
	}
	b := &record.Record{
		CitationKey: "B",
		Title:       "Deep Residual Learning for Image Recognition.",
		Year:        "2016",
	}

	m := CheckDuplicate(a, b)
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.Confidence != 0.95 {
		t.Errorf("Confidence = %v, want 0.95", m.Confidence)
	}

	// Same titles, different years: the title+year tier must not fire.
	b.Year = "2015"
	b.Author = ""
	a.Author = ""
	if m := CheckDuplicate(a, b); m != nil {
		t.Errorf("matched despite differing years and absent authors: %+v", m)
	}
}

func TestCheckDuplicate_TitleAndAuthor(t *testing.T) {
	a := &record.Record{
		CitationKey: "A",
		Title:       "Attention Is All You Need",
		Author:      "Vaswani, Ashish and Shazeer, Noam",
		Year:        "2017",
	}
	b := &record.Record{
		CitationKey: "B",
		Title:       "Attention is all you need",
		Author:      "Vaswani, Ashish and Shazeer, Noam",
		Year:        "", // no year, so the title+year tier cannot fire
	}

	m := CheckDuplicate(a, b)
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.Confidence != 0.85 {
		t.Errorf("Confidence = %v, want 0.85", m.Confidence)
	}
}

func TestCheckDuplicate_NoMatch(t *testing.T) {
	a := &record.Record{
		CitationKey: "A",
		Title:       "Graph Neural Networks in Chemistry",
		Author:      "Smith, John",
		Year:        "2020",
	}
	b := &record.Record{
		CitationKey: "B",
		Title:       "A Treatise on Roman Contract Law",
		Author:      "Watson, Alan",
		Year:        "1984",
	}

	if m := CheckDuplicate(a, b); m != nil {
		t.Errorf("unrelated records matched: %+v", m)
	}
}

func TestCheckDuplicate_TierOrder(t *testing.T) {
	// DOI agreement wins over everything else, even contradictory titles.
	a := &record.Record{
		CitationKey: "A",
		DOI:         "10.1/x",
		ArxivID:     "2301.00001v1",
		Title:       "One Thing",
	}
	b := &record.Record{
		CitationKey: "B",
		DOI:         "10.1/x",
		ArxivID:     "2301.00001v2",
		Title:       "A Different Thing",
	}

	m := CheckDuplicate(a, b)
	if m == nil || m.Confidence != 1.00 {
		t.Fatalf("expected DOI tier, got %+v", m)
	}
}

func TestCheckDuplicate_EmptyIdentifiersSkipTiers(t *testing.T) {
	// Empty DOIs must not count as equal.
	a := &record.Record{CitationKey: "A", Title: "X"}
	b := &record.Record{CitationKey: "B", Title: "Completely Other"}
	if m := CheckDuplicate(a, b); m != nil {
		t.Errorf("empty identifiers produced a match: %+v", m)
	}
}

func TestFindDuplicates(t *testing.T) {
	records := []*record.Record{
		{CitationKey: "A", Title: "Paper One", Year: "2020", Author: "Smith, John"},
		{CitationKey: "B", DOI: "10.1/shared", Title: "Paper Two"},
		{CitationKey: "C", DOI: "10.1/shared", Title: "Paper Two Republished"},
		{CitationKey: "D", Title: "Paper One", Year: "2020", Author: "Smith, John"},
	}

	matches := FindDuplicates(records, DefaultThreshold)
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(matches), matches)
	}

	// Sorted by confidence descending: DOI pair first.
	if matches[0].KeyA != "B" || matches[0].KeyB != "C" || matches[0].Confidence != 1.00 {
		t.Errorf("first match = %+v", matches[0])
	}
	if matches[1].KeyA != "A" || matches[1].KeyB != "D" || matches[1].Confidence != 0.95 {
		t.Errorf("second match = %+v", matches[1])
	}
}

func TestFindDuplicates_Threshold(t *testing.T) {
	records := []*record.Record{
		{CitationKey: "A", Title: "Attention Is All You Need", Author: "Vaswani, Ashish"},
		{CitationKey: "B", Title: "Attention is all you need", Author: "Vaswani, Ashish"},
	}

	if matches := FindDuplicates(records, 0.90); len(matches) != 0 {
		t.Errorf("threshold 0.90 should exclude the 0.85 tier: %+v", matches)
	}
	if matches := FindDuplicates(records, 0.85); len(matches) != 1 {
		t.Errorf("threshold 0.85 should include the 0.85 tier: %+v", matches)
	}
}

func TestFindDuplicates_StableTies(t *testing.T) {
	records := []*record.Record{
		{CitationKey: "A", DOI: "10.1/first"},
		{CitationKey: "B", DOI: "10.1/first"},
		{CitationKey: "C", DOI: "10.1/second"},
		{CitationKey: "D", DOI: "10.1/second"},
	}

	matches := FindDuplicates(records, DefaultThreshold)
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].KeyA != "A" || matches[1].KeyA != "C" {
		t.Errorf("equal-confidence matches reordered: %+v", matches)
	}
}

func TestMerge(t *testing.T) {
	primary := &record.Record{
		CitationKey: "Primary2020",
		Type:        record.TypeArticle,
		Title:       "Kept Title",
		Journal:     "Kept Journal",
		Year:        "2020",
	}
	secondary := &record.Record{
		CitationKey: "Secondary2020",
		Type:        record.TypeInProceedings,
		Title:       "Ignored Title",
		Journal:     "Ignored Journal",
		Volume:      "42",
		DOI:         "10.1/fill",
		Abstract:    "Filled abstract",
	}

	got := Merge(primary, secondary)

	if got != primary {
		t.Error("Merge should return the primary record")
	}
	if got.Title != "Kept Title" || got.Journal != "Kept Journal" {
		t.Errorf("primary fields overwritten: %+v", got)
	}
	if got.Volume != "42" || got.DOI != "10.1/fill" || got.Abstract != "Filled abstract" {
		t.Errorf("gaps not filled: %+v", got)
	}
	if got.CitationKey != "Primary2020" || got.Type != record.TypeArticle {
		t.Errorf("identity changed: %s/%s", got.CitationKey, got.Type)
	}
}

func TestMerge_NeverOverwrites(t *testing.T) {
	primary := &record.Record{CitationKey: "P", Journal: "Nature"}
	secondary := &record.Record{CitationKey: "S", Journal: "Science"}

	Merge(primary, secondary)
	if primary.Journal != "Nature" {
		t.Errorf("Journal = %q, want Nature", primary.Journal)
	}
}
