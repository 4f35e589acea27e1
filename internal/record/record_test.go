package record

import (
	"encoding/json"
	"testing"
)

func TestParseEntryType(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  EntryType
	}{
		{"article", "article", TypeArticle},
		{"uppercase", "ARTICLE", TypeArticle},
		{"mixed case", "InProceedings", TypeInProceedings},
		{"whitespace", "  book  ", TypeBook},
		{"unknown coerces to misc", "journalarticle", TypeMisc},
		{"empty coerces to misc", "", TypeMisc},
		{"phdthesis", "phdthesis", TypePhDThesis},
		{"conference", "conference", TypeConference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseEntryType(tt.input); got != tt.want {
				t.Errorf("ParseEntryType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFieldDispatch(t *testing.T) {
	r := &Record{}

	if !r.SetField("title", "Deep Learning") {
		t.Fatal("SetField(title) not recognized")
	}
	if r.Title != "Deep Learning" {
		t.Errorf("Title = %q, want %q", r.Title, "Deep Learning")
	}

	// eprint is the interchange name for the arXiv identifier.
	if !r.SetField("eprint", "2301.00001") {
		t.Fatal("SetField(eprint) not recognized")
	}
	if r.ArxivID != "2301.00001" {
		t.Errorf("ArxivID = %q, want %q", r.ArxivID, "2301.00001")
	}

	got, ok := r.Field("eprint")
	if !ok || got != "2301.00001" {
		t.Errorf("Field(eprint) = %q, %v", got, ok)
	}

	if r.SetField("archiveprefix", "arXiv") {
		t.Error("archiveprefix should not be a known field")
	}
	if _, ok := r.Field("nosuchfield"); ok {
		t.Error("Field(nosuchfield) reported ok")
	}
}

func TestRecordClone(t *testing.T) {
	r := &Record{
		CitationKey: "Smith2020deep",
		Type:        TypeArticle,
		Title:       "A Title",
	}
	r.Extra.Set("urldate", "2020-01-01")

	c := r.Clone()
	c.Title = "Changed"
	c.Extra.Set("urldate", "2024-12-31")
	c.Extra.Set("annote", "new")

	if r.Title != "A Title" {
		t.Errorf("clone mutation leaked into original title: %q", r.Title)
	}
	if v, _ := r.Extra.Get("urldate"); v != "2020-01-01" {
		t.Errorf("clone mutation leaked into original extras: %q", v)
	}
	if r.Extra.Len() != 1 {
		t.Errorf("original extras length = %d, want 1", r.Extra.Len())
	}
}

func TestFieldsOrder(t *testing.T) {
	var f Fields
	f.Set("zeta", "1")
	f.Set("alpha", "2")
	f.Set("mid", "3")
	f.Set("alpha", "updated")

	names := f.Names()
	want := []string{"zeta", "alpha", "mid"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	if v, _ := f.Get("alpha"); v != "updated" {
		t.Errorf("Get(alpha) = %q after update", v)
	}

	f.Delete("zeta")
	if f.Len() != 2 {
		t.Errorf("Len() = %d after delete, want 2", f.Len())
	}
	if _, ok := f.Get("zeta"); ok {
		t.Error("zeta still present after delete")
	}
}

func TestFieldsJSONRoundTrip(t *testing.T) {
	var f Fields
	f.Set("urldate", "2023-05-01")
	f.Set("annote", "check later")

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"urldate":"2023-05-01","annote":"check later"}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var back Fields
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.Equal(&f) {
		t.Errorf("round trip mismatch: %v vs %v", back, f)
	}
	names := back.Names()
	if len(names) != 2 || names[0] != "urldate" || names[1] != "annote" {
		t.Errorf("round trip lost order: %v", names)
	}
}

func TestFieldsEqualIgnoresOrder(t *testing.T) {
	var a, b Fields
	a.Set("x", "1")
	a.Set("y", "2")
	b.Set("y", "2")
	b.Set("x", "1")

	if !a.Equal(&b) {
		t.Error("mappings with same pairs in different order not equal")
	}

	b.Set("z", "3")
	if a.Equal(&b) {
		t.Error("mappings with different sizes reported equal")
	}
}
