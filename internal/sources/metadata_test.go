package sources

import "testing"

func TestIsPublished(t *testing.T) {
	tests := []struct {
		name string
		meta *Metadata
		want bool
	}{
		{
			name: "nil metadata",
			meta: nil,
			want: false,
		},
		{
			name: "bare preprint",
			meta: &Metadata{Title: "T", Venue: "arXiv", DOI: "10.48550/arXiv.1512.03385"},
			want: false,
		},
		{
			name: "arxiv.org venue",
			meta: &Metadata{Title: "T", Venue: "arxiv.org"},
			want: false,
		},
		{
			name: "real venue string",
			meta: &Metadata{Title: "T", Venue: "NeurIPS"},
			want: true,
		},
		{
			name: "non-arxiv doi",
			meta: &Metadata{Title: "T", DOI: "10.1109/CVPR.2016.90"},
			want: true,
		},
		{
			name: "publication venue object only",
			meta: &Metadata{Title: "T", Venue: "arXiv", PublicationVenue: &Venue{Name: "ICLR", Type: "conference"}},
			want: true,
		},
		{
			name: "no signals",
			meta: &Metadata{Title: "T"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.meta.IsPublished(); got != tt.want {
				t.Errorf("IsPublished() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPublishedVenue(t *testing.T) {
	m := &Metadata{Venue: "arXiv", PublicationVenue: &Venue{Name: "ICML", Type: "conference"}}
	if got := m.PublishedVenue(); got != "ICML" {
		t.Errorf("PublishedVenue() = %q, want ICML", got)
	}

	m = &Metadata{Venue: "CVPR"}
	if got := m.PublishedVenue(); got != "CVPR" {
		t.Errorf("PublishedVenue() = %q, want CVPR", got)
	}
}
