// Package resolve turns free-form queries (DOIs, arXiv identifiers, or
// titles) into normalized bibliographic records by orchestrating the
// metadata providers and the canonical-text fetcher.
package resolve

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bibfold/bibfold/internal/bibtex"
	"github.com/bibfold/bibfold/internal/normalize"
	"github.com/bibfold/bibfold/internal/record"
	"github.com/bibfold/bibfold/internal/sources"
)

// DefaultWorkers bounds concurrent resolutions in a batch.
const DefaultWorkers = 4

// ArxivProvider pairs an arXiv lookup capability with the provenance
// label stamped on records built from its metadata. The first provider
// is the primary metadata source; later ones are title fallbacks.
type ArxivProvider struct {
	Lookup sources.ArxivLookup
	Source record.Source
}

// DOIProvider pairs a DOI lookup capability with its provenance label.
// Providers are queried in order and the first title found wins.
type DOIProvider struct {
	Lookup sources.DOILookup
	Source record.Source
}

// SourceInfo records where a resolution's data came from.
type SourceInfo struct {
	InputType    InputType `json:"input_type"`
	ArxivID      string    `json:"arxiv_id,omitempty"`
	DOI          string    `json:"doi,omitempty"`
	Query        string    `json:"query,omitempty"`
	Venue        string    `json:"venue,omitempty"`
	IsPublished  bool      `json:"is_published,omitempty"`
	BibtexSource string    `json:"bibtex_source,omitempty"`
}

// Outcome is the result of resolving one query. Record and Err are
// never both empty: a resolution either produced a record or explains
// why it could not.
type Outcome struct {
	Record     *record.Record `json:"record,omitempty"`
	SourceInfo SourceInfo     `json:"source_info"`
	Err        string         `json:"error,omitempty"`
}

// Resolver orchestrates providers to resolve queries into records.
type Resolver struct {
	arxivProviders []ArxivProvider
	doiProviders   []DOIProvider
	titleSearch    sources.TitleSearcher
	textFetch      sources.TextFetcher
	fullText       sources.FullTextSearcher
	norm           *normalize.Normalizer
	workers        int

	mu sync.Mutex // serializes key generation across a batch
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithArxivProviders sets the arXiv lookup chain.
func WithArxivProviders(providers ...ArxivProvider) Option {
	return func(r *Resolver) {
		r.arxivProviders = providers
	}
}

// WithDOIProviders sets the DOI lookup chain.
func WithDOIProviders(providers ...DOIProvider) Option {
	return func(r *Resolver) {
		r.doiProviders = providers
	}
}

// WithTitleSearcher sets the metadata search provider used for title
// fallback and search mode.
func WithTitleSearcher(s sources.TitleSearcher) Option {
	return func(r *Resolver) {
		r.titleSearch = s
	}
}

// WithTextFetcher sets the canonical-text provider.
func WithTextFetcher(f sources.TextFetcher) Option {
	return func(r *Resolver) {
		r.textFetch = f
	}
}

// WithFullTextSearcher sets the secondary search provider whose
// results carry canonical text.
func WithFullTextSearcher(f sources.FullTextSearcher) Option {
	return func(r *Resolver) {
		r.fullText = f
	}
}

// WithWorkers bounds batch concurrency.
func WithWorkers(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.workers = n
		}
	}
}

// New creates a Resolver. Providers left unset simply skip their step.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		norm:    normalize.New(),
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve resolves a single query into a record. existingKeys holds
// citation keys already in use; generated keys are added to it. The
// returned outcome carries an error message instead of panicking or
// propagating provider failures.
func (r *Resolver) Resolve(ctx context.Context, query string, existingKeys map[string]bool) Outcome {
	q := CleanQuery(query)
	if q == "" {
		return Outcome{
			SourceInfo: SourceInfo{InputType: InputTitle},
			Err:        "empty query",
		}
	}

	switch Classify(q) {
	case InputDOI:
		return r.resolveDOI(ctx, q, existingKeys)
	case InputArxiv:
		return r.resolveArxiv(ctx, q, existingKeys)
	default:
		return r.resolveTitle(ctx, q, existingKeys)
	}
}

// ResolveAll resolves queries concurrently with bounded workers.
// Results are returned in input order. All resolutions share
// existingKeys, so keys stay unique across the batch.
func (r *Resolver) ResolveAll(ctx context.Context, queries []string, existingKeys map[string]bool) []Outcome {
	if existingKeys == nil {
		existingKeys = make(map[string]bool)
	}

	out := make([]Outcome, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, q := range queries {
		g.Go(func() error {
			out[i] = r.Resolve(ctx, q, existingKeys)
			return nil
		})
	}
	g.Wait()
	return out
}

// resolveArxiv handles arXiv identifiers: primary metadata lookup,
// published-venue detection, canonical text via the fetcher with a
// venue hint, and synthesis from metadata when no text is available.
func (r *Resolver) resolveArxiv(ctx context.Context, id string, keys map[string]bool) Outcome {
	base := StripVersion(id)
	info := SourceInfo{InputType: InputArxiv, ArxivID: base}

	var primary *sources.Metadata
	if len(r.arxivProviders) > 0 {
		if m, err := r.arxivProviders[0].Lookup.LookupByArxivID(ctx, base); err == nil {
			primary = m
		}
	}

	published := primary.IsPublished()
	venue := primary.PublishedVenue()
	info.IsPublished = published
	info.Venue = venue

	title := ""
	if primary != nil {
		title = primary.Title
	}

	// Fall back to secondary providers for a title when the primary
	// source does not know the paper.
	var fallback *sources.Metadata
	fallbackSource := record.SourceArxiv
	if title == "" {
		for _, p := range r.arxivProviders[1:] {
			if m, err := p.Lookup.LookupByArxivID(ctx, base); err == nil && m.Title != "" {
				fallback = m
				fallbackSource = p.Source
				title = m.Title
				break
			}
		}
	}
	if title == "" {
		return Outcome{SourceInfo: info, Err: "Could not find paper with arXiv ID: " + id}
	}

	hint := ""
	if published {
		hint = venue
	}
	if text := r.fetchText(ctx, title, hint); text != "" {
		if rec := parseFirst(text); rec != nil {
			if rec.ArxivID == "" {
				rec.ArxivID = base
			}
			if primary != nil {
				if rec.DOI == "" {
					rec.DOI = primary.DOI
				}
				if rec.Abstract == "" {
					rec.Abstract = primary.Abstract
				}
			}
			rec.Source = record.SourceScholar
			if err := r.finalize(rec, keys); err != nil {
				return Outcome{SourceInfo: info, Err: err.Error()}
			}
			info.BibtexSource = "scholar"
			return Outcome{Record: rec, SourceInfo: info}
		}
	}

	meta := primary
	src := record.SourceSemanticScholar
	if meta == nil || meta.Title == "" {
		meta = fallback
		src = fallbackSource
	}
	if primary != nil && meta != primary {
		fillMetadata(meta, primary)
	}

	rec := synthesizeFromVenue(meta, base, src)
	if err := r.finalize(rec, keys); err != nil {
		return Outcome{SourceInfo: info, Err: err.Error()}
	}
	info.BibtexSource = "constructed"
	return Outcome{Record: rec, SourceInfo: info}
}

// resolveDOI handles DOIs: providers are queried in order and the
// first title found wins, then canonical text is fetched, with
// synthesis from the provider metadata as the fallback.
func (r *Resolver) resolveDOI(ctx context.Context, doi string, keys map[string]bool) Outcome {
	info := SourceInfo{InputType: InputDOI, DOI: doi}

	type hit struct {
		meta *sources.Metadata
		src  record.Source
	}
	var hits []hit
	for _, p := range r.doiProviders {
		if m, err := p.Lookup.LookupByDOI(ctx, doi); err == nil {
			hits = append(hits, hit{meta: m, src: p.Source})
		}
	}

	title := ""
	for _, h := range hits {
		if h.meta.Title != "" {
			title = h.meta.Title
			break
		}
	}
	if title == "" {
		return Outcome{SourceInfo: info, Err: "Could not find paper with DOI: " + doi}
	}

	if text := r.fetchText(ctx, title, ""); text != "" {
		if rec := parseFirst(text); rec != nil {
			if rec.DOI == "" {
				rec.DOI = doi
			}
			for _, h := range hits {
				if rec.Abstract == "" && h.meta.Abstract != "" {
					rec.Abstract = h.meta.Abstract
				}
			}
			rec.Source = record.SourceScholar
			if err := r.finalize(rec, keys); err != nil {
				return Outcome{SourceInfo: info, Err: err.Error()}
			}
			info.BibtexSource = "scholar"
			return Outcome{Record: rec, SourceInfo: info}
		}
	}

	first := hits[0]
	for _, h := range hits[1:] {
		fillMetadata(first.meta, h.meta)
	}
	rec := synthesizeFromTypes(first.meta, doi, first.src)
	if err := r.finalize(rec, keys); err != nil {
		return Outcome{SourceInfo: info, Err: err.Error()}
	}
	info.BibtexSource = "constructed"
	return Outcome{Record: rec, SourceInfo: info}
}

// resolveTitle handles free-form titles: canonical text first, then a
// metadata search whose best match is synthesized into a record.
func (r *Resolver) resolveTitle(ctx context.Context, query string, keys map[string]bool) Outcome {
	info := SourceInfo{InputType: InputTitle, Query: query}

	if text := r.fetchText(ctx, query, ""); text != "" {
		if rec := parseFirst(text); rec != nil {
			rec.Source = record.SourceScholar
			if err := r.finalize(rec, keys); err != nil {
				return Outcome{SourceInfo: info, Err: err.Error()}
			}
			info.BibtexSource = "scholar"
			return Outcome{Record: rec, SourceInfo: info}
		}
	}

	if r.titleSearch != nil {
		candidates, err := r.titleSearch.SearchByTitle(ctx, query, searchFallbackLimit)
		if err == nil {
			if m := bestMatch(query, candidates); m != nil {
				rec := synthesizeFromVenue(m, "", record.SourceSemanticScholar)
				if err := r.finalize(rec, keys); err != nil {
					return Outcome{SourceInfo: info, Err: err.Error()}
				}
				info.BibtexSource = "constructed"
				return Outcome{Record: rec, SourceInfo: info}
			}
		}
	}

	return Outcome{SourceInfo: info, Err: "No results found for: " + query}
}

// fetchText retrieves canonical record text, retrying once without the
// venue hint when a hinted search comes up empty.
func (r *Resolver) fetchText(ctx context.Context, title, hint string) string {
	if r.textFetch == nil {
		return ""
	}
	text, err := r.textFetch.FetchRecordText(ctx, title, hint)
	if err != nil && hint != "" && ctx.Err() == nil {
		text, err = r.textFetch.FetchRecordText(ctx, title, "")
	}
	if err != nil {
		return ""
	}
	return text
}

// parseFirst parses record text and returns the first entry, or nil
// when the text is not parseable.
func parseFirst(text string) *record.Record {
	records, err := bibtex.Parse(text)
	if err != nil || len(records) == 0 {
		return nil
	}
	return records[0]
}

// finalize normalizes a record and generates its citation key under
// the resolver lock, keeping keys unique across concurrent batches.
func (r *Resolver) finalize(rec *record.Record, keys map[string]bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.norm.Normalize(rec, keys); err != nil {
		return fmt.Errorf("normalizing record: %w", err)
	}
	return nil
}
