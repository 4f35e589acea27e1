// Package main provides the bibfold CLI entry point.
package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bibfold/bibfold/internal/bibtex"
	"github.com/bibfold/bibfold/internal/config"
	"github.com/bibfold/bibfold/internal/record"
	"github.com/bibfold/bibfold/internal/resolve"
	"github.com/bibfold/bibfold/internal/sources"
	"github.com/bibfold/bibfold/internal/sources/arxiv"
	"github.com/bibfold/bibfold/internal/sources/crossref"
	"github.com/bibfold/bibfold/internal/sources/scholar"
	"github.com/bibfold/bibfold/internal/sources/semscholar"
	"github.com/bibfold/bibfold/internal/store"
	"github.com/bibfold/bibfold/internal/validate"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		// This ensures Cobra errors (like missing required flags) are visible
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bibfold",
	Short: "Resolve papers into clean BibTeX and manage a reference library",
	Long: `bibfold resolves papers into clean BibTeX and keeps them in a local library.

Core features:
  - Resolve DOIs, arXiv IDs, and titles into canonical BibTeX records
  - Normalized citation keys, author names, and page ranges
  - Duplicate detection and merging
  - Import and export of .bib files
  - HTTP JSON API over the same library (bibfold serve)

Metadata comes from Semantic Scholar, CrossRef, and arXiv; Google
Scholar supplies canonical BibTeX text. The library is a single SQLite
file. All commands output JSON by default for agent integration; use
--human for readable text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Load .env file if present (for S2_API_KEY)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustOpenStore opens the library database, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenStore() *store.DB {
	path := config.GetDatabasePath()
	if err := config.EnsureDBDir(path); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	db, err := store.Open(path)
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// buildResolver assembles the provider chain: Semantic Scholar is the
// primary metadata source with CrossRef and arXiv as fallbacks, and
// Google Scholar supplies canonical BibTeX text. workers <= 0 means
// use the configured default.
func buildResolver(cfg *config.Config, workers int) *resolve.Resolver {
	var s2opts []semscholar.ClientOption
	if cfg.S2APIKey != "" {
		s2opts = append(s2opts, semscholar.WithAPIKey(cfg.S2APIKey))
	}
	s2 := semscholar.NewClient(s2opts...)

	// One Scholar client serves both the text fetcher and the
	// full-text searcher, so all Scholar traffic shares a single
	// limiter and circuit breaker.
	sc := scholarClient(cfg)

	if workers <= 0 {
		workers = cfg.Workers
	}

	return resolve.New(
		resolve.WithArxivProviders(
			resolve.ArxivProvider{Lookup: s2, Source: record.SourceSemanticScholar},
			resolve.ArxivProvider{Lookup: arxiv.NewClient(), Source: record.SourceArxiv},
		),
		resolve.WithDOIProviders(
			resolve.DOIProvider{Lookup: s2, Source: record.SourceSemanticScholar},
			resolve.DOIProvider{Lookup: crossref.NewClient(), Source: record.SourceCrossRef},
		),
		resolve.WithTitleSearcher(s2),
		resolve.WithTextFetcher(sc),
		resolve.WithFullTextSearcher(sc),
		resolve.WithWorkers(workers),
	)
}

// scholarClient builds the canonical-text client, honoring pacing
// overrides and the proxy from config.
func scholarClient(cfg *config.Config) *scholar.Client {
	s := cfg.Scholar
	if s.Proxy == "" && s.MinIntervalSeconds == 0 && s.JitterSeconds == 0 {
		return scholar.NewClient()
	}

	minInterval := scholar.DefaultMinInterval
	if s.MinIntervalSeconds > 0 {
		minInterval = time.Duration(s.MinIntervalSeconds) * time.Second
	}
	jitter := scholar.DefaultJitter
	if s.JitterSeconds > 0 {
		jitter = time.Duration(s.JitterSeconds) * time.Second
	}

	opts := []sources.HTTPOption{
		sources.WithMinInterval(minInterval),
		sources.WithJitter(jitter),
	}
	if s.Proxy != "" {
		u, err := url.Parse(s.Proxy)
		if err != nil {
			exitWithError(ExitConfigError, "invalid scholar proxy %q: %v", s.Proxy, err)
		}
		opts = append(opts, sources.WithHTTPClient(&http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(u)},
			Timeout:   sources.DefaultTimeout,
		}))
	}

	return scholar.NewClient(scholar.WithHTTPClient(sources.NewHTTPClient(opts...)))
}

// annotateEntry validates the record and refreshes the entry's stored
// BibTeX rendering.
func annotateEntry(entry *store.Entry) {
	res := validate.Check(entry.Record)
	entry.ValidationStatus = string(res.Status)
	entry.ValidationMessages = res.Messages
	entry.RawBibtex = bibtex.Serialize(entry.Record, bibtex.ModeDetailed)
}
