// Package server exposes the reference library over HTTP as a JSON
// API: entry CRUD, BibTeX import and export, provider search, query
// resolution, and library maintenance (duplicates, merge, normalize).
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/bibfold/bibfold/internal/normalize"
	"github.com/bibfold/bibfold/internal/resolve"
	"github.com/bibfold/bibfold/internal/store"
)

// Config controls the HTTP front end.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// AuthToken enables bearer-token authentication on /api/ routes
	// when non-empty. The health endpoint is always open.
	AuthToken string

	// RateLimit is the sustained request rate per second across all
	// clients. Zero disables limiting.
	RateLimit float64
}

// Server wires the store and resolver into HTTP handlers.
type Server struct {
	db       *store.DB
	resolver *resolve.Resolver
	norm     *normalize.Normalizer
	cfg      Config
}

// New builds a Server over an open store and a configured resolver.
func New(db *store.DB, resolver *resolve.Resolver, cfg Config) *Server {
	return &Server{
		db:       db,
		resolver: resolver,
		norm:     normalize.New(),
		cfg:      cfg,
	}
}

// Handler assembles the route table and middleware chain.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("/api/entries", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.listEntries(w, r)
		case http.MethodPost:
			s.createEntry(w, r)
		default:
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
	api.HandleFunc("/api/entries/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.getEntry(w, r)
		case http.MethodPut:
			s.updateEntry(w, r)
		case http.MethodDelete:
			s.deleteEntry(w, r)
		default:
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
	api.HandleFunc("/api/import", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleImport(w, r)
	})
	api.HandleFunc("/api/export", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleExport(w, r)
	})
	api.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleSearch(w, r)
	})
	api.HandleFunc("/api/resolve", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleResolve(w, r)
	})
	api.HandleFunc("/api/duplicates", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleDuplicates(w, r)
	})
	api.HandleFunc("/api/merge", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleMerge(w, r)
	})
	api.HandleFunc("/api/normalize", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleNormalize(w, r)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleHealth(w, r)
	})
	mux.Handle("/api/", s.requireAuth(api))

	var h http.Handler = mux
	if s.cfg.RateLimit > 0 {
		burst := int(s.cfg.RateLimit * 2)
		if burst < 1 {
			burst = 1
		}
		h = rateLimitMiddleware(h, newRateLimiter(s.cfg.RateLimit, burst))
	}
	return securityHeadersMiddleware(h)
}

// ListenAndServe binds cfg.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the API on an existing listener, which lets tests bind
// port 0. It returns after a graceful shutdown once ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// Resolution can wait on upstream rate limits, so the write
		// timeout stays generous.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	log.Printf("listening on http://%s", ln.Addr())

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
