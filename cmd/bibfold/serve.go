package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bibfold/bibfold/internal/server"
)

// DefaultListenAddr is used when neither --addr nor config provide one.
const DefaultListenAddr = "127.0.0.1:5001"

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, else "+DefaultListenAddr+")")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the library over an HTTP JSON API",
	Long: `Serve the library over an HTTP JSON API.

Endpoints mirror the CLI: entry CRUD under /api/entries, plus import,
export, search, resolve, duplicates, merge, and normalize. Set
server.auth_token in config (or BIBFOLD_AUTH_TOKEN) to require a
bearer token; /api/health stays open for monitoring. The server shuts
down cleanly on SIGINT or SIGTERM.

Examples:
  bibfold serve
  bibfold serve --addr 0.0.0.0:5001`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore()
	defer db.Close()

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if addr == "" {
		addr = DefaultListenAddr
	}

	srv := server.New(db, buildResolver(cfg, 0), server.Config{
		Addr:      addr,
		AuthToken: cfg.Server.AuthToken,
		RateLimit: cfg.Server.RateLimit,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	return nil
}
