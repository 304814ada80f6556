package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"goingviral/pkg/logger"
	"goingviral/pkg/scraper"
	"goingviral/pkg/server"
)

var (
	listenAddr   string
	strictStatus bool
	storageFlag  string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP backend for the web dashboard",
	Long: `Run the HTTP backend. Every variant is served at POST /functions/v1/{variant}
with the body {"username": "...", "debug": false}.

Failures are reported as {"success": false, "error": "...", "details": "..."}
with status 500 unless --strict-status maps them to 4xx/5xx codes.

The Apify token comes from APIFY_API_KEY, the config file or a stored
credential. A missing token does not stop the server; each request reports it.`,
	Example: `  # Serve on the default address
  goingviral serve

  # Serve on port 9000 with snapshot history on disk
  goingviral serve --listen :9000 --storage file`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen address (default :8080)")
	serveCmd.Flags().BoolVar(&strictStatus, "strict-status", false, "map failures to 4xx/5xx instead of 500")
	serveCmd.Flags().StringVar(&storageFlag, "storage", "", "snapshot storage driver (none, file, postgres)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{
		"listen":        listenAddr,
		"strict-status": strictStatus,
		"storage":       storageFlag,
	}, false)
	if err != nil {
		return err
	}
	log := logger.GetLogger().WithField("app", server.AppName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	applyStoredCredentials(cfg, log)
	if !cfg.HasAPIToken() {
		log.Warn("APIFY_API_KEY is not configured; function calls will fail until it is set")
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	s, err := buildScraper(cfg, log, false, scraper.WithStore(store))
	if err != nil {
		return err
	}

	opts := []server.Option{server.WithLogger(log)}
	if store != nil {
		opts = append(opts, server.WithStore(store))
	}
	if ident := newIdentityClient(cfg, log); ident.Configured() {
		opts = append(opts, server.WithIdentity(ident, cfg.Identity))
	} else {
		log.Info("identity provider not configured; magic-link login disabled")
	}

	srv, err := server.New(cfg.Server, s, opts...)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}
