package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"goingviral/internal/fetchpool"
	"goingviral/pkg/apify"
	"goingviral/pkg/config"
	"goingviral/pkg/errors"
	"goingviral/pkg/logger"
	"goingviral/pkg/metrics"
	"goingviral/pkg/scraper"
	"goingviral/pkg/ui"
)

var (
	fetchVariant     string
	fetchResume      bool
	fetchJSON        bool
	fetchSave        bool
	fetchLimit       int
	fetchConcurrency int
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <username> [username...]",
	Short: "Fetch post metrics for one or more accounts",
	Long: `Start an Apify run per account, wait for it to finish and print the
normalized post metrics.

Several accounts are fetched concurrently. Every launched run is recorded in
a checkpoint until its results are in, so an interrupted fetch can pick the
same runs up again with --resume.`,
	Example: `  # Fetch one account with the default variant
  goingviral fetch natgeo

  # Fetch several accounts with the post scraper and print JSON
  goingviral fetch natgeo nasa --variant instagram-posts --json

  # Re-attach to runs left behind by an interrupted fetch
  goingviral fetch natgeo nasa --resume`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchVariant, "variant", "", "endpoint variant (default from config)")
	fetchCmd.Flags().BoolVar(&fetchResume, "resume", false, "resume runs recorded in checkpoints")
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "print the response envelopes as JSON")
	fetchCmd.Flags().BoolVar(&fetchSave, "save", false, "save snapshots (file storage unless configured otherwise)")
	fetchCmd.Flags().IntVar(&fetchLimit, "limit", 20, "posts shown per account, 0 for all")
	fetchCmd.Flags().IntVar(&fetchConcurrency, "concurrency", 0, "accounts fetched at once (default from config)")
}

// fetchOutput mirrors the HTTP success envelope for --json
type fetchOutput struct {
	Username string         `json:"username"`
	Success  bool           `json:"success"`
	Data     []metrics.Post `json:"data,omitempty"`
	Message  string         `json:"message,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{"concurrency": fetchConcurrency}, true)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	variant := fetchVariant
	if variant == "" {
		variant = cfg.Server.DefaultVariant
	}

	jobs := make([]fetchpool.FetchJob, 0, len(args))
	for _, arg := range args {
		username := apify.SanitizeUsername(arg)
		if !apify.IsValidUsername(username) {
			return errors.Validation(fmt.Sprintf("Invalid username: %q", arg))
		}
		jobs = append(jobs, fetchpool.FetchJob{Username: username, Variant: variant})
	}

	applyStoredCredentials(cfg, log)
	if !cfg.HasAPIToken() {
		ui.PrintError("APIFY_API_KEY is not configured", "run 'goingviral auth set' or export APIFY_API_KEY")
		return errors.Config("APIFY_API_KEY is not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if fetchSave && (cfg.Storage.Driver == "" || cfg.Storage.Driver == config.StorageNone) {
		cfg.Storage.Driver = config.StorageFile
	}
	opts := []scraper.Option{}
	if fetchSave {
		store, err := openStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
			opts = append(opts, scraper.WithStore(store))
		}
	}

	progress := ui.NewProgressDisplay(os.Stderr, len(jobs), verbose)
	fetcher := newCheckpointedFetcher(nil, cfg.Fetch.CheckpointDir, fetchResume, log)
	opts = append(opts, scraper.WithStatusFunc(func(username string, h apify.JobHandle, attempt, maxAttempts int, status apify.RunStatus) {
		fetcher.recordStatus(h, status)
		progress.RunStatus(username, h.JobID, attempt, maxAttempts, string(status))
	}))

	s, err := buildScraper(cfg, log, true, opts...)
	if err != nil {
		return err
	}
	if _, err := s.Variants().Get(variant); err != nil {
		return err
	}
	fetcher.scraper = s

	if !fetchJSON {
		ui.PrintInfo("Variant", variant)
	}

	results := fetchpool.FetchAll(ctx, fetcher, cfg.Fetch.Concurrency, jobs, log, func(r fetchpool.FetchResult) {
		if r.Success() {
			progress.FetchDone(r.Job.Username, len(r.Result.Posts), r.Duration)
		} else {
			progress.FetchFailed(r.Job.Username, fmt.Errorf("%s", errors.Message(r.Error)))
		}
	})
	progress.Complete()

	failed := printResults(results)

	notifier := ui.NewNotifier(cfg.Notifications)
	switch {
	case failed == 0:
		notifier.SendSuccess("Fetch complete", fmt.Sprintf("%d accounts fetched", len(results)))
	case failed < len(results):
		notifier.SendError("Fetch partly failed", fmt.Sprintf("%d of %d accounts failed", failed, len(results)))
	default:
		notifier.SendError("Fetch failed", errors.Message(results[0].Error))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d fetches failed", failed, len(results))
	}
	return nil
}

// printResults prints every result and returns how many failed
func printResults(results []fetchpool.FetchResult) int {
	failed := 0
	outputs := make([]fetchOutput, 0, len(results))

	for _, r := range results {
		out := fetchOutput{Username: r.Job.Username, Success: r.Success()}
		if !r.Success() {
			failed++
			out.Error = errors.Message(r.Error)
		} else {
			out.Data = r.Result.Posts
			out.Message = fmt.Sprintf("Successfully fetched %d posts for @%s", len(r.Result.Posts), r.Result.Username)
		}
		outputs = append(outputs, out)

		if fetchJSON || !r.Success() {
			continue
		}
		fmt.Println()
		fmt.Print(ui.RenderSummary(r.Result.Username, metrics.Summarize(r.Result.Posts)))
		if len(r.Result.Posts) > 0 {
			fmt.Println(ui.RenderPosts(r.Result.Posts, fetchLimit))
		}
		if r.Result.Skipped > 0 {
			ui.PrintWarning("Skipped malformed items", r.Result.Skipped)
		}
	}

	if fetchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outputs); err != nil {
			ui.PrintError("Failed to encode results", err)
		}
	}
	return failed
}
