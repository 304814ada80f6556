package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"goingviral/pkg/apify"
	"goingviral/pkg/errors"
	"goingviral/pkg/logger"
	"goingviral/pkg/mockdata"
	"goingviral/pkg/scraper"
	"goingviral/pkg/storage"
	"goingviral/pkg/ui/tui"
)

var (
	dashDemo    bool
	dashVariant string
	dashSeed    int64
	dashDays    int
)

// dashboardCmd represents the dashboard command
var dashboardCmd = &cobra.Command{
	Use:   "dashboard [username]",
	Short: "Open the interactive analytics dashboard",
	Long: `Open a terminal dashboard with the account overview, follower growth and
a sortable post table.

Without a username, or with --demo, it shows generated sample data.
With a username it runs a live fetch and shows the run's progress while it
polls. Follower growth comes from stored snapshots when storage is enabled.`,
	Example: `  # Sample data
  goingviral dashboard --demo

  # Live data for an account
  goingviral dashboard natgeo --variant instagram-posts`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)

	dashboardCmd.Flags().BoolVar(&dashDemo, "demo", false, "show generated sample data")
	dashboardCmd.Flags().StringVar(&dashVariant, "variant", "", "endpoint variant for live data (default from config)")
	dashboardCmd.Flags().Int64Var(&dashSeed, "seed", 0, "seed for sample data (default random)")
	dashboardCmd.Flags().IntVar(&dashDays, "days", 30, "days of sample follower history")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil, true)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if dashDemo || len(args) == 0 {
		seed := dashSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		gen := mockdata.New(seed, nil)
		return tui.New(ctx, tui.DemoLoader(gen, mockdata.DefaultPostCount, dashDays)).Start()
	}

	username := apify.SanitizeUsername(args[0])
	if !apify.IsValidUsername(username) {
		return errors.Validation("Invalid username: " + args[0])
	}
	variant := dashVariant
	if variant == "" {
		variant = cfg.Server.DefaultVariant
	}

	applyStoredCredentials(cfg, log)
	if !cfg.HasAPIToken() {
		return errors.Config("APIFY_API_KEY is not configured")
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	var dash *tui.TUI
	opts := []scraper.Option{
		scraper.WithStatusFunc(func(user string, h apify.JobHandle, attempt, maxAttempts int, status apify.RunStatus) {
			dash.RunStatus(user, h.JobID, attempt, maxAttempts, string(status))
		}),
	}
	if store != nil {
		opts = append(opts, scraper.WithStore(store))
	}
	s, err := buildScraper(cfg, log, true, opts...)
	if err != nil {
		return err
	}
	if _, err := s.Variants().Get(variant); err != nil {
		return err
	}

	dash = tui.New(ctx, liveLoader(s, store, variant, username))
	return dash.Start()
}

// liveLoader fetches the account through the scraper. The follower history
// comes from stored snapshots, including the one the fetch just saved.
func liveLoader(s *scraper.Scraper, store storage.Store, variant, username string) tui.Loader {
	return func(ctx context.Context) (*tui.Data, error) {
		result, err := s.Fetch(ctx, variant, username)
		if err != nil {
			return nil, fmt.Errorf("%s", errors.Message(err))
		}

		data := &tui.Data{
			Username:  result.Username,
			Source:    result.Variant,
			Posts:     result.Posts,
			FetchedAt: time.Now(),
		}
		if store != nil {
			if snaps, err := store.List(ctx, result.Username, 0); err == nil {
				data.Growth = storage.FollowerPoints(snaps)
			}
		}
		return data, nil
	}
}
