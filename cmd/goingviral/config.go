package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"goingviral/pkg/auth"
	"goingviral/pkg/config"
	"goingviral/pkg/scraper"
	"goingviral/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage goingviral configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (APIFY_API_KEY, SUPABASE_*, DATABASE_URL, GOINGVIRAL_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is written to ~/.config/goingviral/config.yaml unless a different
path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the configuration after all sources are merged.
Secrets are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the configuration and check that its paths are usable.

This command checks:
  - YAML syntax
  - Value ranges and storage settings
  - Variant overrides
  - Directory accessibility`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
}

const exampleConfig = `# goingviral configuration file
#
# Secrets are better kept in the environment:
#   APIFY_API_KEY, SUPABASE_URL, SUPABASE_ANON_KEY, DATABASE_URL

apify:
  base_url: https://api.apify.com/v2
  # HTTP timeout per request to the actor API
  timeout: 30s
  # Attempts for transient dataset download failures
  dataset_retries: 3

# Per-variant overrides. Zero values keep the built-in setting.
variants:
  instagram-posts:
    poll_interval: 5s
    max_attempts: 24
  # instagram-raw:
  #   disabled: true

server:
  listen_addr: :8080
  allowed_origin: "*"
  # false: every failure is a 500, as deployed clients expect
  strict_status_codes: false
  # true: function routes need a bearer token from the identity provider
  require_session: false
  default_variant: instagram-data
  request_timeout: 6m

identity:
  supabase_url: ""
  redirect_to: ""
  magic_links_per_hour: 5

rate_limit:
  launches_per_minute: 30
  burst_size: 5

storage:
  # none, file or postgres
  driver: none
  directory: ./snapshots

fetch:
  concurrency: 3
  # empty: the platform data directory
  checkpoint_dir: ""

notifications:
  enabled: false
  on_complete: true
  on_error: true
  # terminal, desktop or none
  notification_type: terminal

logging:
  level: info
  # console or json
  format: console
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		ui.PrintError("Configuration file already exists", path)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", path)
		return fmt.Errorf("%s already exists", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store your Apify token with 'goingviral auth set'")
	fmt.Println("2. Run 'goingviral config validate' to check the configuration")
	fmt.Println("3. Start with 'goingviral fetch <username>' or 'goingviral serve'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil, true)
	if err != nil {
		return err
	}

	display := *cfg
	if display.Apify.Token != "" {
		display.Apify.Token = auth.MaskString(display.Apify.Token)
	}
	if display.Identity.AnonKey != "" {
		display.Identity.AnonKey = auth.MaskString(display.Identity.AnonKey)
	}
	if display.Storage.DSN != "" {
		display.Storage.DSN = auth.MaskString(display.Storage.DSN)
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables")
	fmt.Println("3. .env files")
	if configFile != "" {
		fmt.Printf("4. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("4. Configuration file: (searched in default locations)")
	}
	fmt.Println("5. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := loadConfig(nil, true)
	if err != nil {
		ui.PrintError("Configuration validation failed", err)
		return err
	}

	var warnings, problems []string

	if _, err := scraper.NewDefaultRegistry(cfg.Variants); err != nil {
		problems = append(problems, err.Error())
	}
	if !cfg.HasAPIToken() {
		warnings = append(warnings, "APIFY_API_KEY is not configured (a stored token may still be used)")
	}
	if cfg.Identity.SupabaseURL == "" || cfg.Identity.AnonKey == "" {
		warnings = append(warnings, "identity provider not configured; magic-link login is disabled")
	}
	if cfg.Storage.Driver == config.StorageFile {
		if err := os.MkdirAll(cfg.Storage.Directory, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create snapshot directory: %v", err))
		}
	}
	if cfg.Fetch.CheckpointDir != "" {
		if err := os.MkdirAll(cfg.Fetch.CheckpointDir, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create checkpoint directory: %v", err))
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		return fmt.Errorf("%d configuration errors", len(problems))
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Listen address: %s\n", cfg.Server.ListenAddr)
	fmt.Printf("  Default variant: %s\n", cfg.Server.DefaultVariant)
	fmt.Printf("  Strict status codes: %t\n", cfg.Server.StrictStatusCodes)
	fmt.Printf("  Launch limit: %d/minute (burst %d)\n", cfg.RateLimit.LaunchesPerMinute, cfg.RateLimit.BurstSize)
	fmt.Printf("  Storage: %s\n", cfg.Storage.Driver)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
