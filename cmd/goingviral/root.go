package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"goingviral/pkg/config"
	"goingviral/pkg/logger"
	"goingviral/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFormat  string
	profile    string
	noColor    bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "goingviral",
	Short: "Instagram post analytics backed by Apify scraping jobs",
	Long: `Am I Going Viral fetches Instagram posts through Apify actor runs and turns
them into per-post metrics: views, likes, comments, shares, saves and an
engagement score.

Run it as an HTTP backend for the web dashboard:
  goingviral serve

Or use it straight from the terminal:
  goingviral fetch natgeo nasa
  goingviral dashboard natgeo`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetColor(false)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ui.PrintLogo()
		_ = cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.config/goingviral/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "stored credential profile to use")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show log output in terminal commands")

	rootCmd.SetVersionTemplate(`goingviral {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads the configuration with the global flags applied and
// initializes the global logger. Terminal commands keep the log quiet
// unless --verbose or --log-level asks otherwise.
func loadConfig(flags map[string]interface{}, quietLogs bool) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	switch {
	case logLevel != "":
		flags["log-level"] = logLevel
	case quietLogs && !verbose:
		flags["log-level"] = "error"
	}
	if logFormat != "" {
		flags["log-format"] = logFormat
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
