package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"goingviral/pkg/errors"
	"goingviral/pkg/identity"
	"goingviral/pkg/logger"
	"goingviral/pkg/ui"
)

var loginRedirect string

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Email a magic sign-in link",
	Long: `Ask the identity provider to email a one-time sign-in link to the address.

Needs SUPABASE_URL and SUPABASE_ANON_KEY, from the environment, the config
file or a stored credential profile.`,
	Example: `  goingviral login me@example.com
  goingviral login me@example.com --redirect https://app.example.com/dashboard`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginRedirect, "redirect", "", "where the link lands after sign-in (default from config)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil, true)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	email, err := identity.NormalizeEmail(args[0])
	if err != nil {
		return err
	}

	applyStoredCredentials(cfg, log)
	client := newIdentityClient(cfg, log)
	if !client.Configured() {
		return errors.Config("Supabase is not configured")
	}

	redirect := loginRedirect
	if redirect == "" {
		redirect = cfg.Identity.RedirectTo
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.SendMagicLink(ctx, email, redirect); err != nil {
		return err
	}
	ui.PrintSuccess("We've sent you a magic link to sign in.")
	ui.PrintInfo("Check your inbox", email)
	return nil
}
