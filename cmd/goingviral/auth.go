package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"goingviral/pkg/auth"
	"goingviral/pkg/ui"
)

var (
	authWithAnonKey bool
	authRemoveAll   bool

	stdin = bufio.NewReader(os.Stdin)
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored API tokens",
	Long: `Manage the Apify API token (and optionally the Supabase anon key) stored
for goingviral.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (APIFY_API_KEY, read-only)

Never share your tokens or config files!`,
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store an Apify API token",
	Long: `Store an Apify API token for a profile (--profile, default "default").
The token is read without echo.`,
	Example: `  goingviral auth set
  goingviral auth set --profile work --anon-key`,
	Args: cobra.NoArgs,
	RunE: runAuthSet,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	Args:  cobra.NoArgs,
	RunE:  runAuthList,
}

var authRemoveCmd = &cobra.Command{
	Use:     "remove [profile]",
	Aliases: []string{"delete"},
	Short:   "Remove a stored token",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runAuthRemove,
}

var authGuideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Show where to find your Apify API token",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		auth.ShowTokenGuide(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd, authListCmd, authRemoveCmd, authGuideCmd)

	authSetCmd.Flags().BoolVar(&authWithAnonKey, "anon-key", false, "also prompt for the Supabase anon key")
	authRemoveCmd.Flags().BoolVar(&authRemoveAll, "all", false, "remove every stored profile")
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	name := profileName()

	auth.ShowQuickGuide(os.Stdout)
	fmt.Println()

	var token string
	for {
		fmt.Printf("🔑 Apify API token for profile '%s': ", name)
		token, err = readSecret()
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		if token == "help" {
			auth.ShowTokenGuide(os.Stdout)
			continue
		}
		if err := auth.ValidateToken(token); err != nil {
			ui.PrintError("That doesn't look like an API token", err)
			if !confirm("Try again? (Y/n): ", true) {
				return err
			}
			continue
		}
		break
	}

	cred := &auth.Credential{
		Profile:      name,
		APIToken:     token,
		LastModified: time.Now(),
	}
	if authWithAnonKey {
		fmt.Print("🔐 Supabase anon key: ")
		cred.AnonKey, err = readSecret()
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read anon key: %w", err)
		}
	}

	if err := manager.Store(cred); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Token saved for profile '%s'", name))
	ui.PrintInfo("Token", auth.MaskString(token))
	fmt.Println("\n📖 Next steps:")
	fmt.Println("   $ goingviral fetch <instagram_username>")
	fmt.Println("   $ goingviral serve")
	fmt.Println("\n⚠️  Never share your tokens or config files!")
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	creds, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	if len(creds) == 0 {
		ui.PrintWarning("No stored tokens", "run 'goingviral auth set'")
		return nil
	}

	ui.PrintHighlight("Stored profiles")
	for _, cred := range creds {
		safe := auth.SanitizeCredential(cred)
		line := fmt.Sprintf("  %-12s %s", safe.Profile, safe.APIToken)
		if safe.AnonKey != "" {
			line += "  anon key " + safe.AnonKey
		}
		if !safe.LastModified.IsZero() {
			line += ui.Dim("  (updated " + safe.LastModified.Format("2006-01-02") + ")")
		}
		fmt.Println(line)
	}
	return nil
}

func runAuthRemove(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if authRemoveAll {
		if !confirm("Remove ALL stored tokens? (y/N): ", false) {
			return nil
		}
		if err := manager.DeleteAll(); err != nil {
			return fmt.Errorf("failed to remove tokens: %w", err)
		}
		ui.PrintSuccess("All stored tokens removed")
		return nil
	}

	name := profileName()
	if len(args) == 1 {
		name = args[0]
	}
	if err := manager.Delete(name); err != nil {
		return fmt.Errorf("failed to remove profile %s: %w", name, err)
	}
	ui.PrintSuccess("Token removed for profile: " + name)
	return nil
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func confirm(prompt string, def bool) bool {
	fmt.Print(prompt)
	input, _ := stdin.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "":
		return def
	case "y", "yes":
		return true
	default:
		return false
	}
}
