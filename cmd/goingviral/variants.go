package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"goingviral/pkg/scraper"
)

// variantsCmd represents the variants command
var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "List the endpoint variants and their settings",
	Long: `List every endpoint variant with its actor, poll budget and engagement
formula, after configuration overrides are applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil, true)
		if err != nil {
			return err
		}
		registry, err := scraper.NewDefaultRegistry(cfg.Variants)
		if err != nil {
			return err
		}
		fmt.Println(renderVariants(registry.All(), cfg.Server.DefaultVariant))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(variantsCmd)
}

func renderVariants(variants []scraper.Variant, defaultVariant string) string {
	rows := make([][]string, 0, len(variants))
	for _, v := range variants {
		name := v.Name
		if name == defaultVariant {
			name += " *"
		}
		types := "all"
		if len(v.ContentTypes) > 0 {
			types = strings.Join(v.ContentTypes, ",")
		}
		rows = append(rows, []string{
			name,
			v.ActorID,
			fmt.Sprintf("%s × %d", v.PollInterval, v.MaxAttempts),
			string(v.Formula),
			types,
			yesNo(v.TolerateTransientErrors),
			yesNo(v.ExposeRaw),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Variant", "Actor", "Polling", "Engagement", "Types", "Tolerant", "Debug raw").
		Rows(rows...).
		String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
