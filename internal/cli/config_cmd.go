package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/imyousuf/csmigrate/internal/config"
)

// Style definitions for config view.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	labelStyle = lipgloss.NewStyle().
			Faint(true).
			Width(20)
	valueStyle = lipgloss.NewStyle()
)

func newConfigCmd() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the configuration csmigrate runs with: defaults, overridden by
.csmigrate.yaml (or the --config file), overridden by CSMIGRATE_*
environment variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if asYAML {
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("encode config: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			printConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the configuration as YAML")
	return cmd
}

func printConfig(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("csmigrate Configuration"))
	fmt.Fprintln(out, headerStyle.Render(strings.Repeat("=", 23)))
	fmt.Fprintln(out)

	printSection(out, "Rules")
	printKV(out, "Rule file", orNone(cfg.RulesFile))
	if cfg.Package.Name != "" {
		printKV(out, "Package", cfg.Package.Name)
		printKV(out, "From", orNone(cfg.Package.From))
		printKV(out, "To", cfg.Package.To)
	} else {
		printKV(out, "Package", "(all migrations)")
	}
	fmt.Fprintln(out)

	printSection(out, "Files")
	printList(out, "Include", cfg.Include)
	printList(out, "Exclude", cfg.Exclude)
	printList(out, "Reference paths", cfg.ReferencePaths)
	printKV(out, "Respect .gitignore", boolYesNo(cfg.RespectGitignore))
	fmt.Fprintln(out)

	printSection(out, "Run")
	parallelism := "one per CPU"
	if cfg.Parallelism > 0 {
		parallelism = strconv.Itoa(cfg.Parallelism)
	}
	printKV(out, "Parallelism", parallelism)
	printKV(out, "Dry run", boolYesNo(cfg.DryRun))
	printKV(out, "Prefilter", boolYesNo(cfg.Prefilter))
	printKV(out, "Semantic", boolYesNo(cfg.Semantic))
	printKV(out, "Cache dir", orNone(cfg.Cache.Dir))
	printKV(out, "Log level", cfg.Log.Level)
	printKV(out, "Watch debounce", cfg.Watch.Debounce.String())
	fmt.Fprintln(out)
}

func printSection(out io.Writer, title string) {
	fmt.Fprintf(out, "  %s\n", headerStyle.Render(title))
}

func printKV(out io.Writer, label, value string) {
	fmt.Fprintf(out, "    %s%s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func printList(out io.Writer, label string, values []string) {
	if len(values) == 0 {
		printKV(out, label, "(none)")
		return
	}
	printKV(out, label, values[0])
	for _, v := range values[1:] {
		fmt.Fprintf(out, "    %s%s\n", labelStyle.Render(""), valueStyle.Render(v))
	}
}

func boolYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
