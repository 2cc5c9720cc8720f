package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imyousuf/csmigrate/internal/config"
)

const defaultRulesFile = "migrations.yaml"

func newInitCmd() *cobra.Command {
	var (
		interactive bool
		force       bool
		rulesFile   string
		pkg         string
		from, to    string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .csmigrate.yaml config file",
		Long: `Create a .csmigrate.yaml config file in the current directory.

The file holds the defaults for 'csmigrate run' and 'csmigrate watch': the
rule file, the package upgrade that selects migrations, the file patterns and
the run options. Use --interactive for a guided setup that offers the NuGet
packages referenced by the project files it finds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			path := filepath.Join(cwd, config.DefaultConfigFile+"."+config.DefaultConfigType)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("check config file: %w", err)
			}

			if interactive {
				return runInteractiveInit(cmd, cwd, path)
			}

			cfg := config.Default()
			cfg.RulesFile = rulesFile
			cfg.Package = config.PackageConfig{Name: pkg, From: from, To: to}
			return writeInitConfig(cmd, cfg, path)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "guided setup")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.Flags().StringVar(&rulesFile, "rules", defaultRulesFile, "rule file to configure")
	cmd.Flags().StringVar(&pkg, "package", "", "NuGet package being upgraded")
	cmd.Flags().StringVar(&from, "from", "", "version upgraded from")
	cmd.Flags().StringVar(&to, "to", "", "version upgraded to")
	return cmd
}

func writeInitConfig(cmd *cobra.Command, cfg *config.Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := config.WriteConfig(cfg, path); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", path)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	if _, err := os.Stat(cfg.RulesFile); err != nil {
		fmt.Fprintf(out, "  1. Write your migration rules to %s\n", cfg.RulesFile)
	} else {
		fmt.Fprintf(out, "  1. Review the migration rules in %s\n", cfg.RulesFile)
	}
	fmt.Fprintln(out, "  2. Run 'csmigrate validate' to check them")
	fmt.Fprintln(out, "  3. Run 'csmigrate run --dry-run' to preview the changes")
	fmt.Fprintln(out, "  4. Add .csmigrate-cache/ to .gitignore if you enable the declaration cache")
	return nil
}
