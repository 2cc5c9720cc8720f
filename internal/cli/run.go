package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imyousuf/csmigrate/internal/config"
	"github.com/imyousuf/csmigrate/internal/report"
)

// runFlags are the command-line overrides for configuration keys.
type runFlags struct {
	rulesFile   string
	pkg         string
	from        string
	to          string
	parallelism int
	dryRun      bool
	noPrefilter bool
	noSemantic  bool
	noGitignore bool
	cacheDir    string
	format      string
	jsonOut     bool
	git         gitOptions
}

func (f *runFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.rulesFile, "rules", "r", "", "rule file (YAML, JSON or TOML); overrides rules_file")
	fs.StringVar(&f.pkg, "package", "", "NuGet package being upgraded; selects its migrations")
	fs.StringVar(&f.from, "from", "", "version upgraded from")
	fs.StringVar(&f.to, "to", "", "version upgraded to")
	fs.IntVarP(&f.parallelism, "parallelism", "j", 0, "files processed concurrently (default: number of CPUs)")
	fs.BoolVarP(&f.dryRun, "dry-run", "n", false, "report changes as diffs without writing files")
	fs.BoolVar(&f.noPrefilter, "no-prefilter", false, "parse every file, even those that cannot match")
	fs.BoolVar(&f.noSemantic, "no-semantic", false, "match by syntax only, without the declaration index")
	fs.BoolVar(&f.noGitignore, "no-gitignore", false, "do not skip files ignored by .gitignore")
	fs.StringVar(&f.cacheDir, "cache-dir", "", "directory for the declaration cache")
}

func (f *runFlags) registerGit(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.git.since, "since", "", "only migrate files changed since this git revision")
	cmd.Flags().BoolVar(&f.git.requireClean, "require-clean", false, "refuse to rewrite files with uncommitted git changes")
}

func (f *runFlags) registerFormat(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "text", "report format: text, json or markdown")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "shorthand for --format json")
}

// apply copies the flags the user set onto cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("rules") {
		cfg.RulesFile = f.rulesFile
	}
	if changed("package") {
		cfg.Package.Name = f.pkg
	}
	if changed("from") {
		cfg.Package.From = f.from
	}
	if changed("to") {
		cfg.Package.To = f.to
	}
	if changed("parallelism") {
		cfg.Parallelism = f.parallelism
	}
	if changed("dry-run") {
		cfg.DryRun = f.dryRun
	}
	if f.noPrefilter {
		cfg.Prefilter = false
	}
	if f.noSemantic {
		cfg.Semantic = false
	}
	if f.noGitignore {
		cfg.RespectGitignore = false
	}
	if changed("cache-dir") {
		cfg.Cache.Dir = f.cacheDir
	}
}

func (f *runFlags) reportFormat() (report.Format, error) {
	if f.jsonOut {
		return report.FormatJSON, nil
	}
	return report.ParseFormat(f.format)
}

// prepare loads the configuration and applies flag overrides.
func prepare(cmd *cobra.Command, flags *runFlags) (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	flags.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func rootsOf(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}
	return args
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Apply migration rules to C# files",
		Long: `Apply the migration rules of a rule file to every selected C# file
under the given paths (default: the current directory).

Files are rewritten in place unless --dry-run is given, in which case the
report carries a unified diff per file. The command exits with status 1
when any rule or file recorded an error.`,
		Example: `  csmigrate run --rules migrations.yaml src/
  csmigrate run -r migrations.yaml --package Shared.Http --from 1.4.0 --to 2.0.0
  csmigrate run -r migrations.yaml --dry-run --format markdown > report.md
  csmigrate run -r migrations.yaml --since origin/main --require-clean`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := flags.reportFormat()
			if err != nil {
				return err
			}
			cfg, err := prepare(cmd, flags)
			if err != nil {
				return err
			}
			logger, err := newLogger(os.Stderr, cfg, opts.verbose)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, cfg, rootsOf(args), logger)
			if err != nil {
				return err
			}
			defer s.Close()

			files, err := s.selector.Files(ctx)
			if err != nil {
				return fmt.Errorf("discover files: %w", err)
			}
			git := flags.git
			if cfg.DryRun {
				git.requireClean = false
			}
			if files, err = git.apply(ctx, s.selector.Roots()[0], files); err != nil {
				return err
			}
			out, stats, err := s.migrate(ctx, files)
			if err != nil {
				return err
			}
			return finish(cmd, out, format, stats)
		},
	}

	flags.register(cmd)
	flags.registerGit(cmd)
	flags.registerFormat(cmd)
	return cmd
}
