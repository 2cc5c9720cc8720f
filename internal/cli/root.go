// Package cli implements the command-line interface for csmigrate.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ExitError carries a process status for a command that already reported
// its result, such as a migration that recorded errors.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	cfgFile string
	verbose bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "csmigrate",
		Short: "csmigrate - rule-driven C# source migrations for dependency upgrades",
		Long: `csmigrate applies declarative migration rules to C# source files when a
NuGet dependency is upgraded: it removes and rewrites call sites, renames
members and changes method, class, field and parameter declarations, and
reports every change and error it made.

Commands:
  run        Apply migration rules to C# files
  validate   Check a rule file for mistakes
  rules      List the rules of a rule file and the supported actions
  init       Create a .csmigrate.yaml config file
  watch      Re-run the migration whenever C# files change
  config     Show the effective configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default: .csmigrate.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	if err := viper.BindPFlag("config_file", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		panic(fmt.Sprintf("failed to bind config flag: %v", err))
	}

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newRulesCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newWatchCmd(opts))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
