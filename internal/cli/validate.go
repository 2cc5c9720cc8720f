package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imyousuf/csmigrate/internal/report"
	"github.com/imyousuf/csmigrate/internal/rules"
)

// ruleFileArg resolves the rule file from the first argument, falling back
// to the configured rules_file.
func ruleFileArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.RulesFile == "" {
		return "", fmt.Errorf("no rule file given and rules_file is not configured")
	}
	return cfg.RulesFile, nil
}

func newValidateCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [rule-file]",
		Short: "Check a rule file for mistakes",
		Long: `Check a rule file against the rule schema and report rules that cannot
work as written (errors) or that will run as no-ops (warnings), such as an
action that does not apply to its target kind.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ruleFileArg(args)
			if err != nil {
				return err
			}
			set, err := rules.Load(path)
			if err != nil {
				return err
			}

			issues := set.Validate()
			report.WriteIssues(cmd.OutOrStdout(), issues)

			var errs, warns int
			for _, issue := range issues {
				if issue.Severity == rules.SeverityError {
					errs++
				} else {
					warns++
				}
			}
			out := cmd.OutOrStdout()
			if errs == 0 && warns == 0 {
				fmt.Fprintf(out, "%s: %d rule(s), no issues\n", path, len(set.All()))
				return nil
			}
			fmt.Fprintf(out, "%s: %d error(s), %d warning(s)\n", path, errs, warns)
			if errs > 0 || (strict && warns > 0) {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")
	return cmd
}
