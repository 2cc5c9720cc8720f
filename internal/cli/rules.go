package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imyousuf/csmigrate/internal/report"
	"github.com/imyousuf/csmigrate/internal/rules"
)

func newRulesCmd() *cobra.Command {
	var (
		actions  bool
		pkg      string
		from, to string
	)

	cmd := &cobra.Command{
		Use:   "rules [rule-file]",
		Short: "List the rules of a rule file and the supported actions",
		Long: `List the rules of a rule file with their targets, constraints and
action. Rules whose action does not apply to a target are marked "no-op".

With --package, only the rules selected for that upgrade are listed.
With --actions, the actions each target kind supports are printed instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if actions {
				report.WriteActions(out)
				return nil
			}

			path, err := ruleFileArg(args)
			if err != nil {
				return err
			}
			set, err := rules.Load(path)
			if err != nil {
				return err
			}
			rs, err := set.Select(pkg, from, to)
			if err != nil {
				return fmt.Errorf("select migrations: %w", err)
			}
			report.WriteRules(out, rs)
			return nil
		},
	}

	cmd.Flags().BoolVar(&actions, "actions", false, "list the actions supported per target kind")
	cmd.Flags().StringVar(&pkg, "package", "", "only rules selected for this package upgrade")
	cmd.Flags().StringVar(&from, "from", "", "version upgraded from")
	cmd.Flags().StringVar(&to, "to", "", "version upgraded to")
	return cmd
}
