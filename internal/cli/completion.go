package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// completionShells maps a shell to its script generator.
var completionShells = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash": func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":  func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish": func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell completion scripts",
		Long: `Generate the completion script for a shell. Without an argument the
shell is detected from $SHELL.

To load completions in your current shell session:
  source <(csmigrate completion bash)
  source <(csmigrate completion zsh)
  csmigrate completion fish | source`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			shell := ""
			if len(args) > 0 {
				shell = args[0]
			} else if shell = detectShell(); shell == "" {
				return fmt.Errorf("could not detect shell (SHELL env not set); pass bash, zsh or fish")
			}
			gen, ok := completionShells[shell]
			if !ok {
				return fmt.Errorf("unsupported shell: %s (only bash, zsh and fish are supported)", shell)
			}
			if err := gen(cmd.Root(), cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("failed to generate %s completion: %w", shell, err)
			}
			return nil
		},
	}
}

func detectShell() string {
	shell := os.Getenv("SHELL")
	if shell == "" {
		return ""
	}

	base := filepath.Base(shell)
	switch {
	case strings.Contains(base, "bash"):
		return "bash"
	case strings.Contains(base, "zsh"):
		return "zsh"
	case strings.Contains(base, "fish"):
		return "fish"
	default:
		return base
	}
}
