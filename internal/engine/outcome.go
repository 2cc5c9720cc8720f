package engine

import (
	"errors"
	"fmt"

	"github.com/imyousuf/csmigrate/internal/matcher"
	"github.com/imyousuf/csmigrate/internal/transform"
)

// Outcome is the result of one migration run.
type Outcome struct {
	Success       bool         `json:"success"`
	ModifiedFiles []string     `json:"modified_files"`
	AppliedRules  []string     `json:"applied_rules"`
	Errors        []string     `json:"errors"`
	Summary       string       `json:"summary"`
	DryRun        bool         `json:"dry_run,omitempty"`
	Changes       []FileChange `json:"changes,omitempty"`
	FilesScanned  int          `json:"files_scanned"`
	FilesSkipped  int          `json:"files_skipped"`
}

// FileChange is the diff a dry run would have written for one file.
type FileChange struct {
	Path string `json:"path"`
	Diff string `json:"diff"`
}

// ExitCode is the process status for an outcome: zero on success.
func ExitCode(o *Outcome) int {
	if o == nil || !o.Success {
		return 1
	}
	return 0
}

func summarize(o *Outcome) string {
	switch {
	case len(o.Errors) > 0:
		return fmt.Sprintf("Migration completed with %d error(s)", len(o.Errors))
	case len(o.ModifiedFiles) > 0:
		return fmt.Sprintf("Successfully migrated %d file(s)", len(o.ModifiedFiles))
	default:
		return "No changes needed"
	}
}

// ruleError formats err as `<file>:<line>: rule "<name>": <detail>`. The line
// comes from matcher and transform errors and is left out when unknown.
func ruleError(path, rule string, err error) string {
	line := 0
	var nodeErr *matcher.NodeError
	var actionErr *transform.ActionError
	switch {
	case errors.As(err, &nodeErr):
		line, err = nodeErr.Line, nodeErr.Err
	case errors.As(err, &actionErr):
		line, err = actionErr.Line, actionErr.Err
	}
	if line > 0 {
		return fmt.Sprintf("%s:%d: rule %q: %v", path, line, rule, err)
	}
	return fmt.Sprintf("%s: rule %q: %v", path, rule, err)
}

func fileError(path string, err error) string {
	return fmt.Sprintf("%s: %v", path, err)
}
