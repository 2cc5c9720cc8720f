// Package discover selects the C# files a migration run works on.
package discover

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultInclude selects every C# file.
var DefaultInclude = []string{"**/*.cs"}

// Options configures a Selector.
type Options struct {
	// Include and Exclude are doublestar patterns relative to the root being
	// walked. An empty Include selects DefaultInclude.
	Include []string
	Exclude []string
	// RespectGitignore skips files and directories ignored by .gitignore.
	RespectGitignore bool
	Logger           *slog.Logger
}

// Selector decides which files under a set of roots belong to a run.
type Selector struct {
	roots  []string
	opts   Options
	ignore *Ignore
	logger *slog.Logger
}

// NewSelector validates the patterns and loads .gitignore files when asked
// to. Roots may be directories or single files.
func NewSelector(roots []string, opts Options) (*Selector, error) {
	if len(opts.Include) == 0 {
		opts.Include = DefaultInclude
	}
	for _, p := range append(append([]string(nil), opts.Include...), opts.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	s := &Selector{opts: opts, logger: opts.Logger}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, err
		}
		s.roots = append(s.roots, abs)
	}
	if opts.RespectGitignore {
		var dirs []string
		for _, r := range s.roots {
			if info, err := os.Stat(r); err == nil && info.IsDir() {
				dirs = append(dirs, r)
			}
		}
		ig, err := LoadIgnore(dirs)
		if err != nil {
			return nil, fmt.Errorf("loading .gitignore files: %w", err)
		}
		s.ignore = ig
	}
	return s, nil
}

// Roots returns the absolute roots.
func (s *Selector) Roots() []string { return s.roots }

// Files walks the roots and returns the selected files, sorted and without
// duplicates. A root naming a file is returned unless it is excluded.
func (s *Selector) Files(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range s.roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !s.excluded(filepath.Dir(root), root) {
				add(root)
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				s.logger.Debug("skipping inaccessible path", "path", path, "error", err)
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				if path != root && s.SkipDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if s.selected(root, path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	s.logger.Debug("files discovered", "count", len(files))
	return files, nil
}

// Selected reports whether a file belongs to the run. The watcher uses it to
// filter change events.
func (s *Selector) Selected(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, root := range s.roots {
		if abs == root {
			return !s.excluded(filepath.Dir(root), root)
		}
		if rel, err := filepath.Rel(root, abs); err == nil && !filepath.IsAbs(rel) && rel != ".." && !hasParentPrefix(rel) {
			return s.selected(root, abs)
		}
	}
	return false
}

// SkipDir reports whether a directory is ignored and need not be walked.
func (s *Selector) SkipDir(path string) bool {
	if filepath.Base(path) == ".git" {
		return true
	}
	return s.ignore.Match(path, true)
}

func (s *Selector) selected(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if !matchAny(s.opts.Include, rel) {
		return false
	}
	if matchAny(s.opts.Exclude, rel) {
		return false
	}
	return !s.ignore.Match(path, false)
}

func (s *Selector) excluded(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return matchAny(s.opts.Exclude, filepath.ToSlash(rel)) || s.ignore.Match(path, false)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && os.IsPathSeparator(rel[2])
}
