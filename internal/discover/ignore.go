package discover

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Ignore matches paths against the .gitignore files found under a set of
// roots.
type Ignore struct {
	rules []ignoreRule
}

type ignoreRule struct {
	// pattern is a doublestar pattern relative to base.
	pattern  string
	negation bool
	dirOnly  bool
	// base is the directory holding the .gitignore file. Empty for built-in
	// rules, which match anywhere.
	base string
}

var builtinIgnores = []string{".git/"}

// LoadIgnore reads every .gitignore file under roots. Unreadable files are
// skipped.
func LoadIgnore(roots []string) (*Ignore, error) {
	ig := &Ignore{}
	for _, line := range builtinIgnores {
		if r, ok := parseIgnoreLine(line, ""); ok {
			ig.rules = append(ig.rules, r)
		}
	}

	for _, root := range roots {
		root, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip inaccessible entries
			}
			if d.IsDir() {
				if d.Name() == ".git" {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Name() == ".gitignore" {
				rules, loadErr := loadGitIgnoreFile(path)
				if loadErr != nil {
					return nil
				}
				ig.rules = append(ig.rules, rules...)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return ig, nil
}

// Match reports whether path is ignored. A path inside an ignored directory
// is ignored whatever later rules say, as in git.
func (ig *Ignore) Match(path string, isDir bool) bool {
	if ig == nil || len(ig.rules) == 0 {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	parts := splitPath(abs)
	for i := 1; i <= len(parts); i++ {
		sub := string(filepath.Separator) + filepath.Join(parts[:i]...)
		dir := i < len(parts) || isDir
		if ig.matchOne(sub, dir) {
			return true
		}
	}
	return false
}

// matchOne applies the rules to a single path; the last matching rule wins.
func (ig *Ignore) matchOne(path string, isDir bool) bool {
	ignored := false
	for _, r := range ig.rules {
		if r.dirOnly && !isDir {
			continue
		}
		rel, ok := relativeTo(r.base, path)
		if !ok {
			continue
		}
		if matched, _ := doublestar.Match(r.pattern, rel); matched {
			ignored = !r.negation
		}
	}
	return ignored
}

func relativeTo(base, path string) (string, bool) {
	if base == "" {
		return strings.TrimPrefix(filepath.ToSlash(path), "/"), true
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func loadGitIgnoreFile(gitignorePath string) ([]ignoreRule, error) {
	f, err := os.Open(gitignorePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	base := filepath.Dir(gitignorePath)
	var rules []ignoreRule
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if r, ok := parseIgnoreLine(scanner.Text(), base); ok {
			rules = append(rules, r)
		}
	}
	return rules, scanner.Err()
}

// parseIgnoreLine converts one .gitignore line to a rule. Patterns without
// an inner slash match at any depth below base; the others are anchored.
func parseIgnoreLine(line, base string) (ignoreRule, bool) {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") {
		return ignoreRule{}, false
	}
	r := ignoreRule{base: base}
	if strings.HasPrefix(line, "!") {
		r.negation = true
		line = line[1:]
	}
	line = strings.TrimPrefix(line, `\`)
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if line == "" {
		return ignoreRule{}, false
	}
	if strings.Contains(line, "/") {
		r.pattern = strings.TrimPrefix(line, "/")
	} else {
		r.pattern = "**/" + line
	}
	return r, true
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(filepath.ToSlash(path), "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
