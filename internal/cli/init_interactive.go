package cli

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/imyousuf/csmigrate/internal/config"
)

// packageRef is a NuGet package referenced by a project file.
type packageRef struct {
	Name    string
	Version string
}

type projectFile struct {
	ItemGroups []struct {
		References []struct {
			Include string `xml:"Include,attr"`
			Version string `xml:"Version,attr"`
			// Older project files put the version in a child element.
			VersionElem string `xml:"Version"`
		} `xml:"PackageReference"`
	} `xml:"ItemGroup"`
}

// skippedDirs are never searched for project files.
var skippedDirs = map[string]bool{
	".git": true, "bin": true, "obj": true, "node_modules": true, "packages": true,
}

// detectPackages walks rootDir (depth-limited to 3 levels) and returns the
// package references of the .csproj files it finds, sorted by name. When
// projects reference different versions of a package the lowest wins, since
// that is the version a migration starts from.
func detectPackages(rootDir string) []packageRef {
	found := make(map[string]string)

	rootDepth := strings.Count(filepath.ToSlash(rootDir), "/")
	_ = filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		depth := strings.Count(filepath.ToSlash(path), "/") - rootDepth
		if d.IsDir() {
			if depth >= 3 || (path != rootDir && skippedDirs[d.Name()]) {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".csproj") {
			return nil
		}
		for _, ref := range readPackageRefs(path) {
			if v, ok := found[ref.Name]; !ok || olderVersion(ref.Version, v) {
				found[ref.Name] = ref.Version
			}
		}
		return nil
	})

	result := make([]packageRef, 0, len(found))
	for name, version := range found {
		result = append(result, packageRef{Name: name, Version: version})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// olderVersion reports whether a is a lower version than b. Versions that
// are not semantic versions never replace a known one.
func olderVersion(a, b string) bool {
	if a == "" {
		return false
	}
	if b == "" {
		return true
	}
	va, vb := "v"+a, "v"+b
	if !semver.IsValid(va) || !semver.IsValid(vb) {
		return false
	}
	return semver.Compare(va, vb) < 0
}

func readPackageRefs(path string) []packageRef {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var proj projectFile
	if err := xml.Unmarshal(data, &proj); err != nil {
		return nil
	}
	var refs []packageRef
	for _, group := range proj.ItemGroups {
		for _, r := range group.References {
			if r.Include == "" {
				continue
			}
			version := r.Version
			if version == "" {
				version = strings.TrimSpace(r.VersionElem)
			}
			refs = append(refs, packageRef{Name: r.Include, Version: version})
		}
	}
	return refs
}

// initAnswers holds the values the setup wizard collects.
type initAnswers struct {
	rulesFile string
	pkg       string
	from      string
	to        string
	include   string
	dryRun    bool
	semantic  bool
	confirm   bool
	// versions maps detected package names to their referenced version.
	versions map[string]string
}

func newInitAnswers(packages []packageRef) *initAnswers {
	a := &initAnswers{
		rulesFile: defaultRulesFile,
		include:   strings.Join(config.Default().Include, ", "),
		dryRun:    true,
		semantic:  true,
		versions:  make(map[string]string, len(packages)),
	}
	for _, p := range packages {
		a.versions[p.Name] = p.Version
	}
	return a
}

// packageOptions lists the detected packages, led by an entry that runs
// every migration.
func packageOptions(packages []packageRef) []huh.Option[string] {
	opts := []huh.Option[string]{huh.NewOption("(all migrations)", "")}
	for _, p := range packages {
		label := p.Name
		if p.Version != "" {
			label = fmt.Sprintf("%s (%s)", p.Name, p.Version)
		}
		opts = append(opts, huh.NewOption(label, p.Name))
	}
	return opts
}

func newInitForm(a *initAnswers, packages []packageRef, path string) *huh.Form {
	return huh.NewForm(
		// Group 1: Rules
		huh.NewGroup(
			huh.NewInput().
				Title("Rule file").
				Description("YAML, JSON or TOML").
				Value(&a.rulesFile).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("rule file cannot be empty")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Package being upgraded").
				Description("Packages referenced by the project files found here").
				Options(packageOptions(packages)...).
				Value(&a.pkg).
				Filtering(true),
		).Title("Migration"),

		// Group 2: Versions (hidden when every migration runs)
		huh.NewGroup(
			huh.NewInput().
				Title("Upgrading from version").
				PlaceholderFunc(func() string { return a.versions[a.pkg] }, &a.pkg).
				Value(&a.from),
			huh.NewInput().
				Title("Upgrading to version").
				Value(&a.to).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("target version is required")
					}
					return nil
				}),
		).Title("Versions").
			WithHideFunc(func() bool { return a.pkg == "" }),

		// Group 3: Files and options
		huh.NewGroup(
			huh.NewInput().
				Title("Include patterns").
				Description("Comma-separated globs, relative to the run paths").
				Value(&a.include),
			huh.NewConfirm().
				Title("Dry run by default?").
				Description("Report diffs instead of writing files").
				Value(&a.dryRun).
				Affirmative("Yes").
				Negative("No"),
			huh.NewConfirm().
				Title("Resolve symbols?").
				Description("Match invocations by declaring type and namespace").
				Value(&a.semantic).
				Affirmative("Yes").
				Negative("No"),
		).Title("Options"),

		// Group 4: Confirm
		huh.NewGroup(
			huh.NewNote().
				Title("Summary").
				DescriptionFunc(a.summary, &a.pkg),
			huh.NewConfirm().
				Title("Write " + filepath.Base(path) + "?").
				Value(&a.confirm).
				Affirmative("Write").
				Negative("Cancel"),
		).Title("Confirm"),
	).WithTheme(huh.ThemeCharm())
}

func (a *initAnswers) summary() string {
	target := "(all migrations)"
	if a.pkg != "" {
		target = fmt.Sprintf("%s %s -> %s", a.pkg, fromOrDetected(a.from, a.versions[a.pkg]), strings.TrimSpace(a.to))
	}
	return fmt.Sprintf(
		"Rules:     %s\n"+
			"Package:   %s\n"+
			"Include:   %s\n"+
			"Dry run:   %v\n"+
			"Semantic:  %v",
		a.rulesFile, target, a.include, a.dryRun, a.semantic,
	)
}

// toConfig turns the answers into a configuration.
func (a *initAnswers) toConfig() *config.Config {
	cfg := config.Default()
	cfg.RulesFile = strings.TrimSpace(a.rulesFile)
	if a.pkg != "" {
		cfg.Package = config.PackageConfig{Name: a.pkg, From: fromOrDetected(a.from, a.versions[a.pkg]), To: strings.TrimSpace(a.to)}
	}
	cfg.Include = splitPatterns(a.include)
	cfg.DryRun = a.dryRun
	cfg.Semantic = a.semantic
	return cfg
}

// runInteractiveInit runs the setup wizard and writes the config to path.
func runInteractiveInit(cmd *cobra.Command, cwd, path string) error {
	out := cmd.OutOrStdout()

	packages := detectPackages(cwd)
	answers := newInitAnswers(packages)
	if err := newInitForm(answers, packages, path).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
		return fmt.Errorf("interactive init: %w", err)
	}
	if !answers.confirm {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}
	return writeInitConfig(cmd, answers.toConfig(), path)
}

func fromOrDetected(from, detected string) string {
	if s := strings.TrimSpace(from); s != "" {
		return s
	}
	return detected
}

func splitPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return config.Default().Include
	}
	return out
}
