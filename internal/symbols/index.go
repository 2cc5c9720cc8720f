package symbols

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/imyousuf/csmigrate/internal/syntax"
)

// Index holds the declarations of a set of files. Partial types declared in
// several files are merged under their namespace-qualified name.
type Index struct {
	mu         sync.RWMutex
	files      map[string]FileDecls
	byFull     map[string]*Type
	bySimple   map[string][]*Type
	extensions map[string][]binding
}

// binding is a method together with the type declaring it.
type binding struct {
	owner  *Type
	method Method
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{files: make(map[string]FileDecls)}
}

// Add records the declarations of files, replacing earlier entries for the
// same paths.
func (x *Index) Add(files ...FileDecls) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, f := range files {
		x.files[f.Path] = f
	}
	x.reindex()
}

// Len returns the number of indexed files.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.files)
}

// Types returns the indexed types sorted by full name.
func (x *Index) Types() []Type {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]Type, 0, len(x.byFull))
	for _, t := range x.byFull {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName() < out[j].FullName() })
	return out
}

func (x *Index) reindex() {
	x.byFull = make(map[string]*Type)
	x.bySimple = make(map[string][]*Type)
	x.extensions = make(map[string][]binding)

	paths := make([]string, 0, len(x.files))
	for p := range x.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		for _, t := range x.files[p].Types {
			full := t.FullName()
			if existing, ok := x.byFull[full]; ok {
				existing.Static = existing.Static || t.Static
				existing.Bases = append(existing.Bases, t.Bases...)
				existing.Methods = append(existing.Methods, t.Methods...)
				existing.Members = append(existing.Members, t.Members...)
				continue
			}
			merged := t
			merged.Bases = append([]string(nil), t.Bases...)
			merged.Methods = append([]Method(nil), t.Methods...)
			merged.Members = append([]Member(nil), t.Members...)
			x.byFull[full] = &merged
			x.bySimple[t.Name] = append(x.bySimple[t.Name], &merged)
		}
	}
	for _, t := range x.byFull {
		for _, m := range t.Methods {
			if m.Extension {
				x.extensions[m.Name] = append(x.extensions[m.Name], binding{owner: t, method: m})
			}
		}
	}
}

// Build indexes every readable file in paths. Declarations are read from
// cache when the file content is unchanged. Unreadable files are logged and
// skipped; only cancellation is returned as an error.
func (x *Index) Build(ctx context.Context, paths []string, cache Cache, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	results := make([]FileDecls, len(paths))
	ok := make([]bool, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("skipping unreadable file", "path", path, "error", err)
				return nil
			}
			sum := xxhash.Sum64(src)
			if cache != nil {
				if decls, hit := cache.Get(path, sum); hit {
					results[i], ok[i] = decls, true
					return nil
				}
			}
			tree, err := syntax.Parse(gctx, stripBOM(src))
			if err != nil {
				logger.Warn("skipping unparsable file", "path", path, "error", err)
				return nil
			}
			decls := Extract(tree, path)
			if cache != nil {
				if err := cache.Put(path, sum, decls); err != nil {
					logger.Debug("declaration cache write failed", "path", path, "error", err)
				}
			}
			results[i], ok[i] = decls, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var files []FileDecls
	for i := range results {
		if ok[i] {
			files = append(files, results[i])
		}
	}
	x.Add(files...)
	logger.Debug("symbol index built", "files", len(files), "types", len(x.Types()))
	return nil
}

// lookupType returns the indexed types a written type name can refer to from
// code in namespace ns with the given using directives.
func (x *Index) lookupType(name, ns string, usings []string) []*Type {
	name = syntax.StripGenerics(strings.TrimPrefix(name, "global::"))
	if name == "" {
		return nil
	}
	var matches []*Type
	for _, t := range x.bySimple[syntax.SimpleName(name)] {
		if strings.Contains(name, ".") {
			if t.FullName() == name || strings.HasSuffix(t.FullName(), "."+name) || t.Qualified == name {
				matches = append(matches, t)
			}
			continue
		}
		matches = append(matches, t)
	}
	if len(matches) <= 1 {
		return matches
	}
	var visible []*Type
	for _, t := range matches {
		if namespaceVisible(t.Namespace, ns, usings) {
			visible = append(visible, t)
		}
	}
	if len(visible) > 0 {
		return visible
	}
	return matches
}

// hierarchy returns types followed by their transitive base types.
func (x *Index) hierarchy(types []*Type, ns string, usings []string) []*Type {
	var out []*Type
	seen := make(map[*Type]bool)
	queue := append([]*Type(nil), types...)
	for len(queue) > 0 && len(out) < 64 {
		t := queue[0]
		queue = queue[1:]
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		for _, b := range t.Bases {
			queue = append(queue, x.lookupType(b, t.Namespace, usings)...)
		}
	}
	return out
}

// namespaceVisible reports whether declarations in target are in scope for
// code in namespace from.
func namespaceVisible(target, from string, usings []string) bool {
	if target == "" || target == from || strings.HasPrefix(from, target+".") {
		return true
	}
	for _, u := range usings {
		if u == target {
			return true
		}
	}
	return false
}

func stripBOM(src []byte) []byte {
	if len(src) >= 3 && src[0] == 0xEF && src[1] == 0xBB && src[2] == 0xBF {
		return src[3:]
	}
	return src
}
