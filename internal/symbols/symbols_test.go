package symbols

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imyousuf/csmigrate/internal/syntax"
)

const extensionsSource = `namespace Shared.Analyzer.Extensions
{
    public static class ServiceCollectionExtensions
    {
        public static IServiceCollection AddCustomHandler(this IServiceCollection services)
        {
            return services;
        }

        public static IServiceCollection AddCustomHandler(this IServiceCollection services, string name)
        {
            return services;
        }
    }
}

namespace Other.Extensions
{
    public static class OtherExtensions
    {
        public static IServiceCollection AddCustomHandler(this IServiceCollection services, int a, int b)
        {
            return services;
        }
    }
}
`

const startupSource = `using Shared.Analyzer.Extensions;

namespace App
{
    public class Startup
    {
        private readonly Helper _helper;

        public void Configure(IServiceCollection services)
        {
            services.AddCustomHandler();
            services.AddLogging().AddCustomHandler("x");
            var helper = new Helper();
            helper.Run(1);
            Helper.Create();
            Local();
            _helper.Run(2);
            unknown.AddCustomHandler();
        }

        private void Local() { }
    }

    public class Helper
    {
        public void Run(int n) { }
        public static Helper Create() => new Helper();
    }
}
`

func parse(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	tree, err := syntax.Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	return tree
}

func TestExtract(t *testing.T) {
	decls := Extract(parse(t, extensionsSource), "Extensions.cs")
	require.Len(t, decls.Types, 2)

	ext := decls.Types[0]
	assert.Equal(t, "ServiceCollectionExtensions", ext.Name)
	assert.Equal(t, "Shared.Analyzer.Extensions", ext.Namespace)
	assert.Equal(t, "class", ext.Kind)
	assert.True(t, ext.Static)
	require.Len(t, ext.Methods, 2)

	m := ext.Methods[1]
	assert.True(t, m.Extension)
	assert.Equal(t, "IServiceCollection", m.Receiver)
	assert.Equal(t, "IServiceCollection", m.ReturnType)
	assert.Equal(t, []Param{{Name: "name", Type: "string"}}, m.Params)

	decls = Extract(parse(t, startupSource), "Startup.cs")
	require.Len(t, decls.Types, 2)
	assert.Equal(t, []Member{{Name: "_helper", Type: "Helper"}}, decls.Types[0].Members)
	assert.Equal(t, "App.Helper", decls.Types[1].FullName())
}

func TestArityMatches(t *testing.T) {
	params := []Param{{Name: "a"}, {Name: "b", Optional: true}}
	assert.False(t, arityMatches(params, 0))
	assert.True(t, arityMatches(params, 1))
	assert.True(t, arityMatches(params, 2))
	assert.False(t, arityMatches(params, 3))
	assert.True(t, arityMatches(append(params, Param{Name: "rest", Variadic: true}), 7))
}

func TestResolveInvocation(t *testing.T) {
	idx := NewIndex()
	idx.Add(Extract(parse(t, extensionsSource), "Extensions.cs"))
	tree := parse(t, startupSource)
	idx.Add(Extract(tree, "Startup.cs"))

	calls := tree.DescendantsOfKind(syntax.KindInvocation)
	byText := make(map[string]syntax.Node)
	for _, c := range calls {
		byText[c.Text()] = c
	}
	resolve := func(text string) *Symbol {
		t.Helper()
		call, ok := byText[text]
		require.True(t, ok, "no call %q", text)
		sym, _ := idx.ResolveInvocation(tree, call)
		return sym
	}

	sym := resolve("services.AddCustomHandler()")
	require.NotNil(t, sym)
	assert.Equal(t, "ServiceCollectionExtensions", sym.ContainingType)
	assert.Equal(t, "Shared.Analyzer.Extensions", sym.Namespace)
	assert.True(t, sym.Extension)
	assert.False(t, sym.Candidate)
	assert.Empty(t, sym.Params)

	sym = resolve(`services.AddLogging().AddCustomHandler("x")`)
	require.NotNil(t, sym)
	assert.Equal(t, "ServiceCollectionExtensions", sym.ContainingType)
	assert.True(t, sym.Candidate)
	assert.Equal(t, []Param{{Name: "name", Type: "string"}}, sym.Params)

	sym = resolve("helper.Run(1)")
	require.NotNil(t, sym)
	assert.Equal(t, "App.Helper", sym.FullTypeName())

	sym = resolve("_helper.Run(2)")
	require.NotNil(t, sym)
	assert.Equal(t, "Helper", sym.ContainingType)

	sym = resolve("Helper.Create()")
	require.NotNil(t, sym)
	assert.Equal(t, "Create", sym.Name)

	sym = resolve("Local()")
	require.NotNil(t, sym)
	assert.Equal(t, "Startup", sym.ContainingType)

	sym = resolve("unknown.AddCustomHandler()")
	require.NotNil(t, sym)
	assert.True(t, sym.Candidate)

	assert.Nil(t, resolve("services.AddLogging()"))
}

func TestResolveAmbiguousAcrossTypes(t *testing.T) {
	lib := `namespace Lib
{
    public static class A { public static void Register(this IServiceCollection s) { } }
    public static class B { public static void Register(this IServiceCollection s) { } }
}
`
	app := `using Lib;

class Program
{
    void Main(IServiceCollection services)
    {
        services.Register();
    }
}
`
	idx := NewIndex()
	idx.Add(Extract(parse(t, lib), "Lib.cs"))
	tree := parse(t, app)
	calls := tree.DescendantsOfKind(syntax.KindInvocation)
	require.Len(t, calls, 1)

	sym, ok := idx.ResolveInvocation(tree, calls[0])
	assert.False(t, ok)
	assert.Nil(t, sym)
}

func TestPartialTypesMerge(t *testing.T) {
	idx := NewIndex()
	idx.Add(
		FileDecls{Path: "a.cs", Types: []Type{{Name: "Svc", Qualified: "Svc", Namespace: "N", Methods: []Method{{Name: "A"}}}}},
		FileDecls{Path: "b.cs", Types: []Type{{Name: "Svc", Qualified: "Svc", Namespace: "N", Methods: []Method{{Name: "B"}}}}},
	)
	types := idx.Types()
	require.Len(t, types, 1)
	assert.Len(t, types[0].Methods, 2)

	// Re-adding a path replaces its declarations.
	idx.Add(FileDecls{Path: "b.cs"})
	assert.Len(t, idx.Types()[0].Methods, 1)
	assert.Equal(t, 2, idx.Len())
}

func TestBadgerCache(t *testing.T) {
	cache, err := OpenBadgerCache(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	_, ok := cache.Get("a.cs", 1)
	assert.False(t, ok)

	decls := FileDecls{Path: "a.cs", Types: []Type{{Name: "A", Qualified: "A"}}}
	require.NoError(t, cache.Put("a.cs", 1, decls))
	got, ok := cache.Get("a.cs", 1)
	require.True(t, ok)
	assert.Equal(t, decls, got)

	require.NoError(t, cache.Put("a.cs", 2, FileDecls{Path: "a.cs"}))
	_, ok = cache.Get("a.cs", 1)
	assert.False(t, ok, "stale version should be dropped")
	n, err := cache.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type countingCache struct {
	Cache
	hits int
}

func (c *countingCache) Get(path string, sum uint64) (FileDecls, bool) {
	d, ok := c.Cache.Get(path, sum)
	if ok {
		c.hits++
	}
	return d, ok
}

func TestBuildUsesCache(t *testing.T) {
	dir := t.TempDir()
	paths := []string{filepath.Join(dir, "Extensions.cs"), filepath.Join(dir, "Startup.cs")}
	require.NoError(t, os.WriteFile(paths[0], []byte(extensionsSource), 0644))
	require.NoError(t, os.WriteFile(paths[1], []byte(startupSource), 0644))

	bc, err := OpenBadgerCache(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	t.Cleanup(func() { bc.Close() })

	idx := NewIndex()
	require.NoError(t, idx.Build(context.Background(), append(paths, filepath.Join(dir, "missing.cs")), bc, nil))
	assert.Equal(t, 2, idx.Len())
	assert.Len(t, idx.Types(), 4)

	// Build runs files concurrently; a single path keeps the counter race free.
	cc := &countingCache{Cache: bc}
	require.NoError(t, NewIndex().Build(context.Background(), paths[:1], cc, nil))
	assert.Equal(t, 1, cc.hits)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewIndex().Build(ctx, []string{"a.cs"}, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
