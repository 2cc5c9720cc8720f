package transform

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imyousuf/csmigrate/internal/matcher"
	"github.com/imyousuf/csmigrate/internal/rules"
	"github.com/imyousuf/csmigrate/internal/symbols"
	"github.com/imyousuf/csmigrate/internal/syntax"
)

// wrap places statements inside a method body.
func wrap(stmts string) string {
	return "class Startup\n{\n    void Configure(IServiceCollection services)\n    {\n" + stmts + "    }\n}\n"
}

func rewrite(t *testing.T, src string, target rules.TargetMatcher, action rules.Action, resolver symbols.Resolver) (string, bool, []error) {
	t.Helper()
	tree, err := syntax.Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	action.Kind = rules.ParseActionKind(action.Type)
	nodes, errs := matcher.Find(tree, target, resolver)
	require.Empty(t, errs)
	next, changed, errs := Dispatch(tree, target, nodes, action, resolver)
	assert.Equal(t, src, tree.String(), "the input tree must not change")
	return next.String(), changed, errs
}

func invocation(name string) rules.TargetMatcher {
	return rules.TargetMatcher{Kind: rules.Invocation, Name: name}
}

var removeCall = rules.Action{Type: "remove_invocation", Strategy: StrategySmartChainAware}

func TestRemoveInvocationChains(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "middle of chain",
			in:   "        recv.Keep1().Target().Keep2();\n",
			want: "        recv.Keep1().Keep2();\n",
		},
		{
			name: "head of chain without receiver",
			in:   "        var b = Target().Keep2();\n",
			want: "        var b = Keep2();\n",
		},
		{
			name: "head of chain with plain receiver",
			in:   "        recv.Target().Keep2();\n",
			want: "        recv.Keep2();\n",
		},
		{
			name: "tail of chain in expression",
			in:   "        var b = recv.Keep1().Target();\n",
			want: "        var b = recv.Keep1();\n",
		},
		{
			name: "tail of chain statement keeps the rest",
			in:   "        recv.Keep1().Target();\n",
			want: "        recv.Keep1();\n",
		},
		{
			name: "standalone statement deleted",
			in:   "        var x = 1;\n        recv.Target();\n        Use(x);\n",
			want: "        var x = 1;\n        Use(x);\n",
		},
		{
			name: "unqualified standalone statement deleted",
			in:   "        Target();\n        Use();\n",
			want: "        Use();\n",
		},
		{
			name: "multi line fluent chain",
			in: "        var builder = services.AddHttpClient()\n" +
				"            .AddResilienceHandler()\n" +
				"            .Target()\n" +
				"            .AddHttpMessageHandler<TokenHandler>();\n",
			want: "        var builder = services.AddHttpClient()\n" +
				"            .AddResilienceHandler()\n" +
				"            .AddHttpMessageHandler<TokenHandler>();\n",
		},
		{
			name: "embedded statement becomes empty block",
			in:   "        if (enabled)\n            recv.Target();\n",
			want: "        if (enabled)\n            { }\n",
		},
		{
			name: "argument is left alone",
			in:   "        Use(Target());\n",
			want: "        Use(Target());\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed, errs := rewrite(t, wrap(tt.in), invocation("Target"), removeCall, nil)
			require.Empty(t, errs)
			assert.Equal(t, wrap(tt.want), got)
			assert.Equal(t, tt.in != tt.want, changed)
		})
	}
}

func TestRemoveInvocationChainLengthDropsByOne(t *testing.T) {
	for n := 2; n <= 6; n++ {
		for pos := 0; pos < n; pos++ {
			calls := make([]string, n)
			var kept []string
			for i := range calls {
				calls[i] = "Keep" + string(rune('A'+i)) + "()"
				if i == pos {
					calls[i] = "Target()"
					continue
				}
				kept = append(kept, calls[i])
			}
			in := "        var r = recv." + strings.Join(calls, ".") + ";\n"
			want := "        var r = recv." + strings.Join(kept, ".") + ";\n"

			got, changed, errs := rewrite(t, wrap(in), invocation("Target"), removeCall, nil)
			require.Empty(t, errs)
			require.True(t, changed)
			assert.Equal(t, wrap(want), got, "n=%d pos=%d", n, pos)
		}
	}
}

func TestRemoveInvocationEveryMatchInOneFile(t *testing.T) {
	in := "        services.Target();\n" +
		"        var a = services.Keep().Target().Target().Keep();\n" +
		"        services.Target().Keep();\n"
	want := "        var a = services.Keep().Keep();\n" +
		"        services.Keep();\n"
	got, changed, errs := rewrite(t, wrap(in), invocation("Target"), removeCall, nil)
	require.Empty(t, errs)
	assert.True(t, changed)
	assert.Equal(t, wrap(want), got)
}

func TestRemoveInvocationStatementOnly(t *testing.T) {
	in := "        recv.Target();\n        recv.Target().Keep();\n"
	want := "        recv.Target().Keep();\n"
	action := rules.Action{Type: "remove_invocation", Strategy: StrategyStatementOnly}
	got, _, errs := rewrite(t, wrap(in), invocation("Target"), action, nil)
	require.Empty(t, errs)
	assert.Equal(t, wrap(want), got)
}

func TestReplaceInvocationIsIdempotent(t *testing.T) {
	in := wrap("        services.AddOldClient<Handler>(options);\n")
	action := rules.Action{Type: "replace_invocation", ReplacementName: "AddNewClient"}

	got, changed, errs := rewrite(t, in, invocation("AddOldClient"), action, nil)
	require.Empty(t, errs)
	require.True(t, changed)
	assert.Equal(t, wrap("        services.AddNewClient<Handler>(options);\n"), got)

	again, changed, errs := rewrite(t, got, invocation("AddOldClient"), action, nil)
	require.Empty(t, errs)
	assert.False(t, changed)
	assert.Equal(t, got, again)
}

func TestReplaceInvocationWithCode(t *testing.T) {
	in := wrap("        var c = factory.Create(name, 3);\n")
	action := rules.Action{Type: "replace_invocation", ReplacementCode: "ClientFactory.Build({receiver}, {arguments})"}
	got, changed, errs := rewrite(t, in, invocation("Create"), action, nil)
	require.Empty(t, errs)
	assert.True(t, changed)
	assert.Equal(t, wrap("        var c = ClientFactory.Build(factory, name, 3);\n"), got)
}

func TestRemoveArgumentDropsUnusedLocal(t *testing.T) {
	in := wrap("        var isEnabled = Flags.Read();\n        services.Add(configuration, isEnabled);\n")
	action := rules.Action{Type: "remove_argument", ArgumentName: "isEnabled"}
	got, changed, errs := rewrite(t, in, invocation("Add"), action, nil)
	require.Empty(t, errs)
	assert.True(t, changed)
	assert.Equal(t, wrap("        services.Add(configuration);\n"), got)
}

func TestRemoveArgumentKeepsUsedLocal(t *testing.T) {
	in := wrap("        var isEnabled = Flags.Read();\n        services.Add(isEnabled, configuration);\n        Log(isEnabled);\n")
	action := rules.Action{Type: "remove_argument", ArgumentName: "isEnabled"}
	got, _, errs := rewrite(t, in, invocation("Add"), action, nil)
	require.Empty(t, errs)
	assert.Equal(t, wrap("        var isEnabled = Flags.Read();\n        services.Add(configuration);\n        Log(isEnabled);\n"), got)
}

func TestRemoveArgumentByLabelAndPosition(t *testing.T) {
	in := wrap("        services.Add(configuration, enabled: true);\n        services.Add(configuration, false);\n")
	action := rules.Action{Type: "remove_argument", ArgumentName: "enabled"}

	got, _, errs := rewrite(t, in, invocation("Add"), action, nil)
	require.Empty(t, errs)
	assert.Equal(t, wrap("        services.Add(configuration);\n        services.Add(configuration, false);\n"), got)

	resolver := stubResolver{Name: "Add", Params: []symbols.Param{{Name: "configuration"}, {Name: "enabled"}}}
	got, _, errs = rewrite(t, in, invocation("Add"), action, resolver)
	require.Empty(t, errs)
	assert.Equal(t, wrap("        services.Add(configuration);\n        services.Add(configuration);\n"), got)
}

func TestRemoveNamedArgumentDropsUnusedLocal(t *testing.T) {
	in := wrap("        var flag = true;\n        services.Add(configuration, isEnabled: flag);\n")
	action := rules.Action{Type: "remove_argument", ArgumentName: "isEnabled"}
	got, changed, errs := rewrite(t, in, invocation("Add"), action, nil)
	require.Empty(t, errs)
	assert.True(t, changed)
	assert.Equal(t, wrap("        services.Add(configuration);\n"), got)
}

func TestRemoveNamedArgumentByValue(t *testing.T) {
	in := wrap("        services.Add(configuration, enabled: isEnabled);\n")
	action := rules.Action{Type: "remove_argument", ArgumentName: "isEnabled"}
	got, _, errs := rewrite(t, in, invocation("Add"), action, nil)
	require.Empty(t, errs)
	assert.Equal(t, wrap("        services.Add(configuration);\n"), got)
}

func TestRemoveArgumentSkipsNamedPositions(t *testing.T) {
	// The second argument sits at the position of "enabled" but names
	// another parameter.
	in := wrap("        services.Add(configuration, retries: 3);\n")
	action := rules.Action{Type: "remove_argument", ArgumentName: "enabled"}
	resolver := stubResolver{Name: "Add", Params: []symbols.Param{{Name: "configuration"}, {Name: "enabled"}}}
	got, changed, errs := rewrite(t, in, invocation("Add"), action, resolver)
	require.Empty(t, errs)
	assert.False(t, changed)
	assert.Equal(t, in, got)
}

type stubResolver symbols.Symbol

func (s stubResolver) ResolveInvocation(*syntax.Tree, syntax.Node) (*symbols.Symbol, bool) {
	sym := symbols.Symbol(s)
	return &sym, true
}

const methodSource = `class Worker
{
    [Obsolete("use V2"), Serializable]
    public static int Execute(string input) => input.Length;

    [Obsolete]
    internal void Stop() { }
}
`

func TestMethodRoutines(t *testing.T) {
	execute := rules.TargetMatcher{Kind: rules.MethodDecl, Name: "Execute"}

	got, _, errs := rewrite(t, methodSource, execute, rules.Action{Type: "rename_method", ReplacementName: "Run"}, nil)
	require.Empty(t, errs)
	assert.Contains(t, got, "public static int Run(string input) => input.Length;")

	got, _, errs = rewrite(t, methodSource, execute, rules.Action{Type: "replace_return_type", ReplacementType: "long"}, nil)
	require.Empty(t, errs)
	assert.Contains(t, got, "public static long Execute(string input)")

	got, _, errs = rewrite(t, methodSource, execute, rules.Action{
		Type:            "replace_method_signature",
		ReplacementCode: "public Task<int> ExecuteAsync(string input, CancellationToken ct);",
	}, nil)
	require.Empty(t, errs)
	assert.Contains(t, got, "    public static Task<int> ExecuteAsync(string input, CancellationToken ct) => input.Length;")

	_, changed, errs := rewrite(t, methodSource, execute, rules.Action{Type: "replace_method_signature", ReplacementCode: "not a signature ((("}, nil)
	assert.False(t, changed)
	require.Len(t, errs, 1)
	var aerr *ActionError
	require.True(t, errors.As(errs[0], &aerr))
	assert.Equal(t, 3, aerr.Line)
}

func TestAttributeRoutines(t *testing.T) {
	all := rules.TargetMatcher{Kind: rules.MethodDecl}

	got, _, errs := rewrite(t, methodSource, all, rules.Action{Type: "remove_attribute", AttributeName: "Obsolete"}, nil)
	require.Empty(t, errs)
	assert.Equal(t, `class Worker
{
    [Serializable]
    public static int Execute(string input) => input.Length;

    internal void Stop() { }
}
`, got)

	got, _, errs = rewrite(t, methodSource, all, rules.Action{Type: "add_attribute", AttributeName: "Serializable"}, nil)
	require.Empty(t, errs)
	assert.Equal(t, `class Worker
{
    [Obsolete("use V2"), Serializable]
    public static int Execute(string input) => input.Length;

    [Serializable]
    [Obsolete]
    internal void Stop() { }
}
`, got)

	param := rules.TargetMatcher{Kind: rules.ParameterDecl, Name: "input"}
	got, _, errs = rewrite(t, methodSource, param, rules.Action{Type: "add_attribute", AttributeName: "NotNull"}, nil)
	require.Empty(t, errs)
	assert.Contains(t, got, "Execute([NotNull] string input)")
}

const classSource = `namespace Acme
{
    public class OldService
    {
        public OldService() { }
        ~OldService() { }
    }

    public class Repository<T> : BaseRepository, IDisposable where T : class
    {
    }
}
`

func TestClassRoutines(t *testing.T) {
	old := rules.TargetMatcher{Kind: rules.ClassDecl, Name: "OldService"}
	repo := rules.TargetMatcher{Kind: rules.ClassDecl, Name: "Repository"}

	got, _, errs := rewrite(t, classSource, old, rules.Action{Type: "rename_class", ReplacementName: "NewService"}, nil)
	require.Empty(t, errs)
	assert.Contains(t, got, "public class NewService\n")
	assert.Contains(t, got, "public NewService() { }")
	assert.Contains(t, got, "~NewService() { }")

	got, _, errs = rewrite(t, classSource, old, rules.Action{Type: "change_base_class", ReplacementType: "ServiceBase"}, nil)
	require.Empty(t, errs)
	assert.Contains(t, got, "public class OldService : ServiceBase\n")

	got, _, errs = rewrite(t, classSource, repo, rules.Action{Type: "change_base_class", ReplacementType: "EfRepository<T>"}, nil)
	require.Empty(t, errs)
	assert.Contains(t, got, "Repository<T> : EfRepository<T>, IDisposable where T : class")

	got, _, errs = rewrite(t, classSource, repo, rules.Action{Type: "add_interface", ReplacementType: "IAsyncDisposable"}, nil)
	require.Empty(t, errs)
	assert.Contains(t, got, ": BaseRepository, IDisposable, IAsyncDisposable where T : class")

	_, changed, errs := rewrite(t, classSource, repo, rules.Action{Type: "add_interface", ReplacementType: "IDisposable"}, nil)
	require.Empty(t, errs)
	assert.False(t, changed)
}

const fieldSource = `class Settings
{
    private static readonly int a, b;
    [Inject] protected internal HttpClient client;
    int count;
}
`

func TestRenameFieldOnlyTargetedDeclarator(t *testing.T) {
	got, _, errs := rewrite(t, fieldSource, rules.TargetMatcher{Kind: rules.FieldDecl, Name: "b"},
		rules.Action{Type: "rename_field", ReplacementName: "total"}, nil)
	require.Empty(t, errs)
	assert.Contains(t, got, "private static readonly int a, total;")
}

func TestFieldRoutines(t *testing.T) {
	client := rules.TargetMatcher{Kind: rules.FieldDecl, Name: "client"}

	got, _, errs := rewrite(t, fieldSource, client, rules.Action{Type: "replace_field_type", ReplacementType: "IHttpClientFactory"}, nil)
	require.Empty(t, errs)
	assert.Contains(t, got, "protected internal IHttpClientFactory client;")

	got, _, errs = rewrite(t, fieldSource, rules.TargetMatcher{Kind: rules.FieldDecl, Name: "a"},
		rules.Action{Type: "change_accessibility", Accessibility: "internal"}, nil)
	require.Empty(t, errs)
	assert.Contains(t, got, "internal static readonly int a, b;")

	got, _, errs = rewrite(t, fieldSource, client, rules.Action{Type: "change_accessibility", ReplacementCode: "private"}, nil)
	require.Empty(t, errs)
	assert.Contains(t, got, "[Inject] private HttpClient client;")

	got, _, errs = rewrite(t, fieldSource, rules.TargetMatcher{Kind: rules.FieldDecl, Name: "count"},
		rules.Action{Type: "change_accessibility", Accessibility: "public"}, nil)
	require.Empty(t, errs)
	assert.Contains(t, got, "    public int count;")

	got, _, errs = rewrite(t, fieldSource, client, rules.Action{Type: "change_accessibility", Accessibility: "public foo"}, nil)
	require.Empty(t, errs)
	assert.Contains(t, got, "[Inject] public HttpClient client;")
	assert.NotContains(t, got, "foo")

	_, changed, errs := rewrite(t, fieldSource, client, rules.Action{Type: "change_accessibility", Accessibility: "everyone"}, nil)
	assert.Empty(t, errs)
	assert.False(t, changed)
}

func TestParameterRoutines(t *testing.T) {
	src := `class Api
{
    void Send(string payload, int retries)
    {
        Console.WriteLine(payload.Length + options.payload);
        Post(payload: payload);
    }
}
`
	payload := rules.TargetMatcher{Kind: rules.ParameterDecl, Name: "payload"}

	got, _, errs := rewrite(t, src, payload, rules.Action{Type: "rename_parameter", ReplacementName: "body"}, nil)
	require.Empty(t, errs)
	assert.Contains(t, got, "void Send(string body, int retries)")
	assert.Contains(t, got, "Console.WriteLine(body.Length + options.payload);")
	assert.Contains(t, got, "Post(payload: body);")

	got, _, errs = rewrite(t, src, payload, rules.Action{Type: "replace_parameter_type", ReplacementType: "ReadOnlyMemory<char>"}, nil)
	require.Empty(t, errs)
	assert.Contains(t, got, "void Send(ReadOnlyMemory<char> payload, int retries)")
}

func TestRenameParameterKeepsArgumentLabels(t *testing.T) {
	src := `class C
{
    void M(int count)
    {
        D.Other(count: count);
    }
}
class D
{
    static void Other(int count) { }
}
`
	count := rules.TargetMatcher{Kind: rules.ParameterDecl, Name: "count", ContainingType: "C"}
	got, changed, errs := rewrite(t, src, count, rules.Action{Type: "rename_parameter", ReplacementName: "total"}, nil)
	require.Empty(t, errs)
	assert.True(t, changed)
	assert.Contains(t, got, "void M(int total)")
	assert.Contains(t, got, "D.Other(count: total);")
	assert.Contains(t, got, "static void Other(int count) { }")
}

func TestUnsupportedPairsAreNoOps(t *testing.T) {
	in := wrap("        services.Target();\n")
	for _, action := range []rules.Action{
		{Type: "future_action"},
		{Type: "rename_class", ReplacementName: "X"},
		{Type: "replace_invocation"},
	} {
		got, changed, errs := rewrite(t, in, invocation("Target"), action, nil)
		assert.Empty(t, errs, action.Type)
		assert.False(t, changed, action.Type)
		assert.Equal(t, in, got, action.Type)
	}
	assert.False(t, Supported(rules.FieldDecl, rules.RemoveInvocation))
	assert.True(t, Supported(rules.ParameterDecl, rules.RenameParameter))
	assert.Equal(t, []rules.ActionKind{rules.RemoveInvocation, rules.ReplaceInvocation, rules.RemoveArgument},
		SupportedActions(rules.Invocation))
}

func TestRewriteThatBreaksTheTreeIsRejected(t *testing.T) {
	got, changed, errs := rewrite(t, methodSource, rules.TargetMatcher{Kind: rules.MethodDecl, Name: "Stop"},
		rules.Action{Type: "replace_return_type", ReplacementType: "int ("}, nil)
	assert.False(t, changed)
	assert.Equal(t, methodSource, got)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "syntax error")
}

func TestDispatchRejectsStaleNodes(t *testing.T) {
	tree, err := syntax.Parse(context.Background(), []byte(wrap("        services.Target();\n")))
	require.NoError(t, err)
	other, err := syntax.Parse(context.Background(), tree.Bytes())
	require.NoError(t, err)
	nodes := other.DescendantsOfKind(syntax.KindInvocation)

	action := removeCall
	action.Kind = rules.RemoveInvocation
	next, changed, errs := Dispatch(tree, invocation("Target"), nodes, action, nil)
	assert.Same(t, tree, next)
	assert.False(t, changed)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], syntax.ErrStaleNode)
}
