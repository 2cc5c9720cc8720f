package syntax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chainSource = `namespace Demo
{
    public class Startup
    {
        public void Configure(IServiceCollection services)
        {
            services.AddLogging();
            services.AddOptions().AddTracing().AddMetrics();
        }
    }
}
`

func mustParse(t *testing.T, src string) *Tree {
	t.Helper()
	tree, err := Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	require.False(t, tree.HasError(), "fixture should parse cleanly:\n%s", src)
	return tree
}

func invocationNamed(t *testing.T, tree *Tree, name string) Node {
	t.Helper()
	for _, call := range tree.DescendantsOfKind(KindInvocation) {
		if InvokedName(call).Text() == name {
			return call
		}
	}
	t.Fatalf("no invocation of %s in:\n%s", name, tree.String())
	return Node{}
}

func TestDescendantsOfKindDocumentOrder(t *testing.T) {
	tree := mustParse(t, chainSource)

	var names []string
	for _, call := range tree.DescendantsOfKind(KindInvocation) {
		names = append(names, InvokedName(call).Text())
	}
	assert.Equal(t, []string{"AddLogging", "AddMetrics", "AddTracing", "AddOptions"}, names)
}

func TestReplaceLeavesOriginalUntouched(t *testing.T) {
	tree := mustParse(t, chainSource)
	name := InvokedName(invocationNamed(t, tree, "AddLogging"))

	next, err := tree.Replace(name, "AddConsole")
	require.NoError(t, err)

	assert.Contains(t, next.String(), "services.AddConsole();")
	assert.Contains(t, tree.String(), "services.AddLogging();")
	assert.NotSame(t, tree, next)
}

func TestStaleNodeRejected(t *testing.T) {
	tree := mustParse(t, chainSource)
	call := invocationNamed(t, tree, "AddLogging")

	next, err := tree.Replace(InvokedName(call), "AddConsole")
	require.NoError(t, err)

	_, err = next.Remove(call)
	assert.ErrorIs(t, err, ErrStaleNode)
	_, err = next.Replace(Node{}, "x")
	assert.ErrorIs(t, err, ErrStaleNode)
}

func TestRemoveStatementRemovesLine(t *testing.T) {
	tree := mustParse(t, chainSource)
	stmt := invocationNamed(t, tree, "AddLogging").Parent()
	require.Equal(t, KindExpressionStatement, stmt.Kind())

	next, err := tree.Remove(stmt)
	require.NoError(t, err)

	want := `namespace Demo
{
    public class Startup
    {
        public void Configure(IServiceCollection services)
        {
            services.AddOptions().AddTracing().AddMetrics();
        }
    }
}
`
	assert.Equal(t, want, next.String())
	assert.False(t, next.HasError())
}

func TestApplyRejectsOverlap(t *testing.T) {
	tree := mustParse(t, chainSource)
	_, err := tree.Apply([]Edit{Splice(10, 20, "x"), Splice(15, 25, "y")})
	assert.ErrorIs(t, err, ErrOverlappingEdits)

	_, err = tree.Apply([]Edit{Delete(0, len(tree.Bytes())+1)})
	assert.Error(t, err)
}

func TestApplyMultipleEdits(t *testing.T) {
	tree := mustParse(t, "class A { int x; int y; }")
	var edits []Edit
	for _, d := range tree.DescendantsOfKind(KindVariableDeclarator) {
		id := DeclaredName(d)
		edits = append(edits, Splice(id.Start(), id.End(), id.Text()+"2"))
	}
	next, err := tree.Apply(edits)
	require.NoError(t, err)
	assert.Equal(t, "class A { int x2; int y2; }", next.String())
}

func TestHoistCollapsesChainLink(t *testing.T) {
	tree := mustParse(t, chainSource)
	call := invocationNamed(t, tree, "AddTracing")

	next, err := tree.Hoist(call, Receiver(call))
	require.NoError(t, err)
	assert.Contains(t, next.String(), "services.AddOptions().AddMetrics();")
	assert.False(t, next.HasError())

	_, err = tree.Hoist(Receiver(call), call)
	assert.Error(t, err)
}

func TestLineSpan(t *testing.T) {
	src := []byte("a\n    b;\n  c; d;\r\n    e;\r\n")

	start, end := LineSpan(src, 6, 8)
	assert.Equal(t, "    b;\n", string(src[start:end]))

	// Shares its line with another statement.
	start, end = LineSpan(src, 11, 13)
	assert.Equal(t, "c;", string(src[start:end]))

	start, end = LineSpan(src, 22, 24)
	assert.Equal(t, "    e;\r\n", string(src[start:end]))
}

func TestLineHelpers(t *testing.T) {
	src := []byte("class A\r\n{\r\n\t  int x;\r\n}")
	assert.Equal(t, "\r\n", LineBreak(src))
	assert.Equal(t, "\n", LineBreak([]byte("no breaks")))
	assert.Equal(t, "\t  ", LineIndent(src, 17))
	assert.Equal(t, 15, SkipBlank(src, 12))
}
