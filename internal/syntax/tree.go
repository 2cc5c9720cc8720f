// Package syntax wraps the tree-sitter C# grammar in a persistent tree model.
//
// A Tree is never modified after it is created. Every rewrite splices text into
// a copy of the source and reparses it, producing a new Tree that remembers the
// edits that led to it. Live Node values belong to exactly one Tree; nodes that
// must survive a rewrite are captured with a Tracker and re-resolved.
package syntax

import (
	"context"
	"errors"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
)

var (
	// ErrStaleNode is returned when a node from one tree version is used to
	// rewrite another version.
	ErrStaleNode = errors.New("syntax: node belongs to a different tree version")
	// ErrForeignTree is returned when a tracker is asked to resolve against a
	// tree that does not descend from the tracker's base tree.
	ErrForeignTree = errors.New("syntax: tree does not descend from the tracked tree")
	// ErrOverlappingEdits is returned by Apply when two edits overlap.
	ErrOverlappingEdits = errors.New("syntax: overlapping edits")
)

// Edit replaces the source bytes in [Start, End) with Text. Offsets refer to
// the tree the edit is applied to. From is the offset in that same source the
// text was copied from, or -1 when the text is new.
type Edit struct {
	Start int
	End   int
	Text  string
	From  int
}

// Insert returns an edit inserting text at offset.
func Insert(offset int, text string) Edit {
	return Edit{Start: offset, End: offset, Text: text, From: -1}
}

// Delete returns an edit removing [start, end).
func Delete(start, end int) Edit {
	return Edit{Start: start, End: end, From: -1}
}

// Splice returns an edit replacing [start, end) with text.
func Splice(start, end int, text string) Edit {
	return Edit{Start: start, End: end, Text: text, From: -1}
}

// revision links a tree version to the version it was derived from.
type revision struct {
	parent *revision
	edits  []Edit
}

// Tree is an immutable parsed C# compilation unit.
type Tree struct {
	src  []byte
	st   *sitter.Tree
	root *sitter.Node
	rev  *revision
}

// Parse parses C# source text.
func Parse(ctx context.Context, src []byte) (*Tree, error) {
	return parse(ctx, src, &revision{})
}

func parse(ctx context.Context, src []byte, rev *revision) (*Tree, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(csharp.GetLanguage())

	st, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing C# source: %w", err)
	}
	return &Tree{src: src, st: st, root: st.RootNode(), rev: rev}, nil
}

// Bytes returns the source text of the tree. The slice must not be modified.
func (t *Tree) Bytes() []byte { return t.src }

// String returns the source text of the tree.
func (t *Tree) String() string { return string(t.src) }

// Root returns the compilation unit node.
func (t *Tree) Root() Node { return t.wrap(t.root) }

// HasError reports whether the parse produced ERROR or MISSING nodes.
func (t *Tree) HasError() bool { return t.root.HasError() }

// DescendantsOfKind returns every node of the given kinds in document order.
func (t *Tree) DescendantsOfKind(kinds ...string) []Node {
	return t.Root().Descendants(kinds...)
}

// Replace returns a new tree with n's text replaced by text.
func (t *Tree) Replace(n Node, text string) (*Tree, error) {
	if err := t.owns(n); err != nil {
		return nil, err
	}
	return t.Apply([]Edit{Splice(n.Start(), n.End(), text)})
}

// Remove returns a new tree without n. When n is the only thing on its
// lines, the lines themselves are removed too.
func (t *Tree) Remove(n Node) (*Tree, error) {
	if err := t.owns(n); err != nil {
		return nil, err
	}
	start, end := LineSpan(t.src, n.Start(), n.End())
	return t.Apply([]Edit{Delete(start, end)})
}

// Hoist returns a new tree where outer is replaced by the text of inner, a
// descendant of outer. Nodes tracked inside inner stay resolvable.
func (t *Tree) Hoist(outer, inner Node) (*Tree, error) {
	if err := t.owns(outer); err != nil {
		return nil, err
	}
	if err := t.owns(inner); err != nil {
		return nil, err
	}
	if inner.Start() < outer.Start() || inner.End() > outer.End() {
		return nil, fmt.Errorf("syntax: %s is not inside %s", inner.Kind(), outer.Kind())
	}
	return t.Apply([]Edit{{Start: outer.Start(), End: outer.End(), Text: inner.Text(), From: inner.Start()}})
}

// Apply returns a new tree with all edits applied. Edits may be given in any
// order but must not overlap. Inserts at the same offset keep their order.
func (t *Tree) Apply(edits []Edit) (*Tree, error) {
	if len(edits) == 0 {
		return t, nil
	}
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	size := len(t.src)
	for i, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(t.src) {
			return nil, fmt.Errorf("syntax: edit [%d,%d) out of range (size %d)", e.Start, e.End, len(t.src))
		}
		if i > 0 && sorted[i-1].End > e.Start {
			return nil, fmt.Errorf("%w: [%d,%d) and [%d,%d)", ErrOverlappingEdits,
				sorted[i-1].Start, sorted[i-1].End, e.Start, e.End)
		}
		size += len(e.Text) - (e.End - e.Start)
	}

	out := make([]byte, 0, size)
	last := 0
	for _, e := range sorted {
		out = append(out, t.src[last:e.Start]...)
		out = append(out, e.Text...)
		last = e.End
	}
	out = append(out, t.src[last:]...)

	return parse(context.Background(), out, &revision{parent: t.rev, edits: sorted})
}

func (t *Tree) owns(n Node) error {
	if n.IsZero() || n.tree != t {
		return ErrStaleNode
	}
	return nil
}

func (t *Tree) wrap(n *sitter.Node) Node {
	if n == nil {
		return Node{}
	}
	return Node{n: n, tree: t}
}

// descendsFrom returns the edit batches between base and t, oldest first.
func (t *Tree) descendsFrom(base *Tree) ([][]Edit, bool) {
	var chain [][]Edit
	for r := t.rev; r != nil; r = r.parent {
		if r == base.rev {
			for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
				chain[i], chain[j] = chain[j], chain[i]
			}
			return chain, true
		}
		chain = append(chain, r.edits)
	}
	return nil, false
}

// locate finds the node of the given kind whose span best covers [start, end).
func (t *Tree) locate(start, end int, kind string) (Node, bool) {
	cur := t.root
	for {
		var next *sitter.Node
		for i := 0; i < int(cur.NamedChildCount()); i++ {
			c := cur.NamedChild(i)
			if int(c.StartByte()) <= start && int(c.EndByte()) >= end {
				next = c
				break
			}
		}
		if next == nil {
			break
		}
		cur = next
	}
	for n := cur; n != nil; n = n.Parent() {
		if n.Type() == kind {
			return t.wrap(n), true
		}
	}
	return Node{}, false
}
