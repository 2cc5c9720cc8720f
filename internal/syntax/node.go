package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Node is a live reference into one Tree version. The zero Node is "absent".
type Node struct {
	n    *sitter.Node
	tree *Tree
}

// IsZero reports whether the node is absent.
func (n Node) IsZero() bool { return n.n == nil }

// Tree returns the tree version the node belongs to.
func (n Node) Tree() *Tree { return n.tree }

// Kind returns the grammar type of the node, e.g. "invocation_expression".
func (n Node) Kind() string {
	if n.n == nil {
		return ""
	}
	return n.n.Type()
}

// Start returns the byte offset where the node begins.
func (n Node) Start() int { return int(n.n.StartByte()) }

// End returns the byte offset just past the node.
func (n Node) End() int { return int(n.n.EndByte()) }

// Line returns the 1-based line the node starts on.
func (n Node) Line() int {
	if n.n == nil {
		return 0
	}
	return int(n.n.StartPoint().Row) + 1
}

// Text returns the source text of the node.
func (n Node) Text() string {
	if n.n == nil {
		return ""
	}
	return string(n.tree.src[n.n.StartByte():n.n.EndByte()])
}

// HasError reports whether the subtree contains syntax errors.
func (n Node) HasError() bool { return n.n != nil && n.n.HasError() }

// Equal reports whether both values refer to the same node of the same tree.
func (n Node) Equal(o Node) bool {
	if n.n == nil || o.n == nil {
		return n.n == nil && o.n == nil
	}
	return n.tree == o.tree && n.Start() == o.Start() && n.End() == o.End() && n.Kind() == o.Kind()
}

// Parent returns the parent node, or the zero Node at the root.
func (n Node) Parent() Node {
	if n.n == nil {
		return Node{}
	}
	return n.tree.wrap(n.n.Parent())
}

// Field returns the child stored under a grammar field name.
func (n Node) Field(name string) Node {
	if n.n == nil {
		return Node{}
	}
	return n.tree.wrap(n.n.ChildByFieldName(name))
}

// Children returns all children, including anonymous tokens.
func (n Node) Children() []Node {
	if n.n == nil {
		return nil
	}
	out := make([]Node, 0, n.n.ChildCount())
	for i := 0; i < int(n.n.ChildCount()); i++ {
		out = append(out, n.tree.wrap(n.n.Child(i)))
	}
	return out
}

// NamedChildren returns the named children.
func (n Node) NamedChildren() []Node {
	if n.n == nil {
		return nil
	}
	out := make([]Node, 0, n.n.NamedChildCount())
	for i := 0; i < int(n.n.NamedChildCount()); i++ {
		out = append(out, n.tree.wrap(n.n.NamedChild(i)))
	}
	return out
}

// ChildrenOfKind returns the named children with one of the given kinds.
func (n Node) ChildrenOfKind(kinds ...string) []Node {
	var out []Node
	for _, c := range n.NamedChildren() {
		if hasKind(c, kinds) {
			out = append(out, c)
		}
	}
	return out
}

// FirstChildOfKind returns the first named child with one of the given kinds.
func (n Node) FirstChildOfKind(kinds ...string) Node {
	for _, c := range n.NamedChildren() {
		if hasKind(c, kinds) {
			return c
		}
	}
	return Node{}
}

// Descendants returns the named descendants of n (including n) with one of
// the given kinds, in document order. With no kinds every named node is returned.
func (n Node) Descendants(kinds ...string) []Node {
	if n.n == nil {
		return nil
	}
	var out []Node
	iter := sitter.NewIterator(n.n, sitter.DFSMode)
	for {
		c, err := iter.Next()
		if err != nil || c == nil {
			break
		}
		if !c.IsNamed() {
			continue
		}
		if len(kinds) == 0 || containsKind(kinds, c.Type()) {
			out = append(out, n.tree.wrap(c))
		}
	}
	return out
}

// Ancestor returns the nearest proper ancestor with one of the given kinds.
func (n Node) Ancestor(kinds ...string) Node {
	for p := n.Parent(); !p.IsZero(); p = p.Parent() {
		if hasKind(p, kinds) {
			return p
		}
	}
	return Node{}
}

// Contains reports whether o lies within n's span.
func (n Node) Contains(o Node) bool {
	return !n.IsZero() && !o.IsZero() && n.Start() <= o.Start() && o.End() <= n.End()
}

func hasKind(n Node, kinds []string) bool {
	return containsKind(kinds, n.Kind())
}

func containsKind(kinds []string, k string) bool {
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}
