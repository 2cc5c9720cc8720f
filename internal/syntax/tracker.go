package syntax

import "fmt"

// Handle identifies a node captured by a Tracker. It carries no reference to
// the node itself; Resolve turns it back into a live Node of a given version.
type Handle struct {
	id int
}

type trackedSpan struct {
	start, end int
	kind       string
}

// Tracker re-locates nodes captured from a base tree in later versions
// derived from it.
type Tracker struct {
	base  *Tree
	spans []trackedSpan
}

// Track captures nodes of t. Every node must belong to t.
func Track(t *Tree, nodes ...Node) (*Tracker, []Handle, error) {
	tr := &Tracker{base: t}
	handles, err := tr.Add(nodes...)
	if err != nil {
		return nil, nil, err
	}
	return tr, handles, nil
}

// Add captures more nodes of the base tree.
func (tr *Tracker) Add(nodes ...Node) ([]Handle, error) {
	handles := make([]Handle, 0, len(nodes))
	for _, n := range nodes {
		if err := tr.base.owns(n); err != nil {
			return nil, err
		}
		handles = append(handles, Handle{id: len(tr.spans)})
		tr.spans = append(tr.spans, trackedSpan{start: n.Start(), end: n.End(), kind: n.Kind()})
	}
	return handles, nil
}

// Resolve returns the node h refers to in cur. The boolean is false when the
// node was removed or rewritten by an edit between the base tree and cur.
func (tr *Tracker) Resolve(cur *Tree, h Handle) (Node, bool, error) {
	if h.id < 0 || h.id >= len(tr.spans) {
		return Node{}, false, fmt.Errorf("syntax: unknown handle %d", h.id)
	}
	chain, ok := cur.descendsFrom(tr.base)
	if !ok {
		return Node{}, false, ErrForeignTree
	}
	sp := tr.spans[h.id]
	start, end := sp.start, sp.end
	for _, edits := range chain {
		start, end, ok = mapSpan(start, end, edits)
		if !ok {
			return Node{}, false, nil
		}
	}
	n, ok := cur.locate(start, end, sp.kind)
	return n, ok, nil
}

// mapSpan maps [start, end) through one batch of sorted, non-overlapping
// edits. It reports false when an edit destroys the span.
func mapSpan(start, end int, edits []Edit) (int, int, bool) {
	shift, grow := 0, 0
	for _, e := range edits {
		delta := len(e.Text) - (e.End - e.Start)
		switch {
		case e.End <= start:
			shift += delta
		case e.Start >= end:
			return start + shift, end + shift + grow, true
		case start <= e.Start && e.End <= end && e.End-e.Start < end-start:
			grow += delta
		case e.From >= 0 && e.Start <= start && end <= e.End &&
			e.From <= start && end <= e.From+len(e.Text):
			ns := e.Start + shift + (start - e.From)
			return ns, ns + (end - start), true
		default:
			return 0, 0, false
		}
	}
	return start + shift, end + shift + grow, true
}
