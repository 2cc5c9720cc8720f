// Package transform applies rule actions to matched syntax nodes.
//
// Every routine rewrites one node of the current tree version and returns the
// next version. The dispatcher threads the version through the candidates,
// re-locating each one with a syntax.Tracker before it is rewritten.
package transform

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/imyousuf/csmigrate/internal/rules"
	"github.com/imyousuf/csmigrate/internal/symbols"
	"github.com/imyousuf/csmigrate/internal/syntax"
)

// ActionError is a failure while rewriting one node. The node is left as it
// was and the remaining candidates are still processed.
type ActionError struct {
	Line int
	Err  error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// step is the context shared by the routines of one rule application.
type step struct {
	target   rules.TargetMatcher
	action   rules.Action
	resolver symbols.Resolver
}

// routine rewrites one node. It returns n.Tree() when nothing changes.
type routine func(s *step, n syntax.Node) (*syntax.Tree, error)

type pair struct {
	target rules.TargetKind
	action rules.ActionKind
}

var routines = map[pair]routine{
	{rules.Invocation, rules.RemoveInvocation}:  removeInvocation,
	{rules.Invocation, rules.ReplaceInvocation}: replaceInvocation,
	{rules.Invocation, rules.RemoveArgument}:    removeArgument,

	{rules.MethodDecl, rules.RenameMethod}:           renameMethod,
	{rules.MethodDecl, rules.ReplaceMethodSignature}: replaceMethodSignature,
	{rules.MethodDecl, rules.ReplaceReturnType}:      replaceReturnType,
	{rules.MethodDecl, rules.AddAttribute}:           addAttribute,
	{rules.MethodDecl, rules.RemoveAttribute}:        removeAttribute,

	{rules.ClassDecl, rules.RenameClass}:     renameClass,
	{rules.ClassDecl, rules.AddAttribute}:    addAttribute,
	{rules.ClassDecl, rules.RemoveAttribute}: removeAttribute,
	{rules.ClassDecl, rules.ChangeBaseClass}: changeBaseClass,
	{rules.ClassDecl, rules.AddInterface}:    addInterface,

	{rules.FieldDecl, rules.ReplaceFieldType}:    replaceFieldType,
	{rules.FieldDecl, rules.RenameField}:         renameField,
	{rules.FieldDecl, rules.AddAttribute}:        addAttribute,
	{rules.FieldDecl, rules.RemoveAttribute}:     removeAttribute,
	{rules.FieldDecl, rules.ChangeAccessibility}: changeAccessibility,

	{rules.ParameterDecl, rules.ReplaceParameterType}: replaceParameterType,
	{rules.ParameterDecl, rules.RenameParameter}:      renameParameter,
	{rules.ParameterDecl, rules.AddAttribute}:         addAttribute,
	{rules.ParameterDecl, rules.RemoveAttribute}:      removeAttribute,
}

// Supported reports whether an action kind is implemented for a target kind.
func Supported(target rules.TargetKind, action rules.ActionKind) bool {
	_, ok := routines[pair{target, action}]
	return ok
}

// SupportedActions returns the actions implemented for a target kind, in
// declaration order of the action kinds.
func SupportedActions(target rules.TargetKind) []rules.ActionKind {
	var out []rules.ActionKind
	for p := range routines {
		if p.target == target {
			out = append(out, p.action)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dispatch applies action to nodes, which must belong to t and were selected
// by target. Unsupported (target, action) pairs and actions missing their
// required fields leave the tree unchanged without error. The returned errors
// are *ActionError values for individual nodes.
func Dispatch(t *syntax.Tree, target rules.TargetMatcher, nodes []syntax.Node, action rules.Action, resolver symbols.Resolver) (*syntax.Tree, bool, []error) {
	fn, ok := routines[pair{target.Kind, action.Kind}]
	if !ok || len(nodes) == 0 || !action.HasRequiredFields() {
		return t, false, nil
	}

	tracker, handles, err := syntax.Track(t, nodes...)
	if err != nil {
		return t, false, []error{err}
	}
	s := &step{target: target, action: action, resolver: resolver}

	cur := t
	var errs []error
	for i, h := range handles {
		n, ok, err := tracker.Resolve(cur, h)
		if err != nil {
			errs = append(errs, &ActionError{Line: nodes[i].Line(), Err: err})
			continue
		}
		if !ok {
			// Rewritten away by an earlier candidate.
			continue
		}
		next, err := apply(fn, s, n)
		if err != nil {
			errs = append(errs, &ActionError{Line: n.Line(), Err: err})
			continue
		}
		cur = next
	}
	if bytes.Equal(cur.Bytes(), t.Bytes()) {
		return t, false, errs
	}
	return cur, true, errs
}

// apply runs one routine, turning panics into errors and rejecting rewrites
// that break a tree which parsed cleanly.
func apply(fn routine, s *step, n syntax.Node) (next *syntax.Tree, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, err = nil, fmt.Errorf("%s: %v", s.action.Kind, r)
		}
	}()
	before := n.Tree()
	next, err = fn(s, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.action.Kind, err)
	}
	if next != before && !before.HasError() && next.HasError() {
		return nil, fmt.Errorf("%s: rewrite would introduce a syntax error", s.action.Kind)
	}
	return next, nil
}

// replaceText replaces n with text unless it already reads that way.
func replaceText(n syntax.Node, text string) (*syntax.Tree, error) {
	t := n.Tree()
	if n.IsZero() || n.Text() == text {
		return t, nil
	}
	return t.Replace(n, text)
}
