// Package matcher selects the syntax nodes a rule target describes.
package matcher

import (
	"fmt"
	"strings"

	"github.com/imyousuf/csmigrate/internal/rules"
	"github.com/imyousuf/csmigrate/internal/symbols"
	"github.com/imyousuf/csmigrate/internal/syntax"
)

// NodeError is a failure while testing one candidate node. The candidate is
// excluded and matching continues with its siblings.
type NodeError struct {
	Line int
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// NodeKinds returns the grammar node kinds a target kind selects.
func NodeKinds(k rules.TargetKind) []string {
	switch k {
	case rules.Invocation:
		return []string{syntax.KindInvocation}
	case rules.MethodDecl:
		return []string{syntax.KindMethod}
	case rules.ClassDecl:
		return []string{syntax.KindClass}
	case rules.FieldDecl:
		return []string{syntax.KindField}
	case rules.ParameterDecl:
		return []string{syntax.KindParameter}
	}
	return nil
}

// Find returns the nodes of t that satisfy every constraint of target, in
// document order. resolver may be nil, in which case invocations are matched
// by their written name only.
func Find(t *syntax.Tree, target rules.TargetMatcher, resolver symbols.Resolver) ([]syntax.Node, []error) {
	kinds := NodeKinds(target.Kind)
	if len(kinds) == 0 {
		return nil, nil
	}
	var (
		found []syntax.Node
		errs  []error
	)
	for _, n := range t.DescendantsOfKind(kinds...) {
		ok, err := Matches(t, n, target, resolver)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			found = append(found, n)
		}
	}
	return found, errs
}

// Matches reports whether n satisfies target. A panic while inspecting the
// node is returned as a *NodeError.
func Matches(t *syntax.Tree, n syntax.Node, target rules.TargetMatcher, resolver symbols.Resolver) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, &NodeError{Line: n.Line(), Err: fmt.Errorf("matching %s: %v", n.Kind(), r)}
		}
	}()

	switch target.Kind {
	case rules.Invocation:
		ok = matchInvocation(t, n, target, resolver)
	case rules.MethodDecl:
		ok = nameIs(syntax.DeclaredName(n), target.Name) &&
			inType(n, target.ContainingType) &&
			inNamespace(n, target.ContainingNamespace) &&
			hasAttributes(n, target.Attributes) &&
			shapeMatches(syntax.Parameters(n), target.Parameters)
	case rules.ClassDecl:
		ok = nameIs(syntax.DeclaredName(n), target.Name) &&
			inType(n, target.ContainingType) &&
			inNamespace(n, target.ContainingNamespace) &&
			hasAttributes(n, target.Attributes) &&
			classShapeMatches(n, target.Parameters)
	case rules.FieldDecl:
		ok = fieldNameMatches(n, target.Name) &&
			inType(n, target.ContainingType) &&
			inNamespace(n, target.ContainingNamespace) &&
			hasAttributes(n, target.Attributes) &&
			target.Parameters == nil
	case rules.ParameterDecl:
		ok = nameIs(syntax.DeclaredName(n), target.Name) &&
			inType(n, target.ContainingType) &&
			inNamespace(n, target.ContainingNamespace) &&
			hasAttributes(n, target.Attributes) &&
			parameterShapeMatches(n, target.Parameters)
	}
	return ok, nil
}

func matchInvocation(t *syntax.Tree, call syntax.Node, target rules.TargetMatcher, resolver symbols.Resolver) bool {
	written := syntax.InvokedName(call)
	if written.IsZero() {
		return false
	}
	var sym *symbols.Symbol
	if resolver != nil {
		if s, ok := resolver.ResolveInvocation(t, call); ok {
			sym = s
		}
	}

	if sym != nil {
		if target.Name != "" && !strings.EqualFold(sym.Name, target.Name) {
			return false
		}
		if target.ContainingType != "" && !symbolInType(sym, target.ContainingType) {
			return false
		}
		if target.ContainingNamespace != "" && !strings.EqualFold(sym.Namespace, target.ContainingNamespace) {
			return false
		}
		if target.Parameters != nil && !symbolShapeMatches(sym.Params, target.Parameters) {
			return false
		}
	} else if target.Parameters != nil && !argumentShapeMatches(syntax.Arguments(call), target.Parameters) {
		return false
	}

	// The written name is checked even for resolved calls so a misattributed
	// symbol cannot widen the match.
	return nameIs(written, target.Name)
}

func nameIs(id syntax.Node, want string) bool {
	if want == "" {
		return true
	}
	return !id.IsZero() && strings.EqualFold(id.Text(), want)
}

func fieldNameMatches(field syntax.Node, want string) bool {
	if want == "" {
		return true
	}
	for _, d := range syntax.Declarators(field) {
		if nameIs(syntax.DeclaredName(d), want) {
			return true
		}
	}
	return false
}

// inType checks the type a declaration sits in. For a parameter this is the
// type declaring its method. A dotted constraint is compared against the
// nested type path, e.g. "Outer.Inner".
func inType(n syntax.Node, want string) bool {
	if want == "" {
		return true
	}
	decl := syntax.EnclosingType(n)
	if decl.IsZero() {
		return false
	}
	if strings.Contains(want, ".") {
		qualified := syntax.QualifiedTypeName(decl)
		if strings.EqualFold(qualified, want) {
			return true
		}
		ns := syntax.EnclosingNamespace(decl)
		return ns != "" && strings.EqualFold(ns+"."+qualified, want)
	}
	return strings.EqualFold(syntax.DeclaredName(decl).Text(), want)
}

func symbolInType(sym *symbols.Symbol, want string) bool {
	if strings.Contains(want, ".") {
		return strings.EqualFold(sym.QualifiedType, want) || strings.EqualFold(sym.FullTypeName(), want)
	}
	return strings.EqualFold(sym.ContainingType, want)
}

func inNamespace(n syntax.Node, want string) bool {
	return want == "" || strings.EqualFold(syntax.EnclosingNamespace(n), want)
}

// hasAttributes reports whether every required attribute is contained in the
// name of at least one attribute on n.
func hasAttributes(n syntax.Node, required []string) bool {
	if len(required) == 0 {
		return true
	}
	names := syntax.AttributeNames(n)
	for _, want := range required {
		found := false
		for _, name := range names {
			if strings.Contains(name, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// shapeMatches compares a declared parameter list with a shape: same arity,
// and per position the type contains the wanted type and the name is equal.
func shapeMatches(params []syntax.Node, shape []rules.ParamShape) bool {
	if shape == nil {
		return true
	}
	if len(params) != len(shape) {
		return false
	}
	for i, want := range shape {
		if want.Type != "" && !strings.Contains(syntax.DeclaredType(params[i]).Text(), want.Type) {
			return false
		}
		if want.Name != "" && syntax.DeclaredName(params[i]).Text() != want.Name {
			return false
		}
	}
	return true
}

// parameterShapeMatches applies a shape to the list a parameter belongs to.
func parameterShapeMatches(param syntax.Node, shape []rules.ParamShape) bool {
	if shape == nil {
		return true
	}
	return shapeMatches(param.Parent().ChildrenOfKind(syntax.KindParameter), shape)
}

// classShapeMatches applies a shape to a primary constructor. Classes without
// one never satisfy a shape.
func classShapeMatches(class syntax.Node, shape []rules.ParamShape) bool {
	if shape == nil {
		return true
	}
	if syntax.ParameterList(class).IsZero() {
		return false
	}
	return shapeMatches(syntax.Parameters(class), shape)
}

func symbolShapeMatches(params []symbols.Param, shape []rules.ParamShape) bool {
	if len(params) != len(shape) {
		return false
	}
	for i, want := range shape {
		if want.Type != "" && !strings.Contains(params[i].Type, want.Type) {
			return false
		}
		if want.Name != "" && params[i].Name != want.Name {
			return false
		}
	}
	return true
}

// argumentShapeMatches is the unresolved fallback for invocation shapes. Only
// arity can be checked, so any type or name constraint fails.
func argumentShapeMatches(args []syntax.Node, shape []rules.ParamShape) bool {
	if len(args) != len(shape) {
		return false
	}
	for _, want := range shape {
		if want.Type != "" || want.Name != "" {
			return false
		}
	}
	return true
}
