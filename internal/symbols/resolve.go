package symbols

import "github.com/imyousuf/csmigrate/internal/syntax"

// Symbol is the method an invocation binds to.
type Symbol struct {
	Name string
	// ContainingType is the simple name of the declaring type. Extension
	// methods report their declaring static class.
	ContainingType string
	QualifiedType  string
	Namespace      string
	ReturnType     string
	Params         []Param
	Extension      bool
	// Candidate is set when the binding is a best guess: the receiver type is
	// unknown or several overloads of the same type fit the call.
	Candidate bool
}

// FullTypeName returns the namespace-qualified name of the declaring type.
func (s *Symbol) FullTypeName() string {
	if s.Namespace == "" {
		return s.QualifiedType
	}
	return s.Namespace + "." + s.QualifiedType
}

// Resolver binds invocations to declared methods. Implementations return
// false when the call cannot be bound with confidence.
type Resolver interface {
	ResolveInvocation(t *syntax.Tree, call syntax.Node) (*Symbol, bool)
}

// ResolveInvocation implements Resolver. Calls whose possible bindings span
// more than one declaring type are ambiguous and do not resolve.
func (x *Index) ResolveInvocation(t *syntax.Tree, call syntax.Node) (*Symbol, bool) {
	if call.Kind() != syntax.KindInvocation || call.Tree() != t {
		return nil, false
	}
	x.mu.RLock()
	defer x.mu.RUnlock()

	r := &resolution{
		index:  x,
		ns:     syntax.EnclosingNamespace(call),
		usings: syntax.Usings(t),
	}
	cands, _ := r.call(call, 0)
	if len(cands.bindings) == 0 {
		return nil, false
	}
	owner := cands.bindings[0].owner
	for _, b := range cands.bindings[1:] {
		if b.owner.FullName() != owner.FullName() {
			return nil, false
		}
	}
	m := cands.bindings[0].method
	return &Symbol{
		Name:           m.Name,
		ContainingType: owner.Name,
		QualifiedType:  owner.Qualified,
		Namespace:      owner.Namespace,
		ReturnType:     m.ReturnType,
		Params:         m.Params,
		Extension:      m.Extension,
		Candidate:      cands.guess || len(cands.bindings) > 1,
	}, true
}

// resolution carries the per-call lookup scope.
type resolution struct {
	index  *Index
	ns     string
	usings []string
}

type candidates struct {
	bindings []binding
	guess    bool
}

const maxChainDepth = 16

// call returns the bindings of an invocation together with the type its
// result has, when that can be told.
func (r *resolution) call(call syntax.Node, depth int) (candidates, string) {
	name := syntax.InvokedName(call).Text()
	if name == "" || depth > maxChainDepth {
		return candidates{}, ""
	}
	argc := len(syntax.Arguments(call))

	var out candidates
	recv, conditional := receiverOf(call)
	switch {
	case recv.IsZero() && !conditional:
		out.bindings = r.instance(r.enclosing(call), name, argc, false)
	case recv.Kind() == "this_expression" || recv.Kind() == "this":
		out.bindings = r.instance(r.enclosing(call), name, argc, false)
	case recv.Kind() == "base_expression" || recv.Kind() == "base":
		var bases []*Type
		for _, t := range r.enclosing(call) {
			for _, b := range t.Bases {
				bases = append(bases, r.index.lookupType(b, t.Namespace, r.usings)...)
			}
		}
		out.bindings = r.instance(bases, name, argc, false)
	default:
		out = r.onReceiver(recv, name, argc, depth)
	}

	if len(out.bindings) == 0 {
		return out, ""
	}
	b := out.bindings[0]
	ret := b.method.ReturnType
	for _, tp := range b.method.TypeParams {
		if ret == tp && b.method.Extension {
			ret = b.method.Receiver
			if recvType := r.exprType(recv, depth); recvType != "" {
				ret = recvType
			}
		}
	}
	return out, ret
}

func (r *resolution) onReceiver(recv syntax.Node, name string, argc, depth int) candidates {
	typ := r.exprType(recv, depth)
	if typ != "" {
		types := r.index.lookupType(typ, r.ns, r.usings)
		bindings := r.instance(types, name, argc, false)
		return candidates{bindings: append(bindings, r.extensions(name, argc, typ, types)...)}
	}
	if isVariable(recv) {
		return candidates{bindings: r.extensions(name, argc, "", nil), guess: true}
	}
	if recv.Kind() == syntax.KindIdentifier || recv.Kind() == syntax.KindMemberAccess ||
		recv.Kind() == syntax.KindQualifiedName || recv.Kind() == syntax.KindGenericName {
		if types := r.index.lookupType(recv.Text(), r.ns, r.usings); len(types) > 0 {
			return candidates{bindings: r.instance(types, name, argc, true)}
		}
	}
	return candidates{bindings: r.extensions(name, argc, "", nil), guess: true}
}

// exprType returns the declared type of a receiver expression, or "".
func (r *resolution) exprType(expr syntax.Node, depth int) string {
	switch expr.Kind() {
	case syntax.KindIdentifier:
		if typ, ok := r.variableType(expr); ok {
			return typ
		}
	case syntax.KindInvocation:
		_, ret := r.call(expr, depth+1)
		return ret
	case "object_creation_expression":
		return expr.Field("type").Text()
	case "parenthesized_expression":
		if kids := expr.NamedChildren(); len(kids) == 1 {
			return r.exprType(kids[0], depth)
		}
	case syntax.KindMemberAccess:
		recv := expr.Field("expression")
		if recv.Kind() == "this_expression" || recv.Kind() == "this" {
			return r.memberType(r.enclosing(expr), syntax.Ident(expr.Field("name")).Text())
		}
	}
	return ""
}

// isVariable reports whether an identifier names a parameter or local in scope,
// whatever its type.
func isVariable(expr syntax.Node) bool {
	if expr.Kind() != syntax.KindIdentifier {
		return false
	}
	_, ok := localType(expr)
	return ok
}

// variableType returns the declared type of the variable an identifier names.
// The boolean is false when the identifier does not name a known variable or
// the variable's type cannot be told.
func (r *resolution) variableType(id syntax.Node) (string, bool) {
	if typ, ok := localType(id); ok {
		return typ, typ != ""
	}
	typ := r.memberType(r.enclosing(id), id.Text())
	return typ, typ != ""
}

// localType finds the parameter or local variable an identifier refers to. It
// reports true when a declaration was found; the type is "" for var
// declarations without an object creation and for untyped lambda parameters.
func localType(id syntax.Node) (string, bool) {
	name := id.Text()
	for scope := id.Parent(); !scope.IsZero(); scope = scope.Parent() {
		switch scope.Kind() {
		case syntax.KindMethod, syntax.KindConstructor, syntax.KindLocalFunction:
			for _, p := range syntax.Parameters(scope) {
				if syntax.DeclaredName(p).Text() == name {
					return syntax.DeclaredType(p).Text(), true
				}
			}
		case "lambda_expression":
			params := scope.Field("parameters")
			if params.Kind() == syntax.KindIdentifier && params.Text() == name {
				return "", true
			}
			for _, p := range params.ChildrenOfKind(syntax.KindParameter) {
				if syntax.DeclaredName(p).Text() == name {
					return syntax.DeclaredType(p).Text(), true
				}
			}
		case syntax.KindBlock:
			for _, stmt := range scope.ChildrenOfKind(syntax.KindLocalDeclaration) {
				if stmt.Start() >= id.Start() {
					break
				}
				for _, d := range syntax.Declarators(stmt) {
					if syntax.DeclaredName(d).Text() != name {
						continue
					}
					typ := syntax.DeclaredType(stmt).Text()
					if typ == "var" {
						typ = ""
						if v := declaratorValue(d); v.Kind() == "object_creation_expression" {
							typ = v.Field("type").Text()
						}
					}
					return typ, true
				}
			}
		}
		if containsString(syntax.TypeDeclKinds, scope.Kind()) {
			return "", false
		}
	}
	return "", false
}

// declaratorValue returns the initializer expression of a variable declarator.
func declaratorValue(d syntax.Node) syntax.Node {
	kids := d.NamedChildren()
	if len(kids) < 2 {
		return syntax.Node{}
	}
	v := kids[len(kids)-1]
	if v.Kind() == "equals_value_clause" {
		if inner := v.NamedChildren(); len(inner) > 0 {
			return inner[0]
		}
	}
	return v
}

// memberType returns the declared type of a field or property of types or
// their bases.
func (r *resolution) memberType(types []*Type, name string) string {
	for _, t := range r.index.hierarchy(types, r.ns, r.usings) {
		for _, m := range t.Members {
			if m.Name == name {
				return m.Type
			}
		}
	}
	return ""
}

// enclosing returns the indexed declarations of the type containing n.
func (r *resolution) enclosing(n syntax.Node) []*Type {
	decl := syntax.EnclosingType(n)
	if decl.IsZero() {
		return nil
	}
	full := syntax.QualifiedTypeName(decl)
	if ns := syntax.EnclosingNamespace(decl); ns != "" {
		full = ns + "." + full
	}
	if t, ok := r.index.byFull[full]; ok {
		return []*Type{t}
	}
	return nil
}

// instance returns the methods named name on types and their bases that
// accept argc arguments. With static set only static methods qualify.
func (r *resolution) instance(types []*Type, name string, argc int, static bool) []binding {
	var out []binding
	for _, t := range r.index.hierarchy(types, r.ns, r.usings) {
		for _, m := range t.Methods {
			if m.Name != name || m.Extension && !static {
				continue
			}
			if static && !m.Static && !t.Static {
				continue
			}
			n := argc
			if m.Extension {
				// Called in its static form, the receiver is passed explicitly.
				n--
			}
			if arityMatches(m.Params, n) {
				out = append(out, binding{owner: t, method: m})
			}
		}
	}
	return out
}

// extensions returns the visible extension methods named name that accept
// argc arguments. When recvType is set, the extended type must be recvType,
// one of its bases, or a type parameter of the method.
func (r *resolution) extensions(name string, argc int, recvType string, recvTypes []*Type) []binding {
	accepted := map[string]bool{}
	if recvType != "" {
		accepted[syntax.SimpleName(recvType)] = true
		for _, t := range r.index.hierarchy(recvTypes, r.ns, r.usings) {
			accepted[t.Name] = true
			for _, b := range t.Bases {
				accepted[syntax.SimpleName(b)] = true
			}
		}
	}
	var out []binding
	for _, b := range r.index.extensions[name] {
		if !namespaceVisible(b.owner.Namespace, r.ns, r.usings) || !arityMatches(b.method.Params, argc) {
			continue
		}
		if recvType != "" {
			target := syntax.SimpleName(b.method.Receiver)
			if !accepted[target] && !containsString(b.method.TypeParams, target) {
				continue
			}
		}
		out = append(out, b)
	}
	return out
}

// receiverOf returns the receiver of a member call. For conditional calls
// (`x?.M()`) the conditional flag is set and the receiver is the expression
// before `?.`.
func receiverOf(call syntax.Node) (syntax.Node, bool) {
	if recv := syntax.Receiver(call); !recv.IsZero() {
		return recv, false
	}
	fn := syntax.InvocationFunction(call)
	switch fn.Kind() {
	case syntax.KindMemberBinding:
		if ca := call.Ancestor(syntax.KindConditionalAccess); !ca.IsZero() {
			if kids := ca.NamedChildren(); len(kids) > 0 {
				return kids[0], true
			}
		}
		return syntax.Node{}, true
	case syntax.KindConditionalAccess:
		if kids := fn.NamedChildren(); len(kids) > 0 {
			return kids[0], true
		}
		return syntax.Node{}, true
	}
	return syntax.Node{}, false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
