package syntax

import "strings"

// Grammar node kinds used by the migration engine.
const (
	KindCompilationUnit     = "compilation_unit"
	KindNamespace           = "namespace_declaration"
	KindFileScopedNamespace = "file_scoped_namespace_declaration"
	KindUsing               = "using_directive"
	KindClass               = "class_declaration"
	KindStruct              = "struct_declaration"
	KindInterface           = "interface_declaration"
	KindRecord              = "record_declaration"
	KindMethod              = "method_declaration"
	KindConstructor         = "constructor_declaration"
	KindDestructor          = "destructor_declaration"
	KindLocalFunction       = "local_function_statement"
	KindField               = "field_declaration"
	KindVariableDeclaration = "variable_declaration"
	KindVariableDeclarator  = "variable_declarator"
	KindLocalDeclaration    = "local_declaration_statement"
	KindParameterList       = "parameter_list"
	KindParameter           = "parameter"
	KindAttributeList       = "attribute_list"
	KindAttribute           = "attribute"
	KindModifier            = "modifier"
	KindBaseList            = "base_list"
	KindTypeParameterList   = "type_parameter_list"
	KindDeclarationList     = "declaration_list"
	KindInvocation          = "invocation_expression"
	KindMemberAccess        = "member_access_expression"
	KindMemberBinding       = "member_binding_expression"
	KindConditionalAccess   = "conditional_access_expression"
	KindArgumentList        = "argument_list"
	KindArgument            = "argument"
	KindIdentifier          = "identifier"
	KindGenericName         = "generic_name"
	KindQualifiedName       = "qualified_name"
	KindExpressionStatement = "expression_statement"
	KindBlock               = "block"
	KindArrowExpression     = "arrow_expression_clause"
)

// TypeDeclKinds are the declarations that introduce a named type with members.
var TypeDeclKinds = []string{KindClass, KindStruct, KindInterface, KindRecord}

// MemberKinds are declarations that own a parameter list and a body.
var MemberKinds = []string{KindMethod, KindConstructor, KindDestructor, KindLocalFunction}

// Ident returns the identifier token of a simple or generic name. Any other
// node kind yields the zero Node.
func Ident(n Node) Node {
	switch n.Kind() {
	case KindIdentifier:
		return n
	case KindGenericName:
		if id := n.Field("name"); !id.IsZero() {
			return id
		}
		return n.FirstChildOfKind(KindIdentifier)
	}
	return Node{}
}

// InvokedName returns the identifier naming the member an invocation calls.
func InvokedName(call Node) Node {
	fn := InvocationFunction(call)
	switch fn.Kind() {
	case KindIdentifier, KindGenericName:
		return Ident(fn)
	case KindMemberAccess, KindMemberBinding:
		return Ident(fn.Field("name"))
	case KindConditionalAccess:
		kids := fn.NamedChildren()
		if len(kids) > 0 && kids[len(kids)-1].Kind() == KindMemberBinding {
			return Ident(kids[len(kids)-1].Field("name"))
		}
	}
	return Node{}
}

// InvocationFunction returns the expression being invoked.
func InvocationFunction(call Node) Node {
	if fn := call.Field("function"); !fn.IsZero() {
		return fn
	}
	return call.FirstChildOfKind(KindMemberAccess, KindMemberBinding, KindIdentifier, KindGenericName)
}

// Receiver returns the expression a call is made on (`recv` in `recv.M()`),
// or the zero Node for unqualified and conditional calls.
func Receiver(call Node) Node {
	fn := InvocationFunction(call)
	if fn.Kind() != KindMemberAccess {
		return Node{}
	}
	if e := fn.Field("expression"); !e.IsZero() {
		return e
	}
	if kids := fn.NamedChildren(); len(kids) > 0 {
		return kids[0]
	}
	return Node{}
}

// Arguments returns the argument nodes of an invocation.
func Arguments(call Node) []Node {
	args := call.Field("arguments")
	if args.IsZero() {
		args = call.FirstChildOfKind(KindArgumentList)
	}
	return args.ChildrenOfKind(KindArgument)
}

// ArgumentLabel returns the name of a named argument (`x` in `x: 1`).
func ArgumentLabel(arg Node) string {
	if id := argumentName(arg); !id.IsZero() {
		return id.Text()
	}
	return ""
}

// argumentName returns the label identifier of a named argument.
func argumentName(arg Node) Node {
	return arg.Field("name")
}

// IsArgumentLabel reports whether id is the label of a named argument.
func IsArgumentLabel(id Node) bool {
	p := id.Parent()
	return p.Kind() == KindArgument && argumentName(p).Equal(id)
}

// ArgumentValue returns the expression an argument passes.
func ArgumentValue(arg Node) Node {
	if e := arg.Field("expression"); !e.IsZero() {
		return e
	}
	label := argumentName(arg)
	for _, c := range arg.NamedChildren() {
		if !c.Equal(label) {
			return c
		}
	}
	return Node{}
}

// DeclaredName returns the identifier a declaration introduces. Field and
// local declarations introduce one name per declarator; use Declarators.
func DeclaredName(decl Node) Node {
	if id := Ident(decl.Field("name")); !id.IsZero() {
		return id
	}
	switch decl.Kind() {
	case KindMethod, KindLocalFunction:
		// The name is the last identifier before the parameter list.
		var name Node
		for _, c := range decl.NamedChildren() {
			if c.Kind() == KindParameterList {
				break
			}
			if c.Kind() == KindIdentifier {
				name = c
			}
		}
		return name
	case KindParameter:
		ids := decl.ChildrenOfKind(KindIdentifier)
		if len(ids) > 0 {
			return ids[len(ids)-1]
		}
	}
	return decl.FirstChildOfKind(KindIdentifier)
}

// Declarators returns the variable declarators of a field or local declaration.
func Declarators(decl Node) []Node {
	vd := decl
	if decl.Kind() != KindVariableDeclaration {
		vd = decl.FirstChildOfKind(KindVariableDeclaration)
	}
	return vd.ChildrenOfKind(KindVariableDeclarator)
}

// DeclaredType returns the type node of a field, local or parameter declaration.
func DeclaredType(decl Node) Node {
	switch decl.Kind() {
	case KindField, KindLocalDeclaration:
		decl = decl.FirstChildOfKind(KindVariableDeclaration)
	}
	if t := decl.Field("type"); !t.IsZero() {
		return t
	}
	if decl.Kind() == KindParameter {
		kids := decl.NamedChildren()
		for i, c := range kids {
			if c.Kind() == KindIdentifier && i == len(kids)-1 {
				break
			}
			if c.Kind() != KindAttributeList && c.Kind() != KindModifier {
				return c
			}
		}
		return Node{}
	}
	if kids := decl.NamedChildren(); len(kids) > 0 && kids[0].Kind() != KindVariableDeclarator {
		return kids[0]
	}
	return Node{}
}

// ReturnType returns the return type node of a method or local function.
func ReturnType(method Node) Node {
	for _, f := range []string{"returns", "type"} {
		if t := method.Field(f); !t.IsZero() {
			return t
		}
	}
	name := DeclaredName(method)
	var ret Node
	for _, c := range method.NamedChildren() {
		if c.Start() >= name.Start() {
			break
		}
		if c.Kind() != KindAttributeList && c.Kind() != KindModifier {
			ret = c
		}
	}
	return ret
}

// ParameterList returns the parameter list of a member or a primary
// constructor, or the zero Node.
func ParameterList(decl Node) Node {
	if pl := decl.Field("parameters"); !pl.IsZero() {
		return pl
	}
	return decl.FirstChildOfKind(KindParameterList)
}

// Parameters returns the parameters declared by decl.
func Parameters(decl Node) []Node {
	return ParameterList(decl).ChildrenOfKind(KindParameter)
}

// Body returns the block or expression body of a member.
func Body(decl Node) Node {
	if b := decl.Field("body"); !b.IsZero() {
		return b
	}
	return decl.FirstChildOfKind(KindBlock, KindArrowExpression)
}

// AttributeLists returns the attribute lists attached directly to decl.
func AttributeLists(decl Node) []Node {
	return decl.ChildrenOfKind(KindAttributeList)
}

// AttributeName returns the written name of an attribute, e.g. "Obsolete" or
// "System.Obsolete".
func AttributeName(attr Node) string {
	if n := attr.Field("name"); !n.IsZero() {
		return n.Text()
	}
	if kids := attr.NamedChildren(); len(kids) > 0 {
		return kids[0].Text()
	}
	return attr.Text()
}

// AttributeNames returns the names of all attributes attached to decl.
func AttributeNames(decl Node) []string {
	var names []string
	for _, list := range AttributeLists(decl) {
		for _, a := range list.ChildrenOfKind(KindAttribute) {
			names = append(names, AttributeName(a))
		}
	}
	return names
}

// Modifiers returns the modifier tokens of decl.
func Modifiers(decl Node) []Node {
	return decl.ChildrenOfKind(KindModifier)
}

// BaseList returns the base type list of a type declaration, or the zero Node.
func BaseList(decl Node) Node {
	return decl.FirstChildOfKind(KindBaseList)
}

// EnclosingType returns the nearest enclosing type declaration.
func EnclosingType(n Node) Node {
	return n.Ancestor(TypeDeclKinds...)
}

// QualifiedTypeName returns a type declaration's name prefixed with any
// enclosing type names, e.g. "Outer.Inner".
func QualifiedTypeName(decl Node) string {
	parts := []string{DeclaredName(decl).Text()}
	for p := EnclosingType(decl); !p.IsZero(); p = EnclosingType(p) {
		parts = append([]string{DeclaredName(p).Text()}, parts...)
	}
	return strings.Join(parts, ".")
}

// EnclosingNamespace returns the dotted namespace n is declared in, or ""
// for the global namespace. Nested namespace blocks are joined.
func EnclosingNamespace(n Node) string {
	var parts []string
	for p := n.Parent(); !p.IsZero(); p = p.Parent() {
		if p.Kind() == KindNamespace || p.Kind() == KindFileScopedNamespace {
			parts = append([]string{namespaceName(p)}, parts...)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ".")
	}
	// Newer grammars keep file-scoped namespace members as siblings.
	root := n.Tree().Root()
	for _, c := range root.ChildrenOfKind(KindFileScopedNamespace) {
		if c.Start() <= n.Start() {
			return namespaceName(c)
		}
	}
	return ""
}

func namespaceName(ns Node) string {
	if name := ns.Field("name"); !name.IsZero() {
		return name.Text()
	}
	return ns.FirstChildOfKind(KindIdentifier, KindQualifiedName).Text()
}

// Usings returns the namespaces imported by using directives anywhere in the
// tree. Aliases and static imports are returned by their target name.
func Usings(t *Tree) []string {
	var out []string
	for _, u := range t.DescendantsOfKind(KindUsing) {
		name := u.Field("name")
		ids := u.ChildrenOfKind(KindIdentifier, KindQualifiedName)
		if len(ids) > 0 {
			name = ids[len(ids)-1]
		}
		if !name.IsZero() {
			out = append(out, name.Text())
		}
	}
	return out
}

// StripGenerics returns a type name without type arguments, array ranks or
// nullable markers, e.g. "List<int>[]?" becomes "List".
func StripGenerics(typ string) string {
	if i := strings.IndexAny(typ, "<[?"); i >= 0 {
		typ = typ[:i]
	}
	return strings.TrimSpace(typ)
}

// SimpleName returns the last segment of a dotted name.
func SimpleName(name string) string {
	name = StripGenerics(name)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
