// Package symbols resolves invocations to the methods they call using the
// declarations found in a set of C# files.
package symbols

import (
	"strings"

	"github.com/imyousuf/csmigrate/internal/syntax"
)

// Param is one declared parameter.
type Param struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
	Variadic bool   `json:"variadic,omitempty"`
}

// Method is a declared method.
type Method struct {
	Name       string   `json:"name"`
	ReturnType string   `json:"return_type,omitempty"`
	Static     bool     `json:"static,omitempty"`
	Extension  bool     `json:"extension,omitempty"`
	TypeParams []string `json:"type_params,omitempty"`
	// Params excludes the receiver of an extension method.
	Params   []Param `json:"params,omitempty"`
	Receiver string  `json:"receiver,omitempty"`
	Line     int     `json:"line"`
}

// Member is a field or property with a declared type.
type Member struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Type is a declared class, struct, interface or record.
type Type struct {
	Name      string   `json:"name"`
	Qualified string   `json:"qualified"`
	Namespace string   `json:"namespace,omitempty"`
	Kind      string   `json:"kind"`
	Static    bool     `json:"static,omitempty"`
	Bases     []string `json:"bases,omitempty"`
	Methods   []Method `json:"methods,omitempty"`
	Members   []Member `json:"members,omitempty"`
}

// FullName returns the namespace-qualified name of the type.
func (t Type) FullName() string {
	if t.Namespace == "" {
		return t.Qualified
	}
	return t.Namespace + "." + t.Qualified
}

// FileDecls are the type declarations of one file.
type FileDecls struct {
	Path  string `json:"path"`
	Types []Type `json:"types"`
}

// Extract collects the type declarations of a parsed file.
func Extract(t *syntax.Tree, path string) FileDecls {
	e := &extractor{decls: FileDecls{Path: path}}
	for _, decl := range t.DescendantsOfKind(syntax.TypeDeclKinds...) {
		e.extractType(decl)
	}
	return e.decls
}

type extractor struct {
	decls FileDecls
}

func (e *extractor) extractType(node syntax.Node) {
	name := syntax.DeclaredName(node).Text()
	if name == "" {
		return
	}
	typ := Type{
		Name:      name,
		Qualified: syntax.QualifiedTypeName(node),
		Namespace: syntax.EnclosingNamespace(node),
		Kind:      strings.TrimSuffix(node.Kind(), "_declaration"),
		Static:    hasModifier(node, "static"),
	}
	if bases := syntax.BaseList(node); !bases.IsZero() {
		for _, b := range bases.NamedChildren() {
			typ.Bases = append(typ.Bases, syntax.SimpleName(b.Text()))
		}
	}

	body := node.Field("body")
	if body.IsZero() {
		body = node.FirstChildOfKind(syntax.KindDeclarationList)
	}
	for _, child := range body.NamedChildren() {
		switch child.Kind() {
		case syntax.KindMethod:
			if m, ok := extractMethod(child); ok {
				typ.Methods = append(typ.Methods, m)
			}
		case syntax.KindField:
			fieldType := syntax.DeclaredType(child).Text()
			for _, d := range syntax.Declarators(child) {
				typ.Members = append(typ.Members, Member{Name: syntax.DeclaredName(d).Text(), Type: fieldType})
			}
		case "property_declaration":
			typ.Members = append(typ.Members, Member{
				Name: syntax.DeclaredName(child).Text(),
				Type: child.Field("type").Text(),
			})
		}
	}
	e.decls.Types = append(e.decls.Types, typ)
}

func extractMethod(node syntax.Node) (Method, bool) {
	name := syntax.DeclaredName(node).Text()
	if name == "" {
		return Method{}, false
	}
	m := Method{
		Name:       name,
		ReturnType: syntax.ReturnType(node).Text(),
		Static:     hasModifier(node, "static"),
		Line:       node.Line(),
	}
	if tp := node.FirstChildOfKind(syntax.KindTypeParameterList); !tp.IsZero() {
		for _, p := range tp.NamedChildren() {
			m.TypeParams = append(m.TypeParams, syntax.DeclaredName(p).Text())
		}
	}
	for i, p := range syntax.Parameters(node) {
		param := Param{
			Name:     syntax.DeclaredName(p).Text(),
			Type:     syntax.DeclaredType(p).Text(),
			Optional: strings.Contains(p.Text(), "="),
			Variadic: hasModifier(p, "params"),
		}
		if i == 0 && hasModifier(p, "this") {
			m.Extension = true
			m.Receiver = param.Type
			continue
		}
		m.Params = append(m.Params, param)
	}
	return m, true
}

// hasModifier reports whether a declaration carries the given modifier
// keyword. Parameter modifiers such as this and params are anonymous tokens
// in some grammar versions, so the leading text is checked as well.
func hasModifier(decl syntax.Node, keyword string) bool {
	for _, m := range syntax.Modifiers(decl) {
		if m.Text() == keyword {
			return true
		}
	}
	for _, c := range decl.Children() {
		switch c.Kind() {
		case syntax.KindAttributeList, syntax.KindModifier:
			continue
		}
		return c.Text() == keyword
	}
	return false
}

// arityMatches reports whether a call with argc arguments can bind to params.
func arityMatches(params []Param, argc int) bool {
	required, variadic := 0, false
	for _, p := range params {
		switch {
		case p.Variadic:
			variadic = true
		case !p.Optional:
			required++
		}
	}
	if argc < required {
		return false
	}
	return variadic || argc <= len(params)
}
