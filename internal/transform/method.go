package transform

import (
	"context"
	"errors"
	"strings"

	"github.com/imyousuf/csmigrate/internal/syntax"
)

func renameMethod(s *step, method syntax.Node) (*syntax.Tree, error) {
	return replaceText(syntax.DeclaredName(method), s.action.ReplacementName)
}

func replaceReturnType(s *step, method syntax.Node) (*syntax.Tree, error) {
	return replaceText(syntax.ReturnType(method), s.action.ReplacementType)
}

var errNotASignature = errors.New("replacement_code is not a method signature")

// replaceMethodSignature swaps the return type, name, type parameters and
// parameter list of a method for those written in the replacement code.
// Attributes, modifiers, constraints and the body are kept.
func replaceMethodSignature(s *step, method syntax.Node) (*syntax.Tree, error) {
	t := method.Tree()
	sig, err := parseSignature(s.action.ReplacementCode)
	if err != nil {
		return nil, err
	}
	ret, params := syntax.ReturnType(method), syntax.ParameterList(method)
	if ret.IsZero() || params.IsZero() {
		return t, nil
	}
	return t.Apply([]syntax.Edit{syntax.Splice(ret.Start(), params.End(), sig)})
}

// parseSignature returns the text from the return type through the
// parameter list of a signature such as "public Task<int> RunAsync(int n)".
func parseSignature(code string) (string, error) {
	code = strings.TrimSpace(code)
	code = strings.TrimSuffix(code, ";")
	if i := strings.IndexAny(code, "{="); i >= 0 && strings.LastIndex(code, ")") < i {
		code = strings.TrimSpace(code[:i])
	}
	src := "class __Signature\n{\n" + code + " { }\n}\n"
	tree, err := syntax.Parse(context.Background(), []byte(src))
	if err != nil {
		return "", err
	}
	methods := tree.DescendantsOfKind(syntax.KindMethod)
	if len(methods) != 1 || tree.HasError() {
		return "", errNotASignature
	}
	ret, params := syntax.ReturnType(methods[0]), syntax.ParameterList(methods[0])
	if ret.IsZero() || params.IsZero() {
		return "", errNotASignature
	}
	return src[ret.Start():params.End()], nil
}
