package transform

import (
	"strings"

	"github.com/imyousuf/csmigrate/internal/syntax"
)

// replaceInvocation swaps the invoked member name, or with replacement code
// replaces the whole call. The code may refer to {receiver} and {arguments}
// of the call it replaces.
func replaceInvocation(s *step, call syntax.Node) (*syntax.Tree, error) {
	if code := s.action.ReplacementCode; code != "" {
		return replaceText(call, expandCallPlaceholders(code, call))
	}
	return replaceText(syntax.InvokedName(call), s.action.ReplacementName)
}

func expandCallPlaceholders(code string, call syntax.Node) string {
	if !strings.Contains(code, "{") {
		return code
	}
	var args []string
	for _, a := range syntax.Arguments(call) {
		args = append(args, a.Text())
	}
	return strings.NewReplacer(
		"{receiver}", syntax.Receiver(call).Text(),
		"{arguments}", strings.Join(args, ", "),
		"{name}", syntax.InvokedName(call).Text(),
	).Replace(code)
}

// removeArgument drops one argument of a call. The argument is found by its
// label, then by the identifier it passes, then by the position of the
// parameter of that name in the resolved method. A local variable that only
// existed to be passed as the argument is removed with it.
func removeArgument(s *step, call syntax.Node) (*syntax.Tree, error) {
	t := call.Tree()
	args := syntax.Arguments(call)
	i := argumentIndex(s, call, args, s.action.ArgumentName)
	if i < 0 {
		return t, nil
	}
	arg := args[i]

	var edits []syntax.Edit
	switch {
	case i+1 < len(args):
		edits = append(edits, syntax.Delete(arg.Start(), args[i+1].Start()))
	case i > 0:
		edits = append(edits, syntax.Delete(args[i-1].End(), arg.End()))
	default:
		edits = append(edits, syntax.Delete(arg.Start(), arg.End()))
	}

	if v := syntax.ArgumentValue(arg); v.Kind() == syntax.KindIdentifier {
		if decl, ok := unusedLocal(v); ok {
			start, end := syntax.LineSpan(t.Bytes(), decl.Start(), decl.End())
			edits = append(edits, syntax.Delete(start, end))
		}
	}
	return t.Apply(edits)
}

func argumentIndex(s *step, call syntax.Node, args []syntax.Node, name string) int {
	for i, a := range args {
		if syntax.ArgumentLabel(a) == name {
			return i
		}
	}
	for i, a := range args {
		if v := syntax.ArgumentValue(a); v.Kind() == syntax.KindIdentifier && v.Text() == name {
			return i
		}
	}
	if s.resolver == nil {
		return -1
	}
	sym, ok := s.resolver.ResolveInvocation(call.Tree(), call)
	if !ok {
		return -1
	}
	for i, p := range sym.Params {
		if p.Name == name && i < len(args) && syntax.ArgumentLabel(args[i]) == "" {
			return i
		}
	}
	return -1
}

// unusedLocal returns the single-variable local declaration of the variable
// ref names when ref is its only use in the declaring block.
func unusedLocal(ref syntax.Node) (syntax.Node, bool) {
	name := ref.Text()
	for block := ref.Ancestor(syntax.KindBlock); !block.IsZero(); block = block.Ancestor(syntax.KindBlock) {
		for _, stmt := range block.ChildrenOfKind(syntax.KindLocalDeclaration) {
			if stmt.Start() >= ref.Start() {
				break
			}
			decls := syntax.Declarators(stmt)
			if len(decls) != 1 || syntax.DeclaredName(decls[0]).Text() != name {
				continue
			}
			declared := syntax.DeclaredName(decls[0])
			for _, id := range block.Descendants(syntax.KindIdentifier) {
				if id.Text() != name || id.Equal(declared) || id.Equal(ref) {
					continue
				}
				if isMemberName(id) {
					continue
				}
				return syntax.Node{}, false
			}
			return stmt, true
		}
		if containsKind(syntax.MemberKinds, block.Parent().Kind()) {
			break
		}
	}
	return syntax.Node{}, false
}

// isMemberName reports whether id is the member part of `x.id` or `x?.id`
// or the label of a named argument, none of which refer to a local variable.
func isMemberName(id syntax.Node) bool {
	p := id.Parent()
	switch p.Kind() {
	case syntax.KindMemberAccess, syntax.KindMemberBinding:
		return p.Field("name").Equal(id)
	}
	return syntax.IsArgumentLabel(id)
}

func containsKind(kinds []string, k string) bool {
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}
