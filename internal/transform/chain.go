package transform

import "github.com/imyousuf/csmigrate/internal/syntax"

// Strategies for remove_invocation.
const (
	StrategySmartChainAware = "smart_chain_aware"
	// StrategyStatementOnly removes calls only when they form a whole statement.
	StrategyStatementOnly = "statement_only"
)

// removeInvocation removes a call, keeping any fluent chain around it intact:
//
//	recv.Target();                 -> (statement deleted)
//	recv.Keep1().Target().Keep2()  -> recv.Keep1().Keep2()
//	Target().Keep2()               -> Keep2()
//	var x = recv.Keep1().Target(); -> var x = recv.Keep1();
//
// Shapes not listed are left alone.
func removeInvocation(s *step, call syntax.Node) (*syntax.Tree, error) {
	t := call.Tree()
	expr := call
	if p := call.Parent(); p.Kind() == syntax.KindConditionalAccess && lastNamedChild(p).Equal(call) {
		expr = p
	}
	parent := expr.Parent()
	recv := syntax.Receiver(call)
	chained := recv
	if !expr.Equal(call) {
		chained = expr.NamedChildren()[0]
	}

	if parent.Kind() == syntax.KindExpressionStatement && !hasCall(chained) {
		if embeddedStatement(parent) {
			return t.Replace(parent, "{ }")
		}
		return t.Remove(parent)
	}
	if s.action.Strategy == StrategyStatementOnly {
		return t, nil
	}

	if parent.Kind() == syntax.KindMemberAccess && memberAccessTarget(parent).Equal(expr) && expr.Equal(call) {
		if !recv.IsZero() {
			return t.Hoist(call, recv)
		}
		if syntax.InvocationFunction(call).Kind() == syntax.KindMemberAccess {
			return t, nil
		}
		name := parent.Field("name")
		if name.IsZero() {
			return t, nil
		}
		return t.Apply([]syntax.Edit{syntax.Delete(call.Start(), name.Start())})
	}

	if !recv.IsZero() && expr.Equal(call) {
		return t.Hoist(call, recv)
	}
	return t, nil
}

// memberAccessTarget returns the expression a member access is made on.
func memberAccessTarget(access syntax.Node) syntax.Node {
	if e := access.Field("expression"); !e.IsZero() {
		return e
	}
	if kids := access.NamedChildren(); len(kids) > 0 {
		return kids[0]
	}
	return syntax.Node{}
}

// hasCall reports whether expr contains an invocation, i.e. whether removing
// the statement around it would take other calls of a chain with it.
func hasCall(expr syntax.Node) bool {
	return !expr.IsZero() && len(expr.Descendants(syntax.KindInvocation)) > 0
}

// embeddedStatement reports whether stmt is the body of a control statement
// rather than a member of a block, so deleting it would orphan its owner.
func embeddedStatement(stmt syntax.Node) bool {
	switch stmt.Parent().Kind() {
	case "if_statement", "else_clause", "while_statement", "do_statement",
		"for_statement", "foreach_statement", "for_each_statement", "labeled_statement",
		"lock_statement", "using_statement", "fixed_statement":
		return true
	}
	return false
}

func lastNamedChild(n syntax.Node) syntax.Node {
	kids := n.NamedChildren()
	if len(kids) == 0 {
		return syntax.Node{}
	}
	return kids[len(kids)-1]
}
