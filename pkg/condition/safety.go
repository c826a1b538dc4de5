package condition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// ErrUnsafeExpression is returned when an expression contains a construct
// outside the whitelist. Validation happens before compilation, so an unsafe
// expression is never partially evaluated.
var ErrUnsafeExpression = errors.New("unsafe expression")

// allowedFunctions is the full set of callables an expression may invoke.
var allowedFunctions = map[string]bool{
	"lower": true,
	"upper": true,
	"trim":  true,
	"strip": true,
}

var allowedBinaryOperators = map[string]bool{
	"==": true, "!=": true,
	">": true, "<": true, ">=": true, "<=": true,
	"and": true, "or": true, "&&": true, "||": true,
	"+": true, "-": true, "*": true, "/": true, "%": true,
}

var allowedUnaryOperators = map[string]bool{
	"not": true, "!": true, "-": true, "+": true,
}

// ValidateExpression parses the expression and walks every AST node against
// the whitelist: name lookups, comparisons, boolean and arithmetic operators,
// literals, and calls to the small allowlisted function set. Anything else
// (arbitrary calls, dunder attribute access, closures, collection literals)
// is rejected.
func ValidateExpression(expression string) error {
	tree, err := parser.Parse(expression)
	if err != nil {
		return fmt.Errorf("failed to parse expression %q: %w", expression, err)
	}

	v := &safetyVisitor{}
	ast.Walk(&tree.Node, v)

	if v.err != nil {
		return fmt.Errorf("%w: %s in %q", ErrUnsafeExpression, v.err, expression)
	}

	return nil
}

type safetyVisitor struct {
	err error
}

func (v *safetyVisitor) Visit(node *ast.Node) {
	if v.err != nil {
		return
	}

	switch n := (*node).(type) {
	case *ast.NilNode, *ast.IdentifierNode, *ast.IntegerNode, *ast.FloatNode,
		*ast.BoolNode, *ast.StringNode, *ast.ConstantNode, *ast.ChainNode:
	case *ast.UnaryNode:
		if !allowedUnaryOperators[n.Operator] {
			v.err = fmt.Errorf("operator %q is not allowed", n.Operator)
		}
	case *ast.BinaryNode:
		if !allowedBinaryOperators[n.Operator] {
			v.err = fmt.Errorf("operator %q is not allowed", n.Operator)
		}
	case *ast.MemberNode:
		if name, ok := memberName(n.Property); ok && strings.HasPrefix(name, "__") {
			v.err = fmt.Errorf("access to special attribute %q is not allowed", name)
		}
	case *ast.CallNode:
		callee, ok := n.Callee.(*ast.IdentifierNode)
		if !ok || !allowedFunctions[callee.Value] {
			v.err = fmt.Errorf("call to %q is not allowed", n.Callee.String())
		}
	case *ast.BuiltinNode:
		if !allowedFunctions[n.Name] {
			v.err = fmt.Errorf("call to builtin %q is not allowed", n.Name)
		}
	default:
		v.err = fmt.Errorf("construct %T is not allowed", n)
	}
}

func memberName(property ast.Node) (string, bool) {
	switch p := property.(type) {
	case *ast.StringNode:
		return p.Value, true
	case *ast.IdentifierNode:
		return p.Value, true
	default:
		return "", false
	}
}
