// Package condition evaluates user-authored branch conditions against an
// area run's accumulated variables.
//
// Expressions are a security boundary: they are parsed into an AST and every
// node is checked against a whitelist before anything is compiled or
// evaluated. See safety.go.
package condition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var (
	ErrFieldNotFound    = errors.New("condition field not found")
	ErrUnknownOperator  = errors.New("unknown condition operator")
	ErrInvalidCondition = errors.New("invalid condition configuration")
)

// Evaluator evaluates simple conditions and restricted expressions. Compiled
// expression programs are cached; the cache is safe for concurrent use.
type Evaluator struct {
	cache map[string]*vm.Program
	mu    sync.RWMutex
}

func NewEvaluator() *Evaluator {
	return &Evaluator{
		cache: make(map[string]*vm.Program),
	}
}

// Evaluate dispatches on the condition step's configured conditionType.
// Missing required sub-fields or an unrecognized conditionType are evaluation
// errors, never a silent false.
func (e *Evaluator) Evaluate(config map[string]any, context map[string]any) (bool, error) {
	conditionType, _ := config["conditionType"].(string)

	switch conditionType {
	case "simple":
		simple, ok := config["simple"].(map[string]any)
		if !ok {
			return false, fmt.Errorf("%w: simple condition requires a 'simple' object", ErrInvalidCondition)
		}

		field, ok := simple["field"].(string)
		if !ok || field == "" {
			return false, fmt.Errorf("%w: simple condition requires a 'field'", ErrInvalidCondition)
		}

		operator, ok := simple["operator"].(string)
		if !ok || operator == "" {
			return false, fmt.Errorf("%w: simple condition requires an 'operator'", ErrInvalidCondition)
		}

		return e.EvaluateSimple(context, field, operator, simple["value"])
	case "expression":
		expression, ok := config["expression"].(string)
		if !ok || expression == "" {
			return false, fmt.Errorf("%w: expression condition requires an 'expression'", ErrInvalidCondition)
		}

		return e.EvaluateExpression(expression, context)
	default:
		return false, fmt.Errorf("%w: unrecognized conditionType %q", ErrInvalidCondition, conditionType)
	}
}

// EvaluateSimple resolves fieldPath against the context and applies operator
// to the resolved value and the configured value. A missing field is an
// error, not false.
func (e *Evaluator) EvaluateSimple(context map[string]any, fieldPath, operator string, value any) (bool, error) {
	resolved, err := resolveField(context, fieldPath)
	if err != nil {
		return false, err
	}

	switch operator {
	case "eq":
		return looseEqual(resolved, value), nil
	case "ne":
		return !looseEqual(resolved, value), nil
	case "gt", "lt", "gte", "lte":
		left, leftOK := toFloat(resolved)
		right, rightOK := toFloat(value)

		if !leftOK || !rightOK {
			return false, fmt.Errorf("operator %q requires numeric operands, got %v and %v", operator, resolved, value)
		}

		switch operator {
		case "gt":
			return left > right, nil
		case "lt":
			return left < right, nil
		case "gte":
			return left >= right, nil
		default:
			return left <= right, nil
		}
	case "contains", "startswith", "endswith":
		text, ok := resolved.(string)
		if !ok {
			return false, fmt.Errorf("operator %q requires a string field, got %T", operator, resolved)
		}

		needle := stringify(value)

		switch operator {
		case "contains":
			return strings.Contains(text, needle), nil
		case "startswith":
			return strings.HasPrefix(text, needle), nil
		default:
			return strings.HasSuffix(text, needle), nil
		}
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, operator)
	}
}

// EvaluateExpression validates, compiles and runs a restricted expression and
// coerces the result to a boolean with standard truthiness rules. Unsafe
// constructs are rejected before any evaluation occurs.
func (e *Evaluator) EvaluateExpression(expression string, context map[string]any) (bool, error) {
	program, err := e.compile(expression)
	if err != nil {
		return false, err
	}

	result, err := expr.Run(program, exprEnv(context))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate expression %q: %w", expression, err)
	}

	return truthy(result), nil
}

func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.cache[expression]
	e.mu.RUnlock()

	if ok {
		return program, nil
	}

	if err := ValidateExpression(expression); err != nil {
		return nil, err
	}

	program, err := expr.Compile(expression,
		expr.Env(baseEnv()),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression %q: %w", expression, err)
	}

	e.mu.Lock()
	e.cache[expression] = program
	e.mu.Unlock()

	return program, nil
}

// baseEnv holds the allowlisted helper functions available to expressions.
// lower, upper and trim are expr builtins; strip is provided as an alias for
// trim to match the documented allowlist.
func baseEnv() map[string]any {
	return map[string]any{
		"strip": strings.TrimSpace,
	}
}

// exprEnv nests the flat dotted-key context into maps so dotted paths resolve
// naturally, and mirrors the whole namespace under "trigger" for
// compatibility with legacy trigger.* expressions.
func exprEnv(context map[string]any) map[string]any {
	nested := make(map[string]any, len(context)+2)
	for key, value := range context {
		insertPath(nested, key, value)
	}

	if _, taken := nested["trigger"]; !taken {
		trigger := make(map[string]any, len(nested))
		for key, value := range nested {
			trigger[key] = value
		}

		nested["trigger"] = trigger
	}

	for name, fn := range baseEnv() {
		nested[name] = fn
	}

	return nested
}

func insertPath(target map[string]any, path string, value any) {
	segments := strings.Split(path, ".")

	current := target
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[segment] = next
		}

		current = next
	}

	last := segments[len(segments)-1]
	if _, exists := current[last]; !exists {
		current[last] = value
	}
}

// resolveField resolves a dotted path against the flat context: an exact flat
// key wins, then the path is retried without a leading "trigger." prefix,
// then the path is walked through nested values.
func resolveField(context map[string]any, fieldPath string) (any, error) {
	if value, ok := context[fieldPath]; ok {
		return value, nil
	}

	if trimmed := strings.TrimPrefix(fieldPath, "trigger."); trimmed != fieldPath {
		if value, ok := context[trimmed]; ok {
			return value, nil
		}

		fieldPath = trimmed
	}

	segments := strings.Split(fieldPath, ".")

	var current any = context
	for i, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %q (segment %q is not an object)", ErrFieldNotFound, fieldPath, segments[i-1])
		}

		current, ok = node[segment]
		if !ok {
			return nil, fmt.Errorf("%w: %q (missing segment %q)", ErrFieldNotFound, fieldPath, segment)
		}
	}

	return current, nil
}

func looseEqual(left, right any) bool {
	leftNum, leftOK := toFloat(left)
	rightNum, rightOK := toFloat(right)

	if leftOK && rightOK {
		return leftNum == rightNum
	}

	return stringify(left) == stringify(right)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}

	return fmt.Sprintf("%v", v)
}

// truthy coerces an evaluated expression result to a boolean: non-zero
// numbers, non-empty strings and non-empty collections are true.
func truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case int:
		return value != 0
	case int32:
		return value != 0
	case int64:
		return value != 0
	case float32:
		return value != 0
	case float64:
		return value != 0
	case string:
		return value != ""
	case []any:
		return len(value) > 0
	case map[string]any:
		return len(value) > 0
	default:
		return true
	}
}
