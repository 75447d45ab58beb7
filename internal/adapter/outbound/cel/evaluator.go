// Package cel provides a CEL-based approval rule evaluator.
package cel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/cel-go/cel"

	"github.com/approval-gate/approvalgate/internal/domain/policy"
)

// maxExpressionLength is the maximum allowed length for rule expressions.
const maxExpressionLength = 1024

// maxCostBudget is the CEL runtime cost limit per evaluation.
const maxCostBudget = 100_000

// evalTimeout bounds a single rule evaluation.
const evalTimeout = 5 * time.Second

// interruptCheckFreq is how often (in comprehension iterations) context
// cancellation is checked.
const interruptCheckFreq = 100

// Evaluator compiles approval rule expressions against a fixed
// environment. Compiled programs are cached by expression digest, so
// per-team rules sharing an expression compile once.
type Evaluator struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[uint64]cel.Program
}

// NewEnvironment creates the CEL environment for approval rules. The
// declared variables mirror policy.Input.
func NewEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("action", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("requester", cel.StringType),
		cel.Variable("approver_email", cel.StringType),
		cel.Variable("fields", cel.MapType(cel.StringType, cel.DynType)),
	)
}

// NewEvaluator creates an Evaluator with the approval rule environment.
func NewEvaluator() (*Evaluator, error) {
	env, err := NewEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create rule environment: %w", err)
	}
	return &Evaluator{env: env, cache: make(map[uint64]cel.Program)}, nil
}

// Compile parses and type-checks an expression, returning a cached
// program when the expression was seen before. The expression must
// evaluate to a boolean.
func (e *Evaluator) Compile(expression string) (cel.Program, error) {
	if len(expression) > maxExpressionLength {
		return nil, fmt.Errorf("expression exceeds maximum length of %d characters", maxExpressionLength)
	}

	key := xxhash.Sum64String(expression)
	e.mu.RLock()
	prg, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation failed: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("expression must evaluate to bool, got %v", ast.OutputType())
	}

	prg, err := e.env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(maxCostBudget),
		cel.InterruptCheckFrequency(interruptCheckFreq),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation failed: %w", err)
	}

	e.mu.Lock()
	e.cache[key] = prg
	e.mu.Unlock()
	return prg, nil
}

// Rule is a compiled approval rule. It implements policy.Rule.
type Rule struct {
	expression string
	program    cel.Program
	reason     string
}

// NewRule compiles expression into an approval rule. reason is the
// operator-facing message used when the rule vetoes an approval; when
// empty a generic message is used.
func (e *Evaluator) NewRule(expression, reason string) (*Rule, error) {
	prg, err := e.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("approval rule %q: %w", expression, err)
	}
	if reason == "" {
		reason = "blocked by approval policy"
	}
	return &Rule{expression: expression, program: prg, reason: reason}, nil
}

// Allow evaluates the rule against the input. Evaluation is bounded by
// evalTimeout and the CEL cost budget.
func (r *Rule) Allow(ctx context.Context, in policy.Input) (bool, string, error) {
	ctx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()

	fields := in.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	out, _, err := r.program.ContextEval(ctx, map[string]any{
		"action":         in.Action,
		"name":           in.Name,
		"requester":      in.Requester,
		"approver_email": in.ApproverEmail,
		"fields":         fields,
	})
	if err != nil {
		return false, "", fmt.Errorf("rule evaluation failed: %w", err)
	}
	allowed, ok := out.Value().(bool)
	if !ok {
		return false, "", fmt.Errorf("rule returned non-boolean value %v", out.Value())
	}
	if allowed {
		return true, "", nil
	}
	return false, r.reason, nil
}
