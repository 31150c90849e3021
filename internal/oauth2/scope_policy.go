package oauth2

import (
	"context"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
)

// maxExpressionLength bounds a scope-policy CEL expression's length.
const maxExpressionLength = 1024

// maxCostBudget bounds CEL evaluation cost to prevent cost-exhaustion DoS.
const maxCostBudget = 100_000

// evalTimeout bounds a single CEL evaluation's wall-clock time.
const evalTimeout = 5 * time.Second

// Activation is the per-request context a scope policy evaluates against:
// the JWT's granted scopes and the MCP method/tool being invoked. This
// replaces the teacher's policy.EvaluationContext (tied to tool-call
// proxying) with the subset relevant to bearer-token authorization.
type Activation struct {
	Method     string
	ToolName   string
	Scopes     []string
	Issuer     string
	Subject    string
}

// ScopePolicy compiles and evaluates a CEL expression that decides whether
// a request's granted scopes authorize the method/tool it names. Grounded
// on the teacher's CEL evaluator (cost budget, nesting-depth check, eval
// timeout) with a request-scope activation instead of a policy.EvaluationContext.
type ScopePolicy struct {
	env *cel.Env
	prg cel.Program
}

// NewScopePolicy compiles expr against the scope-authorization environment.
func NewScopePolicy(expr string) (*ScopePolicy, error) {
	if len(expr) > maxExpressionLength {
		return nil, errs.New(errs.KindProtocol, "scope policy expression too long: %d chars (max %d)", len(expr), maxExpressionLength)
	}
	if err := validateNesting(expr); err != nil {
		return nil, err
	}

	env, err := newScopeEnv()
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "build CEL environment")
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errs.Wrap(errs.KindProtocol, issues.Err(), "compile scope policy expression")
	}

	prg, err := env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(maxCostBudget),
	)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "build CEL program")
	}

	return &ScopePolicy{env: env, prg: prg}, nil
}

// Authorize evaluates the policy against act, returning true if authorized.
func (p *ScopePolicy) Authorize(ctx context.Context, act Activation) (bool, error) {
	evalCtx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()

	result, _, err := p.prg.ContextEval(evalCtx, buildActivation(act))
	if err != nil {
		return false, errs.Wrap(errs.KindInternal, err, "evaluate scope policy")
	}

	authorized, ok := result.Value().(bool)
	if !ok {
		return false, errs.New(errs.KindInternal, "scope policy did not return a boolean, got %T", result.Value())
	}
	return authorized, nil
}

func newScopeEnv() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Strings(),
		ext.Sets(),
		cel.Variable("method", cel.StringType),
		cel.Variable("tool_name", cel.StringType),
		cel.Variable("scopes", cel.ListType(cel.StringType)),
		cel.Variable("issuer", cel.StringType),
		cel.Variable("subject", cel.StringType),
		cel.Function("has_scope",
			cel.Overload("has_scope_list_string",
				[]*cel.Type{cel.ListType(cel.StringType), cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(scopesVal, scopeVal ref.Val) ref.Val {
					scope := scopeVal.Value().(string)
					list, ok := scopesVal.(types.Lister)
					if !ok {
						return types.Bool(false)
					}
					it := list.Iterator()
					for it.HasNext() == types.True {
						if it.Next().Value().(string) == scope {
							return types.Bool(true)
						}
					}
					return types.Bool(false)
				}),
			),
		),
	)
}

func buildActivation(act Activation) map[string]any {
	scopes := act.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	return map[string]any{
		"method":    act.Method,
		"tool_name": act.ToolName,
		"scopes":    scopes,
		"issuer":    act.Issuer,
		"subject":   act.Subject,
	}
}

func validateNesting(expr string) error {
	const maxNestingDepth = 50
	var depth, maxDepth int
	for _, ch := range expr {
		switch ch {
		case '(', '[', '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')', ']', '}':
			depth--
		}
	}
	if maxDepth > maxNestingDepth {
		return errs.New(errs.KindProtocol, fmt.Sprintf("scope policy expression nesting too deep: %d levels (max %d)", maxDepth, maxNestingDepth))
	}
	return nil
}
