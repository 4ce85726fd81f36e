// Package policy gates live tool execution through OPA.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.tool_policy.decision"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the tool policy. Input is a map with keys tool_name and
// args. Returns the decision (allow or block) plus an optional reason.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The policy is expected to define a default.
		return "allow", "default", nil
	}

	val := results[0].Expressions[0].Value
	if s, ok := val.(string); ok {
		return s, "", nil
	}
	if m, ok := val.(map[string]interface{}); ok {
		decision, _ := m["decision"].(string)
		reason, _ := m["reason"].(string)
		if decision != "" {
			return decision, reason, nil
		}
	}

	return "allow", "unexpected return type", nil
}

// DefaultPolicy is the default policy content: every function is allowed
// except a deny-list of obviously destructive names.
const DefaultPolicy = `
package tool_policy

default decision = "allow"

decision = "block" {
	input.tool_name == "shell.exec"
}

decision = "block" {
	input.tool_name == "db.drop"
}
`
