// Package toolexec executes a single model-issued function call and returns
// its serialized result.
package toolexec

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/promptbench/engine/internal/domain"
	"github.com/promptbench/engine/internal/policy"
)

// Executor resolves one tool call to a serialized result string.
type Executor interface {
	Execute(ctx context.Context, call domain.ToolCall) (string, error)
}

// Handler is the side-effecting implementation behind live tool execution.
// It lives outside the engine; callers inject it.
type Handler interface {
	Invoke(ctx context.Context, functionName string, arguments map[string]interface{}) (string, error)
}

// Simulated answers tool calls from caller-supplied fixtures, falling back to
// a generic mock envelope. It is deterministic and side-effect-free so test
// executions stay reproducible.
type Simulated struct {
	fixtures map[string]interface{}
}

// NewSimulated creates a simulated executor. Fixtures are keyed by function
// name; a nil map means every call gets the generic envelope.
func NewSimulated(fixtures map[string]interface{}) *Simulated {
	return &Simulated{fixtures: fixtures}
}

var _ Executor = (*Simulated)(nil)

func (e *Simulated) Execute(_ context.Context, call domain.ToolCall) (string, error) {
	if fixture, ok := e.fixtures[call.FunctionName]; ok {
		// A string fixture is assumed pre-serialized.
		if s, isString := fixture.(string); isString {
			return s, nil
		}
		encoded, err := json.Marshal(fixture)
		if err != nil {
			return "", fmt.Errorf("failed to encode fixture for %s: %w", call.FunctionName, err)
		}
		return string(encoded), nil
	}

	envelope := map[string]interface{}{
		"success": true,
		"message": "Mock result for " + call.FunctionName,
		"data":    call.Arguments,
	}
	encoded, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("failed to encode mock envelope for %s: %w", call.FunctionName, err)
	}
	return string(encoded), nil
}

// Live delegates to a real handler after a policy check. A blocked call is
// answered with a serialized refusal so the model can react; it does not fail
// the execution.
type Live struct {
	handler      Handler
	policyEngine *policy.Engine
}

// NewLive creates a live executor. The policy engine may be nil, in which
// case every call is allowed through to the handler.
func NewLive(handler Handler, policyEngine *policy.Engine) *Live {
	return &Live{handler: handler, policyEngine: policyEngine}
}

var _ Executor = (*Live)(nil)

func (e *Live) Execute(ctx context.Context, call domain.ToolCall) (string, error) {
	if e.handler == nil {
		return "", fmt.Errorf("no live tool handler configured for %s", call.FunctionName)
	}

	if e.policyEngine != nil {
		input := map[string]interface{}{
			"tool_name": call.FunctionName,
			"args":      call.Arguments,
		}
		decision, reason, err := e.policyEngine.Evaluate(ctx, input)
		if err != nil {
			return "", fmt.Errorf("policy evaluation failed for %s: %w", call.FunctionName, err)
		}
		if decision == "block" {
			refusal := map[string]interface{}{
				"success": false,
				"message": "tool call blocked by policy",
			}
			if reason != "" {
				refusal["reason"] = reason
			}
			encoded, _ := json.Marshal(refusal)
			return string(encoded), nil
		}
	}

	return e.handler.Invoke(ctx, call.FunctionName, call.Arguments)
}
