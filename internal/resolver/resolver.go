// Package resolver runs the bounded tool-call resolution loop between the
// model and the function executor.
package resolver

import (
	"context"
	"fmt"
	"log"

	"github.com/promptbench/engine/internal/domain"
	"github.com/promptbench/engine/internal/toolexec"
	"github.com/promptbench/engine/internal/usage"
)

// DefaultMaxIterations bounds the loop when no explicit bound is configured.
const DefaultMaxIterations = 10

// ToolOutput pairs an executed tool call with its serialized result. Pairs
// are replayed to the provider strictly in the order the calls arrived.
type ToolOutput struct {
	Call   domain.ToolCall
	Output string
}

// Continuer sends a set of paired call outputs back to the provider as a
// continuation request and returns the next response. Each adapter supplies
// a turn-scoped implementation.
type Continuer interface {
	Continue(ctx context.Context, outputs []ToolOutput) (*domain.CanonicalResponse, error)
}

// Result carries everything a turn produced across the loop's sub-calls.
type Result struct {
	// Final is the last response the provider returned.
	Final *domain.CanonicalResponse
	// ToolCalls lists every call the model issued, including any left
	// unresolved when the iteration bound was hit.
	ToolCalls []domain.ToolCall
	// Usage is aggregated across all sub-responses.
	Usage domain.Usage
	// Responses holds every sub-response, the initial one first.
	Responses []*domain.CanonicalResponse
}

// Loop is the resolution loop.
type Loop struct {
	executor      toolexec.Executor
	maxIterations int
}

// New creates a loop. A non-positive bound falls back to DefaultMaxIterations.
func New(executor toolexec.Executor, maxIterations int) *Loop {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Loop{executor: executor, maxIterations: maxIterations}
}

// Resolve iterates while the response carries tool calls: execute each call
// in provider order, replay the interleaved call/output pairs, take the new
// response. Hitting the iteration bound with calls still pending is recorded
// and warned about but is not an error.
func (l *Loop) Resolve(ctx context.Context, initial *domain.CanonicalResponse, cont Continuer) (*Result, error) {
	result := &Result{
		Final:     initial,
		ToolCalls: []domain.ToolCall{},
		Responses: []*domain.CanonicalResponse{initial},
	}

	response := initial
	for iteration := 0; response.HasToolCalls() && iteration < l.maxIterations; iteration++ {
		result.ToolCalls = append(result.ToolCalls, response.ToolCalls...)

		outputs := make([]ToolOutput, 0, len(response.ToolCalls))
		for _, call := range response.ToolCalls {
			output, err := l.executor.Execute(ctx, call)
			if err != nil {
				return nil, fmt.Errorf("tool %s (%s) failed: %w", call.FunctionName, call.ID, err)
			}
			outputs = append(outputs, ToolOutput{Call: call, Output: output})
		}

		next, err := cont.Continue(ctx, outputs)
		if err != nil {
			return nil, fmt.Errorf("continuation after tool outputs failed: %w", err)
		}
		result.Responses = append(result.Responses, next)
		response = next
	}

	if response.HasToolCalls() {
		// Keep the unresolved calls visible to the caller.
		result.ToolCalls = append(result.ToolCalls, response.ToolCalls...)
		log.Printf("WARN: tool resolution stopped after %d iterations with %d call(s) unresolved",
			l.maxIterations, len(response.ToolCalls))
	}

	result.Final = response
	result.Usage = usage.Aggregate(result.Responses)
	return result, nil
}
