// Package engine owns the conversation turn loop: it selects each turn's
// user message, drives the provider adapter, and assembles the final result.
package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/promptbench/engine/internal/config"
	"github.com/promptbench/engine/internal/domain"
	"github.com/promptbench/engine/internal/policy"
	"github.com/promptbench/engine/internal/provider"
	"github.com/promptbench/engine/internal/provider/openai"
	"github.com/promptbench/engine/internal/resolver"
	"github.com/promptbench/engine/internal/simulator"
	"github.com/promptbench/engine/internal/store"
	"github.com/promptbench/engine/internal/toolexec"
)

// Orchestrator runs one conversation execution. One instance per execution;
// it holds no state shared across executions.
type Orchestrator struct {
	adapter  provider.Adapter
	sim      simulator.Simulator
	maxTurns int
}

func NewOrchestrator(adapter provider.Adapter, sim simulator.Simulator, maxTurns int) *Orchestrator {
	if maxTurns < 1 {
		maxTurns = 1
	}
	return &Orchestrator{adapter: adapter, sim: sim, maxTurns: maxTurns}
}

// Execute drives the turn loop to a terminal state. It always returns a
// ConversationResult, even on error; the error return mirrors
// result.Status == StatusError for callers that prefer it.
func (o *Orchestrator) Execute(ctx context.Context, params domain.ExecutionParams) (*domain.ConversationResult, error) {
	result := &domain.ConversationResult{
		Messages: []domain.Message{},
		Status:   domain.StatusCompleted,
	}

	if params.FirstUserMessage == "" {
		err := fmt.Errorf("execution %s: first user message is required", params.ExecutionID)
		result.Status = domain.StatusError
		result.Metadata = map[string]interface{}{"error": err.Error()}
		return result, err
	}

	var cc *provider.ContinuationContext
	naturalEnd := false

	for turn := 1; turn <= o.maxTurns; turn++ {
		userMessage := params.FirstUserMessage
		if turn > 1 {
			next, ok, err := o.sim.NextUserMessage(ctx, params.PersonaPrompt, result.Messages, turn)
			if err != nil {
				result.Status = domain.StatusError
				result.Metadata = map[string]interface{}{"error": err.Error()}
				result.ProviderMetadata = cc.Metadata()
				return result, err
			}
			if !ok {
				naturalEnd = true
				break
			}
			userMessage = next
		}

		result.Messages = append(result.Messages, domain.Message{
			Role:    domain.RoleUser,
			Content: userMessage,
			Turn:    turn,
		})

		turnResult, nextCC, err := o.adapter.RunTurn(ctx, cc, userMessage)
		if err != nil {
			log.Printf("ERROR: execution %s turn %d failed: %v", params.ExecutionID, turn, err)
			result.Status = domain.StatusError
			result.Metadata = map[string]interface{}{"error": err.Error()}
			result.ProviderMetadata = cc.Metadata()
			return result, err
		}
		cc = nextCC

		result.Messages = append(result.Messages, assistantMessage(turn, turnResult))
		result.TotalTurns = turn
	}

	if o.maxTurns > 1 && !naturalEnd {
		result.Status = domain.StatusMaxTurnsReached
	}
	result.ProviderMetadata = cc.Metadata()
	return result, nil
}

// assistantMessage folds one turn's resolver result into a conversation
// message: the final text, usage aggregated across the turn's sub-calls,
// every tool call seen, and search evidence merged from every sub-response.
func assistantMessage(turn int, tr *resolver.Result) domain.Message {
	msg := domain.Message{
		Role:             domain.RoleAssistant,
		Content:          tr.Final.Text,
		Turn:             turn,
		ToolCalls:        tr.ToolCalls,
		ProviderMetadata: tr.Final.ProviderMetadata,
	}
	usage := tr.Usage
	msg.Usage = &usage

	for _, resp := range tr.Responses {
		if resp == nil {
			continue
		}
		msg.FileSearchResults = append(msg.FileSearchResults, resp.FileSearchResults...)
		msg.WebSearchResults = append(msg.WebSearchResults, resp.WebSearchResults...)
		msg.CodeInterpreterResults = append(msg.CodeInterpreterResults, resp.CodeInterpreterResults...)
	}
	return msg
}

// Runner wires an execution's collaborators from configuration and performs
// the single persistence write. The HTTP surface and the scenario runner
// both go through it.
type Runner struct {
	cfg     *config.Config
	store   store.Store
	handler toolexec.Handler
	policy  *policy.Engine
}

// NewRunner creates a runner. handler and policyEngine back live tool
// execution and may be nil in simulated mode.
func NewRunner(cfg *config.Config, st store.Store, handler toolexec.Handler, policyEngine *policy.Engine) *Runner {
	return &Runner{cfg: cfg, store: st, handler: handler, policy: policyEngine}
}

// Execute runs one conversation end to end and persists the result exactly
// once, whatever the terminal status.
func (r *Runner) Execute(ctx context.Context, params domain.ExecutionParams) (*domain.ConversationResult, error) {
	if params.ExecutionID == "" {
		params.ExecutionID = "exec_" + uuid.NewString()[:8]
	}
	if params.Model == "" {
		params.Model = r.cfg.DefaultModel
	}
	if params.MaxTurns < 1 {
		params.MaxTurns = 1
	}

	var executor toolexec.Executor
	if r.cfg.SimulatedMode {
		executor = toolexec.NewSimulated(params.Fixtures)
	} else {
		executor = toolexec.NewLive(r.handler, r.policy)
	}
	loop := resolver.New(executor, r.cfg.MaxToolIterations)

	adapter, err := provider.New(r.cfg, params, loop)
	if err != nil {
		return nil, fmt.Errorf("execution %s: %w", params.ExecutionID, err)
	}

	var sim simulator.Simulator
	if r.cfg.SimulatedMode {
		sim = simulator.NewFixed()
	} else {
		client := openai.NewClient(r.cfg.ProviderBaseURL, r.cfg.ProviderAPIKey, r.cfg.ProviderTimeout)
		sim = simulator.NewPersona(client, r.cfg.SimulatorModel)
	}

	orch := NewOrchestrator(adapter, sim, params.MaxTurns)
	result, execErr := orch.Execute(ctx, params)

	if result.Metadata == nil {
		result.Metadata = map[string]interface{}{}
	}
	result.Metadata["execution_id"] = params.ExecutionID
	result.Metadata["protocol"] = string(params.Protocol)

	if err := r.store.SaveResult(ctx, params.ExecutionID, result); err != nil {
		log.Printf("ERROR: execution %s: failed to persist result: %v", params.ExecutionID, err)
		if execErr == nil {
			execErr = err
		}
	}
	return result, execErr
}
