// Package provider holds the per-protocol adapters that turn one user
// message into one normalized assistant response, resolving tool calls along
// the way.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/promptbench/engine/internal/config"
	"github.com/promptbench/engine/internal/domain"
	"github.com/promptbench/engine/internal/provider/assistants"
	"github.com/promptbench/engine/internal/provider/openai"
	"github.com/promptbench/engine/internal/provider/responses"
	"github.com/promptbench/engine/internal/resolver"
)

// ContinuationContext is the protocol state threaded between turns. It is
// owned by the orchestrator, passed explicitly into each RunTurn call, and
// never read by more than one in-flight call at a time.
type ContinuationContext struct {
	// History is the caller-held message array for the stateless protocol.
	History []openai.ChatMessage

	// PreviousResponseID is the continuation token for the stateful
	// protocol.
	PreviousResponseID string

	// ThreadID and LastRunID identify the thread/run protocol's state.
	ThreadID  string
	LastRunID string
}

// Metadata returns the protocol identifiers worth persisting with a result.
func (c *ContinuationContext) Metadata() map[string]interface{} {
	if c == nil {
		return nil
	}
	m := map[string]interface{}{}
	if c.PreviousResponseID != "" {
		m["previous_response_id"] = c.PreviousResponseID
	}
	if c.ThreadID != "" {
		m["thread_id"] = c.ThreadID
	}
	if c.LastRunID != "" {
		m["run_id"] = c.LastRunID
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// Adapter runs one conversation turn against a provider protocol.
type Adapter interface {
	// RunTurn sends the user message, drives the tool resolution loop to
	// quiescence and returns the turn's resolver result plus the updated
	// continuation context. The input context is not mutated.
	RunTurn(ctx context.Context, cc *ContinuationContext, userMessage string) (*resolver.Result, *ContinuationContext, error)
}

// New selects the adapter for the execution's protocol. Adding a protocol
// means adding a variant here and its adapter file, not branching call sites.
func New(cfg *config.Config, params domain.ExecutionParams, loop *resolver.Loop) (Adapter, error) {
	model := params.Model
	if model == "" {
		model = cfg.DefaultModel
	}

	switch params.Protocol {
	case domain.ProtocolStateless:
		client := openai.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)
		return newStateless(client, model, params, loop), nil
	case domain.ProtocolContinuation:
		client := responses.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)
		return newContinuation(client, model, params, loop), nil
	case domain.ProtocolThreadRun:
		if params.AssistantID == "" {
			return nil, fmt.Errorf("assistant_id is required for the %s protocol", domain.ProtocolThreadRun)
		}
		client := assistants.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)
		return newThreadRun(client, params, loop, pollSettings{
			interval: cfg.RunPollInterval,
			timeout:  cfg.RunPollTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown protocol %q", params.Protocol)
	}
}

// pollSettings bounds the thread/run poller.
type pollSettings struct {
	interval time.Duration
	timeout  time.Duration
}
