package provider

import (
	"context"
	"fmt"

	"github.com/promptbench/engine/internal/domain"
	"github.com/promptbench/engine/internal/provider/assistants"
	"github.com/promptbench/engine/internal/provider/normalize"
	"github.com/promptbench/engine/internal/resolver"
)

// threadRunAdapter drives the asynchronous thread/run protocol: create or
// reuse the thread, append the message, start a run and poll it. A run paused
// on requires_action feeds the tool resolution loop via submit_tool_outputs.
type threadRunAdapter struct {
	client       *assistants.Client
	assistantID  string
	model        string
	systemPrompt string
	loop         *resolver.Loop
	poll         pollSettings
}

func newThreadRun(client *assistants.Client, params domain.ExecutionParams, loop *resolver.Loop, poll pollSettings) *threadRunAdapter {
	return &threadRunAdapter{
		client:       client,
		assistantID:  params.AssistantID,
		model:        params.Model,
		systemPrompt: params.SystemPrompt,
		loop:         loop,
		poll:         poll,
	}
}

var _ Adapter = (*threadRunAdapter)(nil)

func (a *threadRunAdapter) RunTurn(ctx context.Context, cc *ContinuationContext, userMessage string) (*resolver.Result, *ContinuationContext, error) {
	if cc == nil {
		cc = &ContinuationContext{}
	}

	threadID := cc.ThreadID
	if threadID == "" {
		id, err := a.client.CreateThread(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create thread: %w", err)
		}
		threadID = id
	}

	if err := a.client.AddMessage(ctx, threadID, "user", userMessage); err != nil {
		return nil, nil, fmt.Errorf("failed to add message: %w", err)
	}

	run, err := a.client.CreateRun(ctx, threadID, &assistants.RunRequest{
		AssistantID:  a.assistantID,
		Model:        a.model,
		Instructions: a.systemPrompt,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create run: %w", err)
	}
	runID, _ := run["id"].(string)
	if runID == "" {
		return nil, nil, fmt.Errorf("run creation returned no id")
	}

	initial, err := a.settle(ctx, threadID, runID)
	if err != nil {
		return nil, nil, err
	}

	cont := &threadRunContinuer{adapter: a, threadID: threadID, runID: runID}
	result, err := a.loop.Resolve(ctx, initial, cont)
	if err != nil {
		return nil, nil, err
	}

	next := &ContinuationContext{ThreadID: threadID, LastRunID: runID}
	return result, next, nil
}

// settle polls the run to completed or requires_action, then assembles the
// composite payload for the normalizer. Transcript and run steps are only
// fetched for a completed run; a paused run carries its pending calls itself.
func (a *threadRunAdapter) settle(ctx context.Context, threadID, runID string) (*domain.CanonicalResponse, error) {
	run, err := a.client.PollRun(ctx, threadID, runID, a.poll.interval, a.poll.timeout)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{"run": run}
	if status, _ := run["status"].(string); status == assistants.RunStatusCompleted {
		messages, err := a.client.ListMessages(ctx, threadID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch transcript: %w", err)
		}
		steps, err := a.client.ListRunSteps(ctx, threadID, runID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch run steps: %w", err)
		}
		payload["messages"] = latestAssistantMessages(messages)
		payload["run_steps"] = steps
	}

	resp, err := normalize.ThreadRun(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize run: %w", err)
	}
	return resp, nil
}

// latestAssistantMessages keeps the newest contiguous assistant block so a
// turn's text does not re-include earlier turns (the transcript is newest
// first).
func latestAssistantMessages(messages []interface{}) []interface{} {
	var block []interface{}
	for _, raw := range messages {
		m, _ := raw.(map[string]interface{})
		if m == nil {
			continue
		}
		if role, _ := m["role"].(string); role != "assistant" {
			break
		}
		// Prepend to restore chronological order within the block.
		block = append([]interface{}{raw}, block...)
	}
	return block
}

type threadRunContinuer struct {
	adapter  *threadRunAdapter
	threadID string
	runID    string
}

func (c *threadRunContinuer) Continue(ctx context.Context, outputs []resolver.ToolOutput) (*domain.CanonicalResponse, error) {
	toolOutputs := make([]assistants.ToolOutput, 0, len(outputs))
	for _, out := range outputs {
		toolOutputs = append(toolOutputs, assistants.ToolOutput{
			ToolCallID: out.Call.ID,
			Output:     out.Output,
		})
	}

	if _, err := c.adapter.client.SubmitToolOutputs(ctx, c.threadID, c.runID, toolOutputs); err != nil {
		return nil, fmt.Errorf("failed to submit tool outputs: %w", err)
	}
	return c.adapter.settle(ctx, c.threadID, c.runID)
}
