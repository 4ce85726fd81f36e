package provider

import (
	"context"
	"fmt"

	"github.com/promptbench/engine/internal/domain"
	"github.com/promptbench/engine/internal/provider/normalize"
	"github.com/promptbench/engine/internal/provider/openai"
	"github.com/promptbench/engine/internal/resolver"
)

// statelessAdapter rebuilds the full message array (system prompt + all prior
// turns + new user message) on every call. The provider holds no state.
type statelessAdapter struct {
	client       *openai.Client
	model        string
	systemPrompt string
	tools        []openai.Tool
	loop         *resolver.Loop
}

func newStateless(client *openai.Client, model string, params domain.ExecutionParams, loop *resolver.Loop) *statelessAdapter {
	tools := make([]openai.Tool, 0, len(params.Tools))
	for _, def := range params.Tools {
		tools = append(tools, openai.Tool{
			Type: "function",
			Function: openai.ToolFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return &statelessAdapter{
		client:       client,
		model:        model,
		systemPrompt: params.SystemPrompt,
		tools:        tools,
		loop:         loop,
	}
}

var _ Adapter = (*statelessAdapter)(nil)

func (a *statelessAdapter) RunTurn(ctx context.Context, cc *ContinuationContext, userMessage string) (*resolver.Result, *ContinuationContext, error) {
	if cc == nil {
		cc = &ContinuationContext{}
	}

	base := make([]openai.ChatMessage, 0, len(cc.History)+2)
	if len(cc.History) == 0 && a.systemPrompt != "" {
		base = append(base, openai.ChatMessage{Role: "system", Content: a.systemPrompt})
	}
	base = append(base, cc.History...)
	base = append(base, openai.ChatMessage{Role: "user", Content: userMessage})

	initial, err := a.call(ctx, base)
	if err != nil {
		return nil, nil, err
	}

	cont := &statelessContinuer{adapter: a, working: base}
	result, err := a.loop.Resolve(ctx, initial, cont)
	if err != nil {
		return nil, nil, err
	}

	next := &ContinuationContext{
		History: append(append([]openai.ChatMessage{}, base...), openai.ChatMessage{
			Role:    "assistant",
			Content: result.Final.Text,
		}),
	}
	return result, next, nil
}

func (a *statelessAdapter) call(ctx context.Context, messages []openai.ChatMessage) (*domain.CanonicalResponse, error) {
	raw, err := a.client.CreateChatCompletion(ctx, &openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
		Tools:    a.tools,
	})
	if err != nil {
		return nil, err
	}
	resp, err := normalize.Stateless(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize chat completion: %w", err)
	}
	return resp, nil
}

// statelessContinuer replays tool outputs as an assistant tool_calls message
// followed by one tool message per output, in original order, then re-sends
// the whole array.
type statelessContinuer struct {
	adapter *statelessAdapter
	working []openai.ChatMessage
}

func (c *statelessContinuer) Continue(ctx context.Context, outputs []resolver.ToolOutput) (*domain.CanonicalResponse, error) {
	assistant := openai.ChatMessage{Role: "assistant"}
	for _, out := range outputs {
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ToolCall{
			ID:   out.Call.ID,
			Type: "function",
			Function: openai.ToolCallFunction{
				Name:      out.Call.FunctionName,
				Arguments: out.Call.RawArguments,
			},
		})
	}
	c.working = append(c.working, assistant)
	for _, out := range outputs {
		c.working = append(c.working, openai.ChatMessage{
			Role:       "tool",
			Content:    out.Output,
			ToolCallID: out.Call.ID,
		})
	}

	return c.adapter.call(ctx, c.working)
}
