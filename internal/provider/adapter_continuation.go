package provider

import (
	"context"
	"fmt"
	"log"

	"github.com/promptbench/engine/internal/domain"
	"github.com/promptbench/engine/internal/provider/normalize"
	"github.com/promptbench/engine/internal/provider/responses"
	"github.com/promptbench/engine/internal/resolver"
)

// maxVectorStoreIDs caps the retrieval-store list passed to the provider;
// the wire protocol rejects over-limit lists. Over-supply keeps the first N.
const maxVectorStoreIDs = 2

// continuationAdapter sends only the new input plus the prior continuation
// token; the provider retains conversation history. Tools are resent on every
// call because the protocol does not remember them between calls.
type continuationAdapter struct {
	client       *responses.Client
	model        string
	systemPrompt string
	tools        []responses.Tool
	loop         *resolver.Loop
}

func newContinuation(client *responses.Client, model string, params domain.ExecutionParams, loop *resolver.Loop) *continuationAdapter {
	var tools []responses.Tool
	for _, def := range params.Tools {
		tools = append(tools, responses.Tool{
			Type:        "function",
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}
	if len(params.VectorStoreIDs) > 0 {
		ids := params.VectorStoreIDs
		if len(ids) > maxVectorStoreIDs {
			log.Printf("WARN: %d vector store ids supplied, keeping the first %d", len(ids), maxVectorStoreIDs)
			ids = ids[:maxVectorStoreIDs]
		}
		tools = append(tools, responses.Tool{
			Type:           "file_search",
			VectorStoreIDs: ids,
		})
	}
	return &continuationAdapter{
		client:       client,
		model:        model,
		systemPrompt: params.SystemPrompt,
		tools:        tools,
		loop:         loop,
	}
}

var _ Adapter = (*continuationAdapter)(nil)

func (a *continuationAdapter) RunTurn(ctx context.Context, cc *ContinuationContext, userMessage string) (*resolver.Result, *ContinuationContext, error) {
	if cc == nil {
		cc = &ContinuationContext{}
	}

	req := &responses.Request{
		Model: a.model,
		Input: []map[string]interface{}{responses.UserMessage(userMessage)},
		Tools: a.tools,
	}
	if cc.PreviousResponseID == "" {
		// First call carries the system instructions; the continuation
		// keeps them (and the sampling parameters) server-side.
		req.Instructions = a.systemPrompt
	} else {
		req.PreviousResponseID = cc.PreviousResponseID
	}

	initial, err := a.call(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	cont := &continuationContinuer{adapter: a, lastResponseID: responseID(initial)}
	result, err := a.loop.Resolve(ctx, initial, cont)
	if err != nil {
		return nil, nil, err
	}

	next := &ContinuationContext{PreviousResponseID: cont.lastResponseID}
	return result, next, nil
}

func (a *continuationAdapter) call(ctx context.Context, req *responses.Request) (*domain.CanonicalResponse, error) {
	raw, err := a.client.CreateResponse(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := normalize.Continuation(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize response: %w", err)
	}
	return resp, nil
}

func responseID(resp *domain.CanonicalResponse) string {
	if resp == nil {
		return ""
	}
	id, _ := resp.ProviderMetadata["response_id"].(string)
	return id
}

// continuationContinuer replays outputs as function_call_output items in the
// original call order, chained off the previous response id.
type continuationContinuer struct {
	adapter        *continuationAdapter
	lastResponseID string
}

func (c *continuationContinuer) Continue(ctx context.Context, outputs []resolver.ToolOutput) (*domain.CanonicalResponse, error) {
	input := make([]map[string]interface{}, 0, len(outputs))
	for _, out := range outputs {
		input = append(input, responses.FunctionCallOutput(out.Call.ID, out.Output))
	}

	resp, err := c.adapter.call(ctx, &responses.Request{
		Model:              c.adapter.model,
		Input:              input,
		Tools:              c.adapter.tools,
		PreviousResponseID: c.lastResponseID,
	})
	if err != nil {
		return nil, err
	}
	if id := responseID(resp); id != "" {
		c.lastResponseID = id
	}
	return resp, nil
}
