package normalize

import (
	"encoding/json"
	"testing"

	"github.com/promptbench/engine/internal/domain"
)

func decode(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("bad test payload: %v", err)
	}
	return m
}

func TestStatelessFullPayload(t *testing.T) {
	payload := decode(t, `{
		"id": "chatcmpl-1",
		"model": "gpt-4o-mini",
		"choices": [{
			"index": 0,
			"message": {
				"role": "assistant",
				"content": "Looking that up.",
				"tool_calls": [{
					"id": "call_abc",
					"type": "function",
					"function": {"name": "get_weather", "arguments": "{\"city\":\"Paris\"}"}
				}]
			},
			"finish_reason": "tool_calls"
		}],
		"usage": {"prompt_tokens": 11, "completion_tokens": 7, "total_tokens": 18}
	}`)

	resp, err := Stateless(payload)
	if err != nil {
		t.Fatalf("Stateless failed: %v", err)
	}
	if resp.Text != "Looking that up." {
		t.Fatalf("unexpected text: %q", resp.Text)
	}
	if resp.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model: %q", resp.Model)
	}
	if resp.Usage != (domain.Usage{PromptTokens: 11, CompletionTokens: 7, TotalTokens: 18}) {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	call := resp.ToolCalls[0]
	if call.ID != "call_abc" || call.FunctionName != "get_weather" {
		t.Fatalf("unexpected tool call: %+v", call)
	}
	if call.Arguments["city"] != "Paris" {
		t.Fatalf("arguments not parsed: %+v", call.Arguments)
	}
	if resp.Raw == nil {
		t.Fatalf("raw payload not preserved")
	}
}

func TestStatelessMissingOptionalFields(t *testing.T) {
	resp, err := Stateless(map[string]interface{}{})
	if err != nil {
		t.Fatalf("Stateless failed on empty map: %v", err)
	}
	if resp.Text != "" {
		t.Fatalf("expected empty text floor, got %q", resp.Text)
	}
	if resp.ToolCalls == nil || len(resp.ToolCalls) != 0 {
		t.Fatalf("expected empty tool call floor, got %+v", resp.ToolCalls)
	}
	if !resp.Usage.IsZero() {
		t.Fatalf("expected zero usage, got %+v", resp.Usage)
	}
}

func TestStatelessMalformedPayload(t *testing.T) {
	if _, err := Stateless("not an object"); err == nil {
		t.Fatalf("expected error for non-map payload")
	}
	if _, err := Stateless(nil); err == nil {
		t.Fatalf("expected error for nil payload")
	}
}

func TestStatelessInvalidArgumentsDegradeToEmptyMap(t *testing.T) {
	payload := decode(t, `{
		"choices": [{
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{
					"id": "call_1",
					"function": {"name": "get_weather", "arguments": "{invalid json"}
				}]
			}
		}]
	}`)

	resp, err := Stateless(payload)
	if err != nil {
		t.Fatalf("Stateless failed: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	if len(resp.ToolCalls[0].Arguments) != 0 {
		t.Fatalf("expected empty arguments, got %+v", resp.ToolCalls[0].Arguments)
	}
	// The raw encoding is still kept for replay.
	if resp.ToolCalls[0].RawArguments != "{invalid json" {
		t.Fatalf("raw arguments not preserved: %q", resp.ToolCalls[0].RawArguments)
	}
}

func TestContinuationOutputItems(t *testing.T) {
	payload := decode(t, `{
		"id": "resp_123",
		"model": "gpt-4o",
		"output": [
			{"type": "web_search_call", "id": "ws_1", "status": "completed", "action": {"type": "search", "query": "florence"}},
			{"type": "message", "role": "assistant", "content": [
				{"type": "output_text", "text": "First block."},
				{"type": "output_text", "text": "Second block."}
			]},
			{"type": "function_call", "id": "fc_1", "call_id": "call_xyz", "name": "get_weather", "arguments": "{\"city\":\"Rome\"}"}
		],
		"usage": {"input_tokens": 20, "output_tokens": 9, "total_tokens": 29}
	}`)

	resp, err := Continuation(payload)
	if err != nil {
		t.Fatalf("Continuation failed: %v", err)
	}
	if resp.Text != "First block.\nSecond block." {
		t.Fatalf("text blocks not joined: %q", resp.Text)
	}
	if resp.Usage != (domain.Usage{PromptTokens: 20, CompletionTokens: 9, TotalTokens: 29}) {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].ID != "call_xyz" {
		t.Fatalf("call_id not preferred for correlation: %+v", resp.ToolCalls)
	}
	if len(resp.WebSearchResults) != 1 {
		t.Fatalf("web search call not captured: %+v", resp.WebSearchResults)
	}
	if resp.ProviderMetadata["response_id"] != "resp_123" {
		t.Fatalf("response id missing: %+v", resp.ProviderMetadata)
	}
}

func TestContinuationTopLevelTextFallback(t *testing.T) {
	resp, err := Continuation(map[string]interface{}{"output_text": "fallback text"})
	if err != nil {
		t.Fatalf("Continuation failed: %v", err)
	}
	if resp.Text != "fallback text" {
		t.Fatalf("fallback not used: %q", resp.Text)
	}
}

func TestThreadRunRequiresAction(t *testing.T) {
	payload := decode(t, `{
		"run": {
			"id": "run_1",
			"thread_id": "thread_1",
			"model": "gpt-4o",
			"status": "requires_action",
			"required_action": {
				"type": "submit_tool_outputs",
				"submit_tool_outputs": {
					"tool_calls": [{
						"id": "call_9",
						"type": "function",
						"function": {"name": "get_weather", "arguments": "{\"city\":\"Oslo\"}"}
					}]
				}
			}
		}
	}`)

	resp, err := ThreadRun(payload)
	if err != nil {
		t.Fatalf("ThreadRun failed: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].ID != "call_9" {
		t.Fatalf("pending tool calls not extracted: %+v", resp.ToolCalls)
	}
	if resp.ProviderMetadata["thread_id"] != "thread_1" || resp.ProviderMetadata["run_id"] != "run_1" {
		t.Fatalf("continuation identifiers missing: %+v", resp.ProviderMetadata)
	}
}

func TestThreadRunCompletedTranscript(t *testing.T) {
	payload := decode(t, `{
		"run": {
			"id": "run_2",
			"thread_id": "thread_1",
			"model": "gpt-4o",
			"status": "completed",
			"usage": {"prompt_tokens": 40, "completion_tokens": 12, "total_tokens": 52}
		},
		"messages": [
			{"role": "assistant", "content": [{"type": "text", "text": {"value": "Here is the answer."}}]},
			{"role": "user", "content": [{"type": "text", "text": {"value": "Question?"}}]}
		],
		"run_steps": [
			{"type": "tool_calls", "step_details": {"type": "tool_calls", "tool_calls": [
				{"type": "file_search", "id": "fs_1", "file_search": {"results": [{"file_id": "file_1"}]}}
			]}}
		]
	}`)

	resp, err := ThreadRun(payload)
	if err != nil {
		t.Fatalf("ThreadRun failed: %v", err)
	}
	if resp.Text != "Here is the answer." {
		t.Fatalf("assistant transcript not extracted: %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 52 {
		t.Fatalf("run usage not extracted: %+v", resp.Usage)
	}
	if len(resp.FileSearchResults) != 1 {
		t.Fatalf("file search evidence not recovered from run steps: %+v", resp.FileSearchResults)
	}
	if len(resp.ToolCalls) != 0 {
		t.Fatalf("completed run should have no pending calls: %+v", resp.ToolCalls)
	}
}

func TestDecodeToolCallFlatShape(t *testing.T) {
	call, ok := decodeToolCall(map[string]interface{}{
		"id":            "call_flat",
		"function_name": "send_email",
		"arguments":     map[string]interface{}{"to": "a@b.c"},
	})
	if !ok {
		t.Fatalf("flat shape not decoded")
	}
	if call.ID != "call_flat" || call.FunctionName != "send_email" || call.Arguments["to"] != "a@b.c" {
		t.Fatalf("unexpected call: %+v", call)
	}
}

func TestForProtocol(t *testing.T) {
	for _, p := range []domain.Protocol{domain.ProtocolStateless, domain.ProtocolContinuation, domain.ProtocolThreadRun} {
		if _, err := ForProtocol(p); err != nil {
			t.Fatalf("no normalizer for %s: %v", p, err)
		}
	}
	if _, err := ForProtocol(domain.Protocol("bogus")); err == nil {
		t.Fatalf("expected error for unknown protocol")
	}
}
