package assistants

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientThreadLifecycle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/threads":
			fmt.Fprint(w, `{"id":"thread_1","object":"thread"}`)
		case r.Method == http.MethodPost && r.URL.Path == "/v1/threads/thread_1/messages":
			var body map[string]interface{}
			json.NewDecoder(r.Body).Decode(&body)
			if body["role"] != "user" {
				t.Fatalf("unexpected message body: %+v", body)
			}
			fmt.Fprint(w, `{"id":"msg_1"}`)
		case r.Method == http.MethodPost && r.URL.Path == "/v1/threads/thread_1/runs":
			fmt.Fprint(w, `{"id":"run_1","thread_id":"thread_1","status":"queued"}`)
		default:
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk-test", time.Second)
	ctx := context.Background()

	threadID, err := client.CreateThread(ctx)
	if err != nil {
		t.Fatalf("CreateThread failed: %v", err)
	}
	if threadID != "thread_1" {
		t.Fatalf("unexpected thread id: %s", threadID)
	}
	if err := client.AddMessage(ctx, threadID, "user", "hello"); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	run, err := client.CreateRun(ctx, threadID, &RunRequest{AssistantID: "asst_1"})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if run["id"] != "run_1" {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestPollRunReachesCompleted(t *testing.T) {
	var polls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt64(&polls, 1) < 3 {
			fmt.Fprint(w, `{"id":"run_1","status":"in_progress"}`)
			return
		}
		fmt.Fprint(w, `{"id":"run_1","status":"completed"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	run, err := client.PollRun(context.Background(), "thread_1", "run_1", time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("PollRun failed: %v", err)
	}
	if run["status"] != "completed" {
		t.Fatalf("unexpected run: %+v", run)
	}
	if atomic.LoadInt64(&polls) < 3 {
		t.Fatalf("expected repeated polls, got %d", polls)
	}
}

func TestPollRunTerminalFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"run_1","status":"expired"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.PollRun(context.Background(), "thread_1", "run_1", time.Millisecond, time.Second)
	if err == nil {
		t.Fatalf("expected terminal failure error")
	}
}

func TestPollRunTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"run_1","status":"in_progress"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.PollRun(context.Background(), "thread_1", "run_1", time.Millisecond, 20*time.Millisecond)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestSubmitToolOutputs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/threads/thread_1/runs/run_1/submit_tool_outputs" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		outputs, _ := body["tool_outputs"].([]interface{})
		if len(outputs) != 1 {
			t.Fatalf("unexpected outputs: %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"run_1","status":"queued"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.SubmitToolOutputs(context.Background(), "thread_1", "run_1", []ToolOutput{
		{ToolCallID: "call_1", Output: `{"ok":true}`},
	})
	if err != nil {
		t.Fatalf("SubmitToolOutputs failed: %v", err)
	}
}
