//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-workflow-go/capability"
	"trpc.group/trpc-go/trpc-workflow-go/state"
	"trpc.group/trpc-go/trpc-workflow-go/tool"
	"trpc.group/trpc-go/trpc-workflow-go/tool/function"
)

func textCompletion(content string) string {
	return fmt.Sprintf(`{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1,
		"model": "test-model",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": %q}, "finish_reason": "stop"}]
	}`, content)
}

func toolCallCompletion(id, name, args string) string {
	return fmt.Sprintf(`{
		"id": "chatcmpl-2",
		"object": "chat.completion",
		"created": 1,
		"model": "test-model",
		"choices": [{"index": 0, "message": {"role": "assistant", "tool_calls": [
			{"id": %q, "type": "function", "function": {"name": %q, "arguments": %q}}
		]}, "finish_reason": "tool_calls"}]
	}`, id, name, args)
}

// fakeModel serves canned completions in order and records request bodies.
func fakeModel(t *testing.T, responses ...string) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var bodies []map[string]any
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)

		require.Less(t, calls, len(responses), "unexpected extra model call")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, responses[calls])
		calls++
	}))
	t.Cleanup(srv.Close)
	return srv, &bodies
}

func newTestCapability(srv *httptest.Server, opts ...Option) *Capability {
	base := []Option{
		WithAPIKey("test-key"),
		WithBaseURL(srv.URL),
		WithClientOptions(openaiopt.WithMaxRetries(0)),
	}
	return New("test-model", append(base, opts...)...)
}

func TestInvokeReturnsText(t *testing.T) {
	srv, bodies := fakeModel(t, textCompletion("three laws of robotics"))
	cap := newTestCapability(srv, WithInstruction("You explain {topic}."), WithTemperature(0.2))

	st := state.State{}
	require.NoError(t, st.Apply(state.Delta{state.SetString("topic", "robotics")}))

	res, err := cap.Invoke(context.Background(), &capability.Request{
		SessionID: "s1",
		Node:      "writer",
		Input:     "go",
		State:     st.View(),
	})
	require.NoError(t, err)
	require.Equal(t, "three laws of robotics", res.Output)
	require.True(t, res.Delta.IsEmpty())
	require.False(t, res.ExitLoop)

	require.Len(t, *bodies, 1)
	messages := (*bodies)[0]["messages"].([]any)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]any)
	require.Equal(t, "system", system["role"])
	require.Equal(t, "You explain robotics.", system["content"])
	user := messages[1].(map[string]any)
	require.Equal(t, "user", user["role"])
}

func TestInvokeToolLoop(t *testing.T) {
	srv, bodies := fakeModel(t,
		toolCallCompletion("call_1", "add", `{"a":2,"b":3}`),
		textCompletion("the sum is 5"),
	)
	cap := newTestCapability(srv)

	add := function.New(func(ctx context.Context, in struct {
		A int `json:"a"`
		B int `json:"b"`
	}) (map[string]int, error) {
		return map[string]int{"sum": in.A + in.B}, nil
	}, function.WithName("add"), function.WithDescription("adds two integers"))

	reg, err := tool.NewRegistry(add)
	require.NoError(t, err)

	res, err := cap.Invoke(context.Background(), &capability.Request{
		Input: "add 2 and 3",
		State: state.State{}.View(),
		Tools: reg,
	})
	require.NoError(t, err)
	require.Equal(t, "the sum is 5", res.Output)

	require.Len(t, *bodies, 2)

	// First request declares the registry's tools.
	tools := (*bodies)[0]["tools"].([]any)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	require.Equal(t, "add", fn["name"])

	// Second request feeds the tool result back.
	messages := (*bodies)[1]["messages"].([]any)
	last := messages[len(messages)-1].(map[string]any)
	require.Equal(t, "tool", last["role"])
	require.Equal(t, "call_1", last["tool_call_id"])
	require.JSONEq(t, `{"sum":5}`, last["content"].(string))
}

type signalTool struct{}

func (signalTool) Declaration() *tool.Declaration {
	return &tool.Declaration{Name: "finish", Description: "records completion", InputSchema: &tool.Schema{Type: "object"}}
}

func (signalTool) Call(ctx context.Context, args json.RawMessage, view state.View) (*tool.Result, error) {
	return &tool.Result{
		Content:  json.RawMessage(`"done"`),
		Ops:      state.Delta{state.SetString("status", "finished")},
		ExitLoop: true,
	}, nil
}

func TestInvokeCollectsToolOps(t *testing.T) {
	srv, _ := fakeModel(t,
		toolCallCompletion("call_1", "finish", `{}`),
		textCompletion("all wrapped up"),
	)
	cap := newTestCapability(srv)

	reg, err := tool.NewRegistry(signalTool{})
	require.NoError(t, err)

	res, err := cap.Invoke(context.Background(), &capability.Request{
		Input: "finish up",
		State: state.State{}.View(),
		Tools: reg,
	})
	require.NoError(t, err)
	require.Equal(t, "all wrapped up", res.Output)
	require.True(t, res.ExitLoop)
	require.Len(t, res.Delta, 1)
	require.Equal(t, "status", res.Delta[0].Key)
}

func TestInvokeToolRoundBound(t *testing.T) {
	srv, _ := fakeModel(t,
		toolCallCompletion("call_1", "finish", `{}`),
		toolCallCompletion("call_2", "finish", `{}`),
	)
	cap := newTestCapability(srv, WithMaxToolRounds(1))

	reg, err := tool.NewRegistry(signalTool{})
	require.NoError(t, err)

	_, err = cap.Invoke(context.Background(), &capability.Request{
		Input: "loop forever",
		State: state.State{}.View(),
		Tools: reg,
	})
	require.Error(t, err)
	require.False(t, capability.IsTransient(err))
	require.Contains(t, err.Error(), "tool-call loop exceeded")
}

func TestInvokeUnknownToolIsFatal(t *testing.T) {
	srv, _ := fakeModel(t, toolCallCompletion("call_1", "missing", `{}`))
	cap := newTestCapability(srv)

	reg, err := tool.NewRegistry(signalTool{})
	require.NoError(t, err)

	_, err = cap.Invoke(context.Background(), &capability.Request{
		Input: "call something undeclared",
		State: state.State{}.View(),
		Tools: reg,
	})
	require.Error(t, err)
	require.False(t, capability.IsTransient(err))
	require.Contains(t, err.Error(), `tool "missing" is not available`)
}

func TestClassify(t *testing.T) {
	require.True(t, capability.IsTransient(classify(&openai.Error{StatusCode: http.StatusTooManyRequests})))
	require.True(t, capability.IsTransient(classify(&openai.Error{StatusCode: http.StatusBadGateway})))
	require.False(t, capability.IsTransient(classify(&openai.Error{StatusCode: http.StatusBadRequest})))
	require.False(t, capability.IsTransient(classify(&openai.Error{StatusCode: http.StatusUnauthorized})))

	// Transport-level failures are transient; context errors pass through.
	require.True(t, capability.IsTransient(classify(errors.New("connection reset"))))
	require.ErrorIs(t, classify(context.Canceled), context.Canceled)
}
