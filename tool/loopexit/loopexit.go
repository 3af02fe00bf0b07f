//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package loopexit provides the reserved signal-loop-exit tool. Calling it
// raises the typed loop-exit signal the nearest enclosing loop consumes; it
// never touches session state.
package loopexit

import (
	"context"
	"encoding/json"
	"fmt"

	"trpc.group/trpc-go/trpc-workflow-go/state"
	"trpc.group/trpc-go/trpc-workflow-go/tool"
)

// Request carries the model's optional explanation for stopping.
type Request struct {
	// Reason explains why the loop should stop (optional).
	Reason string `json:"reason,omitempty" description:"Why the loop's work is complete"`
}

// Response confirms the signal was raised.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Tool implements the signal-loop-exit functionality.
type Tool struct{}

// New creates the signal-loop-exit tool.
func New() *Tool {
	return &Tool{}
}

// Declaration implements the tool.Tool interface.
func (t *Tool) Declaration() *tool.Declaration {
	return &tool.Declaration{
		Name: tool.LoopExitName,
		Description: "Signal that the current loop's work is complete and iteration should stop. " +
			"Call this only when the loop's goal has been reached.",
		InputSchema: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"reason": {
					Type:        "string",
					Description: "Why the loop's work is complete",
				},
			},
		},
	}
}

// Call raises the loop-exit signal.
func (t *Tool) Call(ctx context.Context, args json.RawMessage, _ state.View) (*tool.Result, error) {
	var req Request
	if len(args) > 0 {
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, fmt.Errorf("decode %s arguments: %w", tool.LoopExitName, err)
		}
	}

	msg := "loop exit requested"
	if req.Reason != "" {
		msg = fmt.Sprintf("loop exit requested: %s", req.Reason)
	}

	content, err := json.Marshal(Response{Success: true, Message: msg})
	if err != nil {
		return nil, err
	}
	return &tool.Result{Content: content, ExitLoop: true}, nil
}
