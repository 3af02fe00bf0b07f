//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package transfer provides the transfer_to_agent tool. Calling it raises the
// handoff signal: after the invoking capability returns, the executor hands
// the leaf's output to the named target node. The target must be one of the
// leaf's declared handoffs; the executor rejects anything else.
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-workflow-go/state"
	"trpc.group/trpc-go/trpc-workflow-go/tool"
)

// ToolName is the name of the transfer_to_agent tool.
const ToolName = "transfer_to_agent"

// Target describes one node the model may transfer to.
type Target struct {
	// Name is the node name, as declared in the leaf's handoffs.
	Name string
	// Description tells the model what the target does.
	Description string
}

// Request names the node control should transfer to.
type Request struct {
	AgentName string `json:"agent_name"`
}

// Response confirms the transfer was requested.
type Response struct {
	Success     bool   `json:"success"`
	TargetAgent string `json:"target_agent"`
	Message     string `json:"message"`
}

// Tool implements the transfer_to_agent functionality.
type Tool struct {
	targets []Target
}

// New creates a transfer tool offering the given targets.
func New(targets ...Target) *Tool {
	return &Tool{targets: targets}
}

// Declaration implements the tool.Tool interface. The schema lists every
// target by name so the model only sees real destinations.
func (t *Tool) Declaration() *tool.Declaration {
	lines := make([]string, 0, len(t.targets))
	for _, target := range t.targets {
		lines = append(lines, fmt.Sprintf("- %s: %s", target.Name, target.Description))
	}

	return &tool.Declaration{
		Name: ToolName,
		Description: "Transfer control to another node once your part is done. " +
			"Your final answer becomes the target's input.",
		InputSchema: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"agent_name": {
					Type:        "string",
					Description: fmt.Sprintf("Name of the node to transfer to. Available:\n%s", strings.Join(lines, "\n")),
				},
			},
			Required: []string{"agent_name"},
		},
	}
}

// Call raises the handoff signal for the named target.
func (t *Tool) Call(ctx context.Context, args json.RawMessage, _ state.View) (*tool.Result, error) {
	var req Request
	if len(args) > 0 {
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, fmt.Errorf("decode %s arguments: %w", ToolName, err)
		}
	}
	if req.AgentName == "" {
		return nil, fmt.Errorf("%s: agent_name is required", ToolName)
	}
	if !t.knows(req.AgentName) {
		return nil, fmt.Errorf("%s: unknown target %q", ToolName, req.AgentName)
	}

	content, err := json.Marshal(Response{
		Success:     true,
		TargetAgent: req.AgentName,
		Message:     fmt.Sprintf("transferring to %s", req.AgentName),
	})
	if err != nil {
		return nil, err
	}
	return &tool.Result{Content: content, TransferTo: req.AgentName}, nil
}

func (t *Tool) knows(name string) bool {
	for _, target := range t.targets {
		if target.Name == name {
			return true
		}
	}
	return false
}
