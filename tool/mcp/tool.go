//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-workflow-go/state"
	"trpc.group/trpc-go/trpc-workflow-go/tool"

	mcp "trpc.group/trpc-go/trpc-mcp-go"
)

// remoteTool adapts one server-side MCP tool to the Tool interface.
type remoteTool struct {
	ref     *mcp.Tool
	schema  *tool.Schema
	session *session
}

func newRemoteTool(t mcp.Tool, session *session) *remoteTool {
	rt := &remoteTool{
		ref:     &t,
		session: session,
	}
	if t.InputSchema != nil {
		rt.schema = convertSchema(t.InputSchema)
	}
	return rt
}

// Declaration implements tool.Tool.
func (t *remoteTool) Declaration() *tool.Declaration {
	return &tool.Declaration{
		Name:        t.ref.Name,
		Description: t.ref.Description,
		InputSchema: t.schema,
	}
}

// Call forwards the arguments to the MCP server. The state view is not
// consulted; remote tools see only their arguments.
func (t *remoteTool) Call(ctx context.Context, args json.RawMessage, _ state.View) (*tool.Result, error) {
	arguments := make(map[string]any)
	if len(args) > 0 {
		if err := json.Unmarshal(args, &arguments); err != nil {
			return nil, fmt.Errorf("decode %q arguments: %w", t.ref.Name, err)
		}
	}

	content, err := t.session.callTool(ctx, t.ref.Name, arguments)
	if err != nil {
		return nil, err
	}
	return &tool.Result{Content: contentPayload(content)}, nil
}

// contentPayload flattens MCP content blocks into a single JSON payload. A
// lone text block that is itself valid JSON passes through untouched, so
// structured tool output survives the round trip.
func contentPayload(contents []mcp.Content) json.RawMessage {
	var texts []string
	for _, c := range contents {
		if tc, ok := c.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	if len(texts) == 0 {
		if len(contents) > 0 {
			if raw, err := json.Marshal(contents); err == nil {
				return raw
			}
		}
		return json.RawMessage(`""`)
	}
	if len(texts) == 1 && json.Valid([]byte(texts[0])) {
		return json.RawMessage(texts[0])
	}
	raw, _ := json.Marshal(strings.Join(texts, "\n"))
	return raw
}

// convertSchema maps the server-declared JSON schema onto the local schema
// type via a JSON round trip. Anything that does not survive the trip
// degrades to a plain object schema.
func convertSchema(mcpSchema any) *tool.Schema {
	raw, err := json.Marshal(mcpSchema)
	if err != nil {
		return &tool.Schema{Type: "object"}
	}
	schema := &tool.Schema{}
	if err := json.Unmarshal(raw, schema); err != nil {
		return &tool.Schema{Type: "object"}
	}
	return schema
}
