//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package mcp exposes the tools of an MCP server as workflow tools. The
// toolset connects lazily, mirrors the server's tool inventory and forwards
// calls over the configured transport.
package mcp

import (
	"context"
	"sync"

	"trpc.group/trpc-go/trpc-workflow-go/log"
	"trpc.group/trpc-go/trpc-workflow-go/tool"
)

// ToolSet mirrors the tool inventory of one MCP server.
type ToolSet struct {
	config  toolSetConfig
	session *session

	mu    sync.RWMutex
	tools []tool.Tool
}

// NewToolSet builds a toolset for the given connection. No network activity
// happens until Tools or a tool call needs the session.
func NewToolSet(connection ConnectionConfig, opts ...Option) *ToolSet {
	cfg := toolSetConfig{connection: connection}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.connection.ClientInfo.Name == "" {
		cfg.connection.ClientInfo = defaultClientInfo
	}
	return &ToolSet{
		config:  cfg,
		session: newSession(cfg.connection, cfg.clientOptions, cfg.reconnectAttempts),
	}
}

// Tools refreshes the inventory from the server and returns it. When the
// refresh fails the previously fetched tools are returned, so a transient
// outage does not empty a composed workflow's registry.
func (ts *ToolSet) Tools(ctx context.Context) []tool.Tool {
	if err := ts.refresh(ctx); err != nil {
		log.Errorf("refresh MCP tools: %v", err)
	}

	ts.mu.RLock()
	defer ts.mu.RUnlock()
	tools := make([]tool.Tool, len(ts.tools))
	copy(tools, ts.tools)
	return tools
}

// Close shuts down the server connection.
func (ts *ToolSet) Close() error {
	return ts.session.close()
}

// refresh connects if necessary, lists the server's tools and swaps in the
// filtered inventory.
func (ts *ToolSet) refresh(ctx context.Context) error {
	if !ts.session.ready() {
		if err := ts.session.connect(ctx); err != nil {
			return err
		}
	}

	remote, err := ts.session.listTools(ctx)
	if err != nil {
		return err
	}

	tools := make([]tool.Tool, 0, len(remote))
	for _, rt := range remote {
		tools = append(tools, newRemoteTool(rt, ts.session))
	}
	tools = ts.applyFilter(ctx, tools)

	ts.mu.Lock()
	ts.tools = tools
	ts.mu.Unlock()
	return nil
}

func (ts *ToolSet) applyFilter(ctx context.Context, tools []tool.Tool) []tool.Tool {
	if ts.config.filter == nil {
		return tools
	}

	infos := make([]Info, len(tools))
	for i, t := range tools {
		decl := t.Declaration()
		infos[i] = Info{Name: decl.Name, Description: decl.Description}
	}
	kept := make(map[string]bool)
	for _, info := range ts.config.filter.Filter(ctx, infos) {
		kept[info.Name] = true
	}

	filtered := make([]tool.Tool, 0, len(tools))
	for _, t := range tools {
		if kept[t.Declaration().Name] {
			filtered = append(filtered, t)
		}
	}
	return filtered
}
