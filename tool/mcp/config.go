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
	"fmt"
	"time"

	mcp "trpc.group/trpc-go/trpc-mcp-go"
)

// transport identifies how the toolset talks to the MCP server.
type transport string

const (
	transportStdio      transport = "stdio"
	transportSSE        transport = "sse"
	transportStreamable transport = "streamable"
)

// defaultClientInfo is sent during the MCP handshake when the caller does not
// override it.
var defaultClientInfo = mcp.Implementation{
	Name:    "trpc-workflow-go",
	Version: "1.0.0",
}

// ConnectionConfig describes how to reach an MCP server.
type ConnectionConfig struct {
	// Transport selects the wire protocol: "stdio", "sse" or "streamable".
	Transport string `json:"transport"`

	// ServerURL is the endpoint for the sse and streamable transports.
	ServerURL string `json:"server_url,omitempty"`
	// Headers are added to every HTTP request of the sse and streamable
	// transports.
	Headers map[string]string `json:"headers,omitempty"`

	// Command and Args launch the server process for the stdio transport.
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`

	// Timeout bounds individual MCP operations. Zero means no extra bound
	// beyond the caller's context.
	Timeout time.Duration `json:"timeout,omitempty"`

	// ClientInfo identifies this client during the handshake.
	ClientInfo mcp.Implementation `json:"client_info,omitempty"`
}

// validateTransport maps the configured transport string onto the internal
// transport type.
func validateTransport(t string) (transport, error) {
	switch t {
	case "stdio":
		return transportStdio, nil
	case "sse":
		return transportSSE, nil
	case "streamable", "streamable_http":
		return transportStreamable, nil
	default:
		return "", fmt.Errorf("unsupported transport %q, supported: stdio, sse, streamable", t)
	}
}

// toolSetConfig collects the construction options of a ToolSet.
type toolSetConfig struct {
	connection        ConnectionConfig
	filter            Filter
	clientOptions     []mcp.ClientOption
	reconnectAttempts int
}

// Option configures a ToolSet.
type Option func(*toolSetConfig)

// WithFilter narrows the set of remote tools the toolset exposes.
func WithFilter(filter Filter) Option {
	return func(c *toolSetConfig) {
		c.filter = filter
	}
}

// WithClientOptions forwards options to the underlying MCP client.
func WithClientOptions(options ...mcp.ClientOption) Option {
	return func(c *toolSetConfig) {
		c.clientOptions = append(c.clientOptions, options...)
	}
}

// WithReconnect enables automatic session re-establishment when an operation
// fails with a connection or session error. Each operation retries at most
// maxAttempts times.
func WithReconnect(maxAttempts int) Option {
	return func(c *toolSetConfig) {
		c.reconnectAttempts = maxAttempts
	}
}
