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
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"trpc.group/trpc-go/trpc-workflow-go/log"

	mcp "trpc.group/trpc-go/trpc-mcp-go"
)

// reconnectErrorPatterns are the error fragments that indicate a broken
// connection or expired session. Only these trigger a reconnect; anything
// else is handed back to the caller untouched.
var reconnectErrorPatterns = []string{
	"session_expired:",
	"transport is closed",
	"not initialized",
	"connection refused",
	"connection reset",
	"EOF",
	"broken pipe",
	"session not found",
}

// session owns the MCP client connection and serializes its lifecycle.
type session struct {
	config            ConnectionConfig
	clientOptions     []mcp.ClientOption
	reconnectAttempts int

	mu          sync.RWMutex
	client      mcp.Connector
	connected   bool
	initialized bool

	// reconnectGroup collapses concurrent reconnect attempts into one.
	reconnectGroup singleflight.Group
}

func newSession(config ConnectionConfig, clientOptions []mcp.ClientOption, reconnectAttempts int) *session {
	return &session{
		config:            config,
		clientOptions:     clientOptions,
		reconnectAttempts: reconnectAttempts,
	}
}

// connect dials the MCP server and runs the initialize handshake.
func (s *session) connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected && s.initialized {
		return nil
	}

	client, err := s.newClient()
	if err != nil {
		return fmt.Errorf("create MCP client: %w", err)
	}
	s.client = client
	s.connected = true

	if err := s.initialize(ctx); err != nil {
		s.connected = false
		if closeErr := client.Close(); closeErr != nil {
			log.Errorf("close MCP client after failed handshake: %v", closeErr)
		}
		s.client = nil
		return fmt.Errorf("initialize MCP session: %w", err)
	}
	return nil
}

// newClient builds the transport-specific MCP client.
func (s *session) newClient() (mcp.Connector, error) {
	clientInfo := s.config.ClientInfo
	if clientInfo.Name == "" {
		clientInfo = defaultClientInfo
	}

	transportType, err := validateTransport(s.config.Transport)
	if err != nil {
		return nil, err
	}

	switch transportType {
	case transportStdio:
		config := mcp.StdioTransportConfig{
			ServerParams: mcp.StdioServerParameters{
				Command: s.config.Command,
				Args:    s.config.Args,
			},
			Timeout: s.config.Timeout,
		}
		return mcp.NewStdioClient(config, clientInfo)

	case transportSSE:
		return mcp.NewSSEClient(s.config.ServerURL, clientInfo, s.httpOptions()...)

	case transportStreamable:
		return mcp.NewClient(s.config.ServerURL, clientInfo, s.httpOptions()...)

	default:
		return nil, fmt.Errorf("unsupported transport %q", s.config.Transport)
	}
}

func (s *session) httpOptions() []mcp.ClientOption {
	var options []mcp.ClientOption
	if len(s.config.Headers) > 0 {
		headers := http.Header{}
		for k, v := range s.config.Headers {
			headers.Set(k, v)
		}
		options = append(options, mcp.WithHTTPHeaders(headers))
	}
	return append(options, s.clientOptions...)
}

// initialize runs the MCP handshake. Callers hold s.mu.
func (s *session) initialize(ctx context.Context) error {
	if s.initialized {
		return nil
	}
	initCtx, cancel := s.opContext(ctx)
	defer cancel()

	rsp, err := s.client.Initialize(initCtx, &mcp.InitializeRequest{})
	if err != nil {
		return err
	}
	log.Debugf("MCP session initialized: server=%s version=%s protocol=%s",
		rsp.ServerInfo.Name, rsp.ServerInfo.Version, rsp.ProtocolVersion)
	s.initialized = true
	return nil
}

// opContext applies the configured timeout when the caller's context carries
// no deadline of its own.
func (s *session) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout > 0 {
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			return context.WithTimeout(ctx, s.config.Timeout)
		}
	}
	return ctx, func() {}
}

// listTools fetches the remote tool inventory.
func (s *session) listTools(ctx context.Context) ([]mcp.Tool, error) {
	var tools []mcp.Tool
	err := s.withRecovery(ctx, func() error {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.client == nil {
			return fmt.Errorf("transport is closed")
		}
		listCtx, cancel := s.opContext(ctx)
		defer cancel()

		rsp, err := s.client.ListTools(listCtx, &mcp.ListToolsRequest{})
		if err != nil {
			return fmt.Errorf("list tools: %w", err)
		}
		tools = rsp.Tools
		return nil
	})
	return tools, err
}

// callTool invokes one remote tool and returns its content blocks.
func (s *session) callTool(ctx context.Context, name string, arguments map[string]any) ([]mcp.Content, error) {
	var content []mcp.Content
	err := s.withRecovery(ctx, func() error {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.client == nil {
			return fmt.Errorf("transport is closed")
		}
		callCtx, cancel := s.opContext(ctx)
		defer cancel()

		req := &mcp.CallToolRequest{}
		req.Params.Name = name
		req.Params.Arguments = arguments

		rsp, err := s.client.CallTool(callCtx, req)
		if err != nil {
			return fmt.Errorf("call tool %q: %w", name, err)
		}
		content = rsp.Content
		return nil
	})
	return content, err
}

// withRecovery runs op and, when it fails with a connection or session error
// and reconnection is enabled, re-establishes the session and retries.
func (s *session) withRecovery(ctx context.Context, op func() error) error {
	err := op()
	if err == nil || !s.shouldReconnect(err) {
		return err
	}

	for attempt := 1; attempt <= s.reconnectAttempts; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("reconnect aborted: %w", ctx.Err())
		}
		if reconnectErr := s.reconnect(ctx); reconnectErr != nil {
			log.Warnf("MCP session reconnect failed (attempt %d/%d): %v",
				attempt, s.reconnectAttempts, reconnectErr)
			continue
		}
		if err = op(); err == nil {
			return nil
		}
		if !s.shouldReconnect(err) {
			return err
		}
	}
	return err
}

// shouldReconnect reports whether err looks like a broken connection worth
// re-establishing.
func (s *session) shouldReconnect(err error) bool {
	if s.reconnectAttempts <= 0 || err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range reconnectErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// reconnect tears down the current client and dials again. Concurrent callers
// share a single reconnect via singleflight.
func (s *session) reconnect(ctx context.Context) error {
	_, err, _ := s.reconnectGroup.Do("reconnect", func() (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.client != nil {
			if closeErr := s.client.Close(); closeErr != nil {
				log.Warnf("close stale MCP client: %v", closeErr)
			}
			s.client = nil
		}
		s.connected = false
		s.initialized = false

		client, err := s.newClient()
		if err != nil {
			return nil, fmt.Errorf("create MCP client: %w", err)
		}
		s.client = client
		s.connected = true

		if err := s.initialize(ctx); err != nil {
			s.connected = false
			if closeErr := client.Close(); closeErr != nil {
				log.Errorf("close MCP client after failed handshake: %v", closeErr)
			}
			s.client = nil
			return nil, fmt.Errorf("initialize MCP session: %w", err)
		}
		return nil, nil
	})
	return err
}

// ready reports whether the session is connected and the handshake completed.
func (s *session) ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected && s.initialized
}

// close shuts the connection down. Safe to call on a never-connected session.
func (s *session) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected || s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.connected = false
	s.initialized = false
	s.client = nil
	if err != nil {
		return fmt.Errorf("close MCP client: %w", err)
	}
	return nil
}
