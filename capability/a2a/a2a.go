//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package a2a adapts a remote agent speaking the A2A protocol as a
// capability. The leaf's input goes out as a user message; the remote
// agent's text parts come back as the capability output. Remote agents never
// see session state or local tools.
package a2a

import (
	"context"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-a2a-go/client"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"

	"trpc.group/trpc-go/trpc-workflow-go/capability"
)

// Capability calls one remote A2A agent.
type Capability struct {
	client *client.A2AClient
	url    string
}

// Option configures the capability.
type Option func(*options)

type options struct {
	clientOpts []client.Option
}

// WithClientOptions appends raw A2A client options (timeouts, headers,
// custom HTTP clients).
func WithClientOptions(opts ...client.Option) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// New creates a capability that talks to the agent at url.
func New(url string, opts ...Option) (*Capability, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	c, err := client.NewA2AClient(url, o.clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create a2a client for %s: %w", url, err)
	}
	return &Capability{client: c, url: url}, nil
}

// Invoke implements the capability interface.
func (c *Capability) Invoke(ctx context.Context, req *capability.Request) (*capability.Result, error) {
	message := protocol.NewMessage(
		protocol.MessageRoleUser,
		[]protocol.Part{protocol.NewTextPart(req.Input)},
	)

	result, err := c.client.SendMessage(ctx, protocol.SendMessageParams{Message: message})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		// Remote agents come and go; let the leaf's retry budget decide.
		return nil, capability.NewTransient(fmt.Sprintf("a2a request to %s failed", c.url), err)
	}

	output, err := extractText(result.Result)
	if err != nil {
		return nil, err
	}
	return &capability.Result{Output: output}, nil
}

// extractText pulls the text parts out of whatever the remote agent sent
// back: a direct message, or a task carrying artifacts. A nil result is an
// empty reply, not an error.
func extractText(result protocol.UnaryMessageResult) (string, error) {
	if result == nil {
		return "", nil
	}
	switch v := result.(type) {
	case *protocol.Message:
		return textOfParts(v.Parts), nil
	case *protocol.Task:
		var parts []protocol.Part
		for _, artifact := range v.Artifacts {
			parts = append(parts, artifact.Parts...)
		}
		if v.Status.Message != nil {
			parts = append(parts, v.Status.Message.Parts...)
		}
		return textOfParts(parts), nil
	default:
		return "", capability.NewFatal(fmt.Sprintf("a2a: unexpected response type %T", result), nil)
	}
}

func textOfParts(parts []protocol.Part) string {
	var text strings.Builder
	for _, part := range parts {
		if part.GetKind() != protocol.KindText {
			continue
		}
		// Decoded messages carry pointer parts, locally built ones values.
		switch p := part.(type) {
		case *protocol.TextPart:
			text.WriteString(p.Text)
		case protocol.TextPart:
			text.WriteString(p.Text)
		}
	}
	return text.String()
}
