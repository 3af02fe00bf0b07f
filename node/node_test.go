//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package node

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-workflow-go/capability"
	"trpc.group/trpc-go/trpc-workflow-go/state"
	"trpc.group/trpc-go/trpc-workflow-go/tool"
)

type nopCapability struct{}

func (nopCapability) Invoke(ctx context.Context, req *capability.Request) (*capability.Result, error) {
	return &capability.Result{Output: "ok"}, nil
}

type namedTool struct {
	name string
}

func (n *namedTool) Declaration() *tool.Declaration {
	return &tool.Declaration{Name: n.name, InputSchema: &tool.Schema{Type: "object"}}
}

func (n *namedTool) Call(ctx context.Context, args json.RawMessage, view state.View) (*tool.Result, error) {
	return tool.NewTextResult(""), nil
}

func TestNewLeafDefaults(t *testing.T) {
	l := NewLeaf("writer", nopCapability{})
	require.Equal(t, "writer", l.Name())
	require.NotNil(t, l.Capability())
	require.Nil(t, l.Tools())
	require.Empty(t, l.OutputKey())
	require.Empty(t, l.SetKeys())
	require.Zero(t, l.MaxRetries())
	require.Zero(t, l.Timeout())
	require.Empty(t, l.Handoffs())
}

func TestLeafOptions(t *testing.T) {
	target := NewLeaf("editor", nopCapability{})
	l := NewLeaf("writer", nopCapability{},
		WithOutputKey("draft"),
		WithOwnedKeys("notes", "title"),
		WithMaxRetries(2),
		WithTimeout(5*time.Second),
		WithTools(&namedTool{name: "search"}),
		WithHandoffs(target),
	)

	require.Equal(t, "draft", l.OutputKey())
	require.Equal(t, []string{"draft", "notes", "title"}, l.SetKeys())
	require.Equal(t, 2, l.MaxRetries())
	require.Equal(t, 5*time.Second, l.Timeout())
	require.Equal(t, 1, l.Tools().Len())
	require.Equal(t, target, l.FindHandoff("editor"))
	require.Nil(t, l.FindHandoff("missing"))
}

func TestSequentialInputModes(t *testing.T) {
	a := NewLeaf("a", nopCapability{})
	b := NewLeaf("b", nopCapability{})

	chained := NewSequential("stage", []Node{a, b})
	require.False(t, chained.SharesInput())
	require.Equal(t, []Node{a, b}, chained.SubNodes())

	shared := NewSequential("stage2", []Node{a, b}, WithSharedInput())
	require.True(t, shared.SharesInput())
}

func TestLoopAccessors(t *testing.T) {
	child := NewLeaf("c", nopCapability{})
	l := NewLoop("refine", 5, []Node{child})
	require.Equal(t, 5, l.MaxIterations())
	require.Equal(t, []Node{child}, l.SubNodes())
}

func TestParallelPolicy(t *testing.T) {
	a := NewLeaf("a", nopCapability{})
	p := NewParallel("fanout", []Node{a})
	require.False(t, p.BestEffort())

	be := NewParallel("fanout2", []Node{a}, WithBestEffort())
	require.True(t, be.BestEffort())
}
