//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package capability defines the boundary a leaf node calls out to. A
// capability receives the leaf's input, a read-only view of session state and
// the tools the leaf carries, and returns an output plus the state delta it
// wants applied. Capabilities never mutate shared state; the executor owns
// every merge.
package capability

import (
	"context"

	"trpc.group/trpc-go/trpc-workflow-go/state"
	"trpc.group/trpc-go/trpc-workflow-go/tool"
)

// Request is one capability invocation.
type Request struct {
	// SessionID identifies the owning session.
	SessionID string
	// Node is the name of the invoking leaf.
	Node string
	// Input is the textual input for this invocation.
	Input string
	// State is a read-only window on the session's working state.
	State state.View
	// Tools is the registry of tools the leaf makes available, nil when the
	// leaf carries none.
	Tools *tool.Registry
}

// Result is what a capability invocation produces.
type Result struct {
	// Output is the invocation's textual output. It becomes the next stage's
	// input in chained sequences and lands in the leaf's declared output key.
	Output string
	// Delta carries the state mutations the capability requests.
	Delta state.Delta
	// ExitLoop signals the nearest enclosing loop to stop after this pass.
	ExitLoop bool
	// TransferTo names a handoff target declared on the leaf. Empty means no
	// handoff.
	TransferTo string
}

// Capability is implemented by everything a leaf can invoke: chat model
// adapters, remote agents, plain functions.
type Capability interface {
	Invoke(ctx context.Context, req *Request) (*Result, error)
}
