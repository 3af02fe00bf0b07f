//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package function adapts a plain Go function into a capability. It is the
// cheapest way to put deterministic logic on a leaf: enrichment steps,
// routing decisions, fixtures in tests.
package function

import (
	"context"
	"errors"

	"trpc.group/trpc-go/trpc-workflow-go/capability"
)

// Func is the signature a function capability implements.
type Func func(ctx context.Context, req *capability.Request) (*capability.Result, error)

// Capability wraps a Func so leaves can invoke it.
type Capability struct {
	fn Func
}

// New wraps fn as a capability.
func New(fn Func) *Capability {
	return &Capability{fn: fn}
}

// Invoke calls the wrapped function. A nil result without an error is
// normalized to an empty result so callers never branch on it.
func (c *Capability) Invoke(ctx context.Context, req *capability.Request) (*capability.Result, error) {
	if c.fn == nil {
		return nil, errors.New("function capability has no function")
	}
	res, err := c.fn(ctx, req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &capability.Result{}
	}
	return res, nil
}
