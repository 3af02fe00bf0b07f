//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package capability

import (
	"context"
	"encoding/json"
	"fmt"

	itelemetry "trpc.group/trpc-go/trpc-workflow-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-workflow-go/state"
	"trpc.group/trpc-go/trpc-workflow-go/telemetry/trace"
	"trpc.group/trpc-go/trpc-workflow-go/tool"
)

// ExecuteTool runs one named tool from the registry and traces the call.
// An unknown tool name is a fatal error: the model was offered the
// declaration list and asked for something outside it.
func ExecuteTool(ctx context.Context, reg *tool.Registry, name string, args json.RawMessage, view state.View) (*tool.Result, error) {
	t, ok := reg.Lookup(name)
	if !ok {
		return nil, NewFatal(fmt.Sprintf("tool %q is not available to this node", name), nil)
	}

	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanNamePrefixExecuteTool+" "+name)
	defer span.End()

	result, err := t.Call(ctx, args, view)
	if err != nil {
		return nil, err
	}
	itelemetry.TraceToolCall(span, t.Declaration(), args, result)
	return result, nil
}

// Collector folds tool results into the delta and signals a capability
// returns. One collector serves one Invoke call.
type Collector struct {
	delta      state.Delta
	exitLoop   bool
	transferTo string
}

// Fold merges one tool result into the collected delta and signals.
func (c *Collector) Fold(res *tool.Result) {
	if res == nil {
		return
	}
	c.delta = c.delta.Merge(res.Ops)
	c.exitLoop = c.exitLoop || res.ExitLoop
	if res.TransferTo != "" {
		c.transferTo = res.TransferTo
	}
}

// Delta returns the accumulated state operations in call order.
func (c *Collector) Delta() state.Delta {
	return c.delta
}

// ExitLoop reports whether any folded tool requested a loop exit.
func (c *Collector) ExitLoop() bool {
	return c.exitLoop
}

// TransferTo returns the handoff target of the last transfer-requesting tool
// call, empty when none was made.
func (c *Collector) TransferTo() string {
	return c.transferTo
}
