//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"context"
	"fmt"

	"trpc.group/trpc-go/trpc-workflow-go/capability"
	"trpc.group/trpc-go/trpc-workflow-go/event"
	"trpc.group/trpc-go/trpc-workflow-go/journal"
	"trpc.group/trpc-go/trpc-workflow-go/log"
	"trpc.group/trpc-go/trpc-workflow-go/node"
	"trpc.group/trpc-go/trpc-workflow-go/session"
	"trpc.group/trpc-go/trpc-workflow-go/state"
)

// scope is where one evaluation reads state and commits events. At the root
// it is backed by the journal and the live session; inside a parallel branch
// it is a buffer over a state snapshot, merged later in declared order.
type scope interface {
	// commit durably records the events and folds their deltas into the
	// visible state, atomically and in order. On error nothing is applied.
	commit(ctx context.Context, events ...*event.Event) error
	// view is the read-only state the next capability call sees.
	view() state.View
	// snapshot deep-copies the visible state for a fan-out.
	snapshot() state.State
}

// journalScope commits straight to the journal and the session. The append
// happens before the state apply: an event that cannot be durably recorded is
// not committed, and the in-memory state must not advance past it.
type journalScope struct {
	journal journal.Service
	sess    *session.Session
}

func (s *journalScope) commit(ctx context.Context, events ...*event.Event) error {
	if len(events) == 0 {
		return nil
	}
	last, err := s.journal.Append(ctx, s.sess.ID, events...)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if !ev.AppliesToState() {
			continue
		}
		if err := s.sess.State.Apply(ev.Delta); err != nil {
			return err
		}
	}
	s.sess.Seq = last
	return nil
}

func (s *journalScope) view() state.View {
	return s.sess.State.View()
}

func (s *journalScope) snapshot() state.State {
	return s.sess.State.Clone()
}

// outcome carries a subtree's result upward: the terminal output, a pending
// loop-exit signal, and any best-effort branch failures collected on the way.
type outcome struct {
	Output   string
	ExitLoop bool
	Failed   []BranchFailure
}

// executor evaluates a node tree against one scope. Branches of a parallel
// node get their own executor over a branch scope; everything else runs
// strictly in order on a single goroutine.
type executor struct {
	sessionID   string
	scope       scope
	nodeEvents  bool
	maxParallel int
}

func (ex *executor) evaluate(ctx context.Context, n node.Node, input string) (*outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, nodeError(n.Name(), err)
	}
	switch t := n.(type) {
	case *node.Leaf:
		return ex.evaluateLeaf(ctx, t, input)
	case *node.Sequential:
		return ex.evaluateSequential(ctx, t, input)
	case *node.Loop:
		return ex.evaluateLoop(ctx, t, input)
	case *node.Parallel:
		return ex.evaluateParallel(ctx, t, input)
	default:
		return nil, nodeError(n.Name(), fmt.Errorf("unknown node variant %T", n))
	}
}

// evaluateLeaf invokes the capability, commits the resulting delta as one
// state_delta event, and follows a requested handoff.
func (ex *executor) evaluateLeaf(ctx context.Context, leaf *node.Leaf, input string) (*outcome, error) {
	name := leaf.Name()
	if ex.nodeEvents {
		if err := ex.scope.commit(ctx, event.New(ex.sessionID, name, event.KindNodeStart)); err != nil {
			return nil, nodeError(name, err)
		}
	}

	res, err := ex.invokeWithRetry(ctx, leaf, input)
	if err != nil {
		return nil, nodeError(name, err)
	}

	delta := res.Delta
	if key := leaf.OutputKey(); key != "" && res.Output != "" {
		delta = append(delta, state.SetString(key, res.Output))
	}
	if !delta.IsEmpty() {
		if err := ex.scope.commit(ctx, event.NewStateDelta(ex.sessionID, name, delta)); err != nil {
			return nil, nodeError(name, err)
		}
	}
	if ex.nodeEvents {
		ev := event.New(ex.sessionID, name, event.KindNodeResult, event.WithOutput(res.Output))
		if err := ex.scope.commit(ctx, ev); err != nil {
			return nil, nodeError(name, err)
		}
	}

	out := &outcome{Output: res.Output, ExitLoop: res.ExitLoop}
	if res.TransferTo == "" {
		return out, nil
	}

	target := leaf.FindHandoff(res.TransferTo)
	if target == nil {
		return nil, nodeError(name, fmt.Errorf("handoff to undeclared node %q", res.TransferTo))
	}
	if err := ex.scope.commit(ctx, event.NewTransfer(ex.sessionID, name, res.TransferTo)); err != nil {
		return nil, nodeError(name, err)
	}
	ho, err := ex.evaluate(ctx, target, res.Output)
	if err != nil {
		return nil, err
	}
	out.Output = ho.Output
	out.ExitLoop = out.ExitLoop || ho.ExitLoop
	out.Failed = append(out.Failed, ho.Failed...)
	return out, nil
}

// invokeWithRetry calls the leaf's capability, retrying transient failures up
// to the leaf's configured bound. Each attempt gets its own timeout when the
// leaf has one.
func (ex *executor) invokeWithRetry(ctx context.Context, leaf *node.Leaf, input string) (*capability.Result, error) {
	req := &capability.Request{
		SessionID: ex.sessionID,
		Node:      leaf.Name(),
		Input:     input,
		State:     ex.scope.view(),
		Tools:     leaf.Tools(),
	}
	ctx = capability.NewContext(ctx, req)
	attempts := leaf.MaxRetries() + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := ctx, func() {}
		if timeout := leaf.Timeout(); timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		res, err := leaf.Capability().Invoke(callCtx, req)
		cancel()
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !capability.IsTransient(err) || ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			log.Warnf("node %s attempt %d/%d failed, retrying: %v", leaf.Name(), attempt, attempts, err)
		}
	}
	return nil, lastErr
}

// evaluateSequential runs children in declared order. By default each child's
// output becomes the next child's input; with shared input every child
// receives the sequence's own input and coordinates through state instead.
func (ex *executor) evaluateSequential(ctx context.Context, seq *node.Sequential, input string) (*outcome, error) {
	out := &outcome{Output: input}
	current := input
	for _, child := range seq.SubNodes() {
		res, err := ex.evaluate(ctx, child, current)
		if err != nil {
			return nil, err
		}
		out.Output = res.Output
		out.ExitLoop = out.ExitLoop || res.ExitLoop
		out.Failed = append(out.Failed, res.Failed...)
		if !seq.SharesInput() {
			current = res.Output
		}
	}
	return out, nil
}

// evaluateLoop runs its children as ordered passes until a child signals exit
// or the iteration bound is reached. Both paths are normal termination and
// commit a loop_exit event; the exit signal is consumed here and never
// escapes to an enclosing loop.
func (ex *executor) evaluateLoop(ctx context.Context, loop *node.Loop, input string) (*outcome, error) {
	out := &outcome{Output: input}
	current := input
	for i := 1; i <= loop.MaxIterations(); i++ {
		exit := false
		for _, child := range loop.SubNodes() {
			res, err := ex.evaluate(ctx, child, current)
			if err != nil {
				return nil, err
			}
			out.Output = res.Output
			out.Failed = append(out.Failed, res.Failed...)
			exit = exit || res.ExitLoop
			current = res.Output
		}
		if exit {
			ev := event.NewLoopExit(ex.sessionID, loop.Name(), event.ReasonExitSignal, i)
			if err := ex.scope.commit(ctx, ev); err != nil {
				return nil, nodeError(loop.Name(), err)
			}
			return out, nil
		}
	}
	ev := event.NewLoopExit(ex.sessionID, loop.Name(), event.ReasonMaxIterations, loop.MaxIterations())
	if err := ex.scope.commit(ctx, ev); err != nil {
		return nil, nodeError(loop.Name(), err)
	}
	log.Debugf("loop %s reached max iterations (%d)", loop.Name(), loop.MaxIterations())
	return out, nil
}
