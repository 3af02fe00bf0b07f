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
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-workflow-go/event"
	"trpc.group/trpc-go/trpc-workflow-go/node"
	"trpc.group/trpc-go/trpc-workflow-go/state"
)

// branchScope isolates one parallel branch. The branch executes against its
// own copy of the fan-out snapshot and buffers its events instead of touching
// the journal; the parent merges buffers in declared order afterwards, so no
// branch ever observes another's in-flight delta.
type branchScope struct {
	branch  string
	st      state.State
	setKeys map[string]struct{}
	events  []*event.Event
}

func newBranchScope(child node.Node, snapshot state.State) *branchScope {
	keys := make(map[string]struct{})
	for _, k := range node.DeclaredSetKeys(child) {
		keys[k] = struct{}{}
	}
	return &branchScope{branch: child.Name(), st: snapshot, setKeys: keys}
}

func (s *branchScope) commit(_ context.Context, events ...*event.Event) error {
	for _, ev := range events {
		if ev.AppliesToState() {
			for _, op := range ev.Delta {
				if op.Kind != state.OpSet {
					continue
				}
				if _, declared := s.setKeys[op.Key]; !declared {
					return fmt.Errorf("parallel branch %q set undeclared state key %q", s.branch, op.Key)
				}
			}
			if err := s.st.Apply(ev.Delta); err != nil {
				return err
			}
		}
		s.events = append(s.events, ev)
	}
	return nil
}

func (s *branchScope) view() state.View {
	return s.st.View()
}

func (s *branchScope) snapshot() state.State {
	return s.st.Clone()
}

// evaluateParallel fans children out over a bounded worker pool, each against
// its own snapshot of the current state, then commits the surviving branch
// buffers in declared order as one atomic batch. The log order is therefore
// reproducible no matter which branch finished first. Under fail-fast the
// first branch error cancels the siblings and nothing is merged; under
// best-effort failed branches are dropped and reported alongside the merged
// result.
func (ex *executor) evaluateParallel(ctx context.Context, par *node.Parallel, input string) (*outcome, error) {
	children := par.SubNodes()
	branches := make([]*branchScope, len(children))
	results := make([]*outcome, len(children))
	errs := make([]error, len(children))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := len(children)
	if ex.maxParallel > 0 && ex.maxParallel < workers {
		workers = ex.maxParallel
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, nodeError(par.Name(), fmt.Errorf("create worker pool: %w", err))
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, child := range children {
		branches[i] = newBranchScope(child, ex.scope.snapshot())
		wg.Add(1)
		// Capture loop variables for the closure.
		idx := i
		branch := branches[i]
		sub := child
		err := pool.Submit(func() {
			defer wg.Done()
			bex := &executor{
				sessionID:   ex.sessionID,
				scope:       branch,
				nodeEvents:  ex.nodeEvents,
				maxParallel: ex.maxParallel,
			}
			res, err := bex.evaluate(runCtx, sub, input)
			if err != nil {
				errs[idx] = err
				if !par.BestEffort() {
					cancel()
				}
				return
			}
			results[idx] = res
		})
		if err != nil {
			wg.Done()
			errs[i] = nodeError(child.Name(), fmt.Errorf("submit branch task: %w", err))
			if !par.BestEffort() {
				cancel()
			}
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nodeError(par.Name(), err)
	}
	if !par.BestEffort() {
		// Report the first real failure by declaration order. Siblings torn
		// down by the fail-fast cancel only carry context.Canceled; they are
		// casualties, not the cause.
		var firstErr error
		for i, err := range errs {
			if err == nil {
				continue
			}
			if firstErr == nil {
				firstErr = nodeError(children[i].Name(), err)
			}
			if !errors.Is(err, context.Canceled) {
				return nil, nodeError(children[i].Name(), err)
			}
		}
		if firstErr != nil {
			return nil, firstErr
		}
	}

	out := &outcome{}
	var merged []*event.Event
	var outputs []string
	for i, child := range children {
		if errs[i] != nil {
			out.Failed = append(out.Failed, BranchFailure{Node: child.Name(), Err: errs[i]})
			continue
		}
		merged = append(merged, branches[i].events...)
		res := results[i]
		out.ExitLoop = out.ExitLoop || res.ExitLoop
		out.Failed = append(out.Failed, res.Failed...)
		if res.Output != "" {
			outputs = append(outputs, res.Output)
		}
	}
	if err := ex.scope.commit(ctx, merged...); err != nil {
		return nil, nodeError(par.Name(), err)
	}
	out.Output = strings.Join(outputs, "\n\n")
	return out, nil
}
