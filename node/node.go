//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package node defines the composable units a workflow is built from. The
// variant set is closed: Leaf, Sequential, Loop and Parallel, each carrying
// strongly-typed configuration resolved once at composition time. Every
// variant evaluates uniformly against a state view, so trees nest to any
// depth. Nodes hold no mutable run state; the executor in package runner owns
// evaluation and every state mutation.
package node

import (
	"time"

	"trpc.group/trpc-go/trpc-workflow-go/capability"
	"trpc.group/trpc-go/trpc-workflow-go/tool"
)

// Node is one unit of workflow execution. The interface is sealed; the four
// variants in this package are the only implementations.
type Node interface {
	// Name identifies the node in events and error reports. Names are unique
	// per tree, enforced by Validate.
	Name() string

	isNode()
}

// Leaf wraps one call into the capability boundary.
type Leaf struct {
	name       string
	cap        capability.Capability
	tools      *tool.Registry
	toolsErr   error
	outputKey  string
	ownedKeys  []string
	maxRetries int
	timeout    time.Duration
	handoffs   []Node
}

// LeafOption configures a Leaf.
type LeafOption func(*leafOptions)

type leafOptions struct {
	tools      []tool.Tool
	outputKey  string
	ownedKeys  []string
	maxRetries int
	timeout    time.Duration
	handoffs   []Node
}

// WithTools equips the leaf with tools its capability may invoke.
func WithTools(tools ...tool.Tool) LeafOption {
	return func(o *leafOptions) {
		o.tools = append(o.tools, tools...)
	}
}

// WithOutputKey declares the state key that receives the capability's final
// output as a set op.
func WithOutputKey(key string) LeafOption {
	return func(o *leafOptions) {
		o.outputKey = key
	}
}

// WithOwnedKeys declares further state keys this leaf sets through its delta.
// Declarations drive the parallel same-key conflict check; append-only keys
// need no declaration.
func WithOwnedKeys(keys ...string) LeafOption {
	return func(o *leafOptions) {
		o.ownedKeys = append(o.ownedKeys, keys...)
	}
}

// WithMaxRetries bounds retries of transient capability failures. Zero means
// a single attempt.
func WithMaxRetries(n int) LeafOption {
	return func(o *leafOptions) {
		o.maxRetries = n
	}
}

// WithTimeout bounds each capability invocation. Zero means no per-call
// timeout beyond the run context.
func WithTimeout(d time.Duration) LeafOption {
	return func(o *leafOptions) {
		o.timeout = d
	}
}

// WithHandoffs declares the nodes this leaf's capability may transfer control
// to.
func WithHandoffs(targets ...Node) LeafOption {
	return func(o *leafOptions) {
		o.handoffs = append(o.handoffs, targets...)
	}
}

// NewLeaf creates a leaf node invoking cap.
func NewLeaf(name string, cap capability.Capability, opts ...LeafOption) *Leaf {
	var o leafOptions
	for _, opt := range opts {
		opt(&o)
	}
	l := &Leaf{
		name:       name,
		cap:        cap,
		outputKey:  o.outputKey,
		ownedKeys:  o.ownedKeys,
		maxRetries: o.maxRetries,
		timeout:    o.timeout,
		handoffs:   o.handoffs,
	}
	if len(o.tools) > 0 {
		l.tools, l.toolsErr = tool.NewRegistry(o.tools...)
	}
	return l
}

// Name implements Node.
func (l *Leaf) Name() string { return l.name }

func (l *Leaf) isNode() {}

// Capability returns the capability this leaf invokes.
func (l *Leaf) Capability() capability.Capability { return l.cap }

// Tools returns the leaf's tool registry, nil when it carries none.
func (l *Leaf) Tools() *tool.Registry { return l.tools }

// OutputKey returns the declared output key, empty when none.
func (l *Leaf) OutputKey() string { return l.outputKey }

// SetKeys returns every state key this leaf declares set ops for.
func (l *Leaf) SetKeys() []string {
	keys := make([]string, 0, len(l.ownedKeys)+1)
	if l.outputKey != "" {
		keys = append(keys, l.outputKey)
	}
	return append(keys, l.ownedKeys...)
}

// MaxRetries returns the transient-retry bound.
func (l *Leaf) MaxRetries() int { return l.maxRetries }

// Timeout returns the per-invocation timeout, zero when unset.
func (l *Leaf) Timeout() time.Duration { return l.timeout }

// Handoffs returns the declared transfer targets.
func (l *Leaf) Handoffs() []Node { return l.handoffs }

// FindHandoff returns the handoff target with the given name.
func (l *Leaf) FindHandoff(name string) Node {
	for _, h := range l.handoffs {
		if h.Name() == name {
			return h
		}
	}
	return nil
}

// Sequential runs its children strictly in order. Each child's delta is
// merged into state before the next child starts. By default the first child
// receives the stage input and each later child receives its predecessor's
// output; WithSharedInput gives every child the stage input instead.
type Sequential struct {
	name       string
	children   []Node
	shareInput bool
}

// SequentialOption configures a Sequential.
type SequentialOption func(*Sequential)

// WithSharedInput passes the stage input unchanged to every child instead of
// chaining each child's output into the next.
func WithSharedInput() SequentialOption {
	return func(s *Sequential) {
		s.shareInput = true
	}
}

// NewSequential creates a sequential stage over children.
func NewSequential(name string, children []Node, opts ...SequentialOption) *Sequential {
	s := &Sequential{name: name, children: children}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Node.
func (s *Sequential) Name() string { return s.name }

func (s *Sequential) isNode() {}

// SubNodes returns the children in declared order.
func (s *Sequential) SubNodes() []Node { return s.children }

// SharesInput reports whether children receive the stage input unchanged.
func (s *Sequential) SharesInput() bool { return s.shareInput }

// Loop runs its children as repeated sequential passes until a child raises
// the exit signal or maxIterations passes complete. The bound is mandatory;
// loops never run unbounded.
type Loop struct {
	name          string
	maxIterations int
	children      []Node
}

// NewLoop creates a loop over children bounded by maxIterations.
func NewLoop(name string, maxIterations int, children []Node) *Loop {
	return &Loop{name: name, maxIterations: maxIterations, children: children}
}

// Name implements Node.
func (l *Loop) Name() string { return l.name }

func (l *Loop) isNode() {}

// SubNodes returns the children in declared order.
func (l *Loop) SubNodes() []Node { return l.children }

// MaxIterations returns the iteration bound.
func (l *Loop) MaxIterations() int { return l.maxIterations }

// Parallel fans its children out concurrently against a snapshot of state
// taken at fan-out time. Deltas are collected per child and merged after the
// join in declared order, so the committed log is deterministic no matter
// which child finishes first.
type Parallel struct {
	name       string
	children   []Node
	bestEffort bool
}

// ParallelOption configures a Parallel.
type ParallelOption func(*Parallel)

// WithBestEffort lets every child run to completion and reports failures per
// branch instead of cancelling siblings on the first error.
func WithBestEffort() ParallelOption {
	return func(p *Parallel) {
		p.bestEffort = true
	}
}

// NewParallel creates a parallel fan-out over children.
func NewParallel(name string, children []Node, opts ...ParallelOption) *Parallel {
	p := &Parallel{name: name, children: children}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Node.
func (p *Parallel) Name() string { return p.name }

func (p *Parallel) isNode() {}

// SubNodes returns the children in declared order.
func (p *Parallel) SubNodes() []Node { return p.children }

// BestEffort reports whether the fan-out collects per-branch failures rather
// than failing fast.
func (p *Parallel) BestEffort() bool { return p.bestEffort }
