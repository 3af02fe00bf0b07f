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
	"fmt"
	"sort"
)

// CompositionError reports an invalid workflow definition. It is a
// programmer error: surfaced before any execution, never retried.
type CompositionError struct {
	Node   string
	Reason string
}

// Error implements the error interface.
func (e *CompositionError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("invalid workflow: %s", e.Reason)
	}
	return fmt.Sprintf("invalid workflow at node %q: %s", e.Node, e.Reason)
}

// Validate checks a node tree once, at composition time. It rejects empty
// composites, non-positive loop bounds, duplicate node names, leaves without
// a capability, broken tool registries, and parallel branches whose declared
// set-keys collide.
func Validate(root Node) error {
	if root == nil {
		return &CompositionError{Reason: "nil root node"}
	}
	v := &validator{seen: make(map[string]struct{})}
	return v.walk(root)
}

type validator struct {
	seen map[string]struct{}
}

func (v *validator) walk(n Node) error {
	if n == nil {
		return &CompositionError{Reason: "nil node in tree"}
	}
	name := n.Name()
	if name == "" {
		return &CompositionError{Reason: "node with empty name"}
	}
	if _, dup := v.seen[name]; dup {
		return &CompositionError{Node: name, Reason: "duplicate node name"}
	}
	v.seen[name] = struct{}{}

	switch t := n.(type) {
	case *Leaf:
		return v.walkLeaf(t)
	case *Sequential:
		return v.walkChildren(name, t.SubNodes())
	case *Loop:
		if t.MaxIterations() < 1 {
			return &CompositionError{Node: name, Reason: fmt.Sprintf("maxIterations must be positive, got %d", t.MaxIterations())}
		}
		return v.walkChildren(name, t.SubNodes())
	case *Parallel:
		if err := v.walkChildren(name, t.SubNodes()); err != nil {
			return err
		}
		return checkParallelKeys(t)
	default:
		return &CompositionError{Node: name, Reason: fmt.Sprintf("unknown node variant %T", n)}
	}
}

func (v *validator) walkLeaf(l *Leaf) error {
	if l.Capability() == nil {
		return &CompositionError{Node: l.Name(), Reason: "leaf without a capability"}
	}
	if l.toolsErr != nil {
		return &CompositionError{Node: l.Name(), Reason: l.toolsErr.Error()}
	}
	for _, h := range l.Handoffs() {
		if err := v.walk(h); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) walkChildren(parent string, children []Node) error {
	if len(children) == 0 {
		return &CompositionError{Node: parent, Reason: "composite node without children"}
	}
	for _, c := range children {
		if c == nil {
			return &CompositionError{Node: parent, Reason: "nil child node"}
		}
		if err := v.walk(c); err != nil {
			return err
		}
	}
	return nil
}

// checkParallelKeys rejects two branches of one fan-out declaring set ops on
// the same state key. Appends may share a key across branches; sets may not.
func checkParallelKeys(p *Parallel) error {
	owners := make(map[string]string)
	for _, child := range p.SubNodes() {
		branch := make(map[string]string)
		collectSetKeys(child, branch)
		for key, leaf := range branch {
			if otherLeaf, taken := owners[key]; taken {
				return &CompositionError{
					Node: p.Name(),
					Reason: fmt.Sprintf("parallel branches both set state key %q (leaves %q and %q)",
						key, otherLeaf, leaf),
				}
			}
			owners[key] = leaf
		}
	}
	return nil
}

// DeclaredSetKeys returns every state key a leaf under n declares set
// ownership of, handoff targets included. The executor uses this to reject a
// parallel branch writing outside its declared keys at runtime.
func DeclaredSetKeys(n Node) []string {
	keys := make(map[string]string)
	collectSetKeys(n, keys)
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// collectSetKeys gathers the declared set-keys of every leaf under n,
// including handoff targets, into keys (key → leaf name).
func collectSetKeys(n Node, keys map[string]string) {
	switch t := n.(type) {
	case *Leaf:
		for _, k := range t.SetKeys() {
			keys[k] = t.Name()
		}
		for _, h := range t.Handoffs() {
			collectSetKeys(h, keys)
		}
	case *Sequential:
		for _, c := range t.SubNodes() {
			collectSetKeys(c, keys)
		}
	case *Loop:
		for _, c := range t.SubNodes() {
			collectSetKeys(c, keys)
		}
	case *Parallel:
		for _, c := range t.SubNodes() {
			collectSetKeys(c, keys)
		}
	}
}
