//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package state holds the working state of a session and the delta operations
// that mutate it. State is a flat mapping from string keys to JSON values.
// Mutation happens exclusively through deltas applied by the workflow
// executor; everything else reads state through the read-only View.
package state

import (
	"encoding/json"
	"fmt"
	"sort"
)

// State is the working state of one session.
type State map[string]json.RawMessage

// New returns an empty state.
func New() State {
	return make(State)
}

// Clone returns a deep copy. Parallel fan-out hands each branch a clone so no
// branch observes another's in-flight mutations.
func (s State) Clone() State {
	c := make(State, len(s))
	for k, v := range s {
		buf := make(json.RawMessage, len(v))
		copy(buf, v)
		c[k] = buf
	}
	return c
}

// Apply merges the delta into the state, op by op, in order. Append ops
// require the existing value under the key to be a JSON array (or absent).
func (s State) Apply(delta Delta) error {
	for _, op := range delta {
		switch op.Kind {
		case OpSet:
			buf := make(json.RawMessage, len(op.Value))
			copy(buf, op.Value)
			s[op.Key] = buf
		case OpAppend:
			if err := s.appendTo(op.Key, op.Value); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown delta op %q for key %q", op.Kind, op.Key)
		}
	}
	return nil
}

func (s State) appendTo(key string, value json.RawMessage) error {
	var items []json.RawMessage
	if existing, ok := s[key]; ok {
		if err := json.Unmarshal(existing, &items); err != nil {
			return fmt.Errorf("append to key %q: existing value is not an array: %w", key, err)
		}
	}
	buf := make(json.RawMessage, len(value))
	copy(buf, value)
	items = append(items, buf)
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("append to key %q: %w", key, err)
	}
	s[key] = raw
	return nil
}

// View returns a read-only view over the state. The view reads live data; the
// caller must hand it out only while it holds the session.
func (s State) View() View {
	return View{s: s}
}

// View is the read-only window capabilities and tools receive. It cannot
// mutate the underlying state; desired mutations come back as delta ops.
type View struct {
	s State
}

// Get returns the raw JSON stored under key.
func (v View) Get(key string) (json.RawMessage, bool) {
	raw, ok := v.s[key]
	if !ok {
		return nil, false
	}
	buf := make(json.RawMessage, len(raw))
	copy(buf, raw)
	return buf, true
}

// GetString returns the value under key when it is a JSON string.
func (v View) GetString(key string) (string, bool) {
	raw, ok := v.s[key]
	if !ok {
		return "", false
	}
	var out string
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", false
	}
	return out, true
}

// Decode unmarshals the value under key into out.
func (v View) Decode(key string, out any) error {
	raw, ok := v.s[key]
	if !ok {
		return fmt.Errorf("state key %q not set", key)
	}
	return json.Unmarshal(raw, out)
}

// Has reports whether key is set.
func (v View) Has(key string) bool {
	_, ok := v.s[key]
	return ok
}

// Keys returns all keys in sorted order.
func (v View) Keys() []string {
	keys := make([]string, 0, len(v.s))
	for k := range v.s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (v View) Len() int {
	return len(v.s)
}
