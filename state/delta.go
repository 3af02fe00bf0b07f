//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package state

import (
	"encoding/json"
	"fmt"
)

// OpKind distinguishes the two mutation operations a delta may carry.
type OpKind string

const (
	// OpSet replaces the value stored under a key.
	OpSet OpKind = "set"
	// OpAppend appends the value to the JSON array stored under a key,
	// creating the array when the key is absent. Concurrent appends from
	// parallel branches stay ordered by branch declaration order.
	OpAppend OpKind = "append"
)

// Op is one keyed mutation inside a delta.
type Op struct {
	Key   string          `json:"key"`
	Kind  OpKind          `json:"op"`
	Value json.RawMessage `json:"value"`
}

// Delta is the ordered list of mutations produced by one node execution.
// Nodes and capabilities return deltas; only the executor applies them.
type Delta []Op

// NewSet builds a set op, marshaling value to JSON.
func NewSet(key string, value any) (Op, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Op{}, fmt.Errorf("marshal value for key %q: %w", key, err)
	}
	return Op{Key: key, Kind: OpSet, Value: raw}, nil
}

// NewAppend builds an append op, marshaling value to JSON.
func NewAppend(key string, value any) (Op, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Op{}, fmt.Errorf("marshal value for key %q: %w", key, err)
	}
	return Op{Key: key, Kind: OpAppend, Value: raw}, nil
}

// SetString builds a set op carrying a JSON string. String marshaling cannot
// fail, so this covers the common text-output path without an error return.
func SetString(key, value string) Op {
	raw, _ := json.Marshal(value)
	return Op{Key: key, Kind: OpSet, Value: raw}
}

// AppendString builds an append op carrying a JSON string.
func AppendString(key, value string) Op {
	raw, _ := json.Marshal(value)
	return Op{Key: key, Kind: OpAppend, Value: raw}
}

// SetRaw builds a set op from already-encoded JSON.
func SetRaw(key string, raw json.RawMessage) Op {
	return Op{Key: key, Kind: OpSet, Value: raw}
}

// AppendRaw builds an append op from already-encoded JSON.
func AppendRaw(key string, raw json.RawMessage) Op {
	return Op{Key: key, Kind: OpAppend, Value: raw}
}

// IsEmpty reports whether the delta carries no mutations.
func (d Delta) IsEmpty() bool {
	return len(d) == 0
}

// Keys returns the distinct keys touched by ops of the given kind, in first
// occurrence order.
func (d Delta) Keys(kind OpKind) []string {
	seen := make(map[string]struct{}, len(d))
	var keys []string
	for _, op := range d {
		if op.Kind != kind {
			continue
		}
		if _, ok := seen[op.Key]; ok {
			continue
		}
		seen[op.Key] = struct{}{}
		keys = append(keys, op.Key)
	}
	return keys
}

// Merge returns a delta holding d's ops followed by other's.
func (d Delta) Merge(other Delta) Delta {
	if len(other) == 0 {
		return d
	}
	merged := make(Delta, 0, len(d)+len(other))
	merged = append(merged, d...)
	merged = append(merged, other...)
	return merged
}
