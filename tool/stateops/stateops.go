//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package stateops provides tools that let a model read and write session
// state explicitly. Writes come back as delta ops; the executor applies them
// after the owning capability returns.
package stateops

import (
	"context"
	"encoding/json"
	"fmt"

	"trpc.group/trpc-go/trpc-workflow-go/state"
	"trpc.group/trpc-go/trpc-workflow-go/tool"
)

const (
	// SetToolName is the name of the set_state tool.
	SetToolName = "set_state"
	// AppendToolName is the name of the append_to_state tool.
	AppendToolName = "append_to_state"
	// GetToolName is the name of the get_state tool.
	GetToolName = "get_state"
)

// WriteRequest is the argument object of set_state and append_to_state.
type WriteRequest struct {
	// Key is the state key to write.
	Key string `json:"key" description:"State key to write"`
	// Value is the JSON value to store.
	Value json.RawMessage `json:"value" description:"JSON value to store"`
}

// WriteResponse confirms a write was recorded.
type WriteResponse struct {
	Success bool   `json:"success"`
	Key     string `json:"key"`
}

// SetTool stores a value under a key, replacing any previous value.
type SetTool struct{}

// NewSet creates the set_state tool.
func NewSet() *SetTool {
	return &SetTool{}
}

// Declaration implements the tool.Tool interface.
func (t *SetTool) Declaration() *tool.Declaration {
	return &tool.Declaration{
		Name:        SetToolName,
		Description: "Store a JSON value in session state under the given key, replacing any previous value.",
		InputSchema: writeSchema(),
	}
}

// Call records a set op for the executor to apply.
func (t *SetTool) Call(ctx context.Context, args json.RawMessage, _ state.View) (*tool.Result, error) {
	req, err := decodeWrite(SetToolName, args)
	if err != nil {
		return nil, err
	}
	op, err := state.NewSet(req.Key, req.Value)
	if err != nil {
		return nil, err
	}
	return writeResult(req.Key, op)
}

// AppendTool appends a value to the list under a key.
type AppendTool struct{}

// NewAppend creates the append_to_state tool.
func NewAppend() *AppendTool {
	return &AppendTool{}
}

// Declaration implements the tool.Tool interface.
func (t *AppendTool) Declaration() *tool.Declaration {
	return &tool.Declaration{
		Name:        AppendToolName,
		Description: "Append a JSON value to the list stored in session state under the given key.",
		InputSchema: writeSchema(),
	}
}

// Call records an append op for the executor to apply.
func (t *AppendTool) Call(ctx context.Context, args json.RawMessage, _ state.View) (*tool.Result, error) {
	req, err := decodeWrite(AppendToolName, args)
	if err != nil {
		return nil, err
	}
	op, err := state.NewAppend(req.Key, req.Value)
	if err != nil {
		return nil, err
	}
	return writeResult(req.Key, op)
}

// ReadRequest is the argument object of get_state.
type ReadRequest struct {
	// Key is the state key to read.
	Key string `json:"key" description:"State key to read"`
}

// ReadResponse carries the stored value, or Found=false when absent.
type ReadResponse struct {
	Found bool            `json:"found"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value,omitempty"`
}

// GetTool reads a value from session state.
type GetTool struct{}

// NewGet creates the get_state tool.
func NewGet() *GetTool {
	return &GetTool{}
}

// Declaration implements the tool.Tool interface.
func (t *GetTool) Declaration() *tool.Declaration {
	return &tool.Declaration{
		Name:        GetToolName,
		Description: "Read the JSON value stored in session state under the given key.",
		InputSchema: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"key": {Type: "string", Description: "State key to read"},
			},
			Required: []string{"key"},
		},
	}
}

// Call reads the key from the session view.
func (t *GetTool) Call(ctx context.Context, args json.RawMessage, view state.View) (*tool.Result, error) {
	var req ReadRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, fmt.Errorf("decode %s arguments: %w", GetToolName, err)
	}
	if req.Key == "" {
		return nil, fmt.Errorf("%s: key is required", GetToolName)
	}

	resp := ReadResponse{Key: req.Key}
	if value, ok := view.Get(req.Key); ok {
		resp.Found = true
		resp.Value = value
	}
	content, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return &tool.Result{Content: content}, nil
}

func writeSchema() *tool.Schema {
	return &tool.Schema{
		Type: "object",
		Properties: map[string]*tool.Schema{
			"key":   {Type: "string", Description: "State key to write"},
			"value": {Description: "JSON value to store"},
		},
		Required: []string{"key", "value"},
	}
}

func decodeWrite(name string, args json.RawMessage) (*WriteRequest, error) {
	var req WriteRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, fmt.Errorf("decode %s arguments: %w", name, err)
	}
	if req.Key == "" {
		return nil, fmt.Errorf("%s: key is required", name)
	}
	if len(req.Value) == 0 {
		return nil, fmt.Errorf("%s: value is required", name)
	}
	return &req, nil
}

func writeResult(key string, op state.Op) (*tool.Result, error) {
	content, err := json.Marshal(WriteResponse{Success: true, Key: key})
	if err != nil {
		return nil, err
	}
	return &tool.Result{Content: content, Ops: state.Delta{op}}, nil
}
