//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package tool defines the boundary between capabilities and the tools they
// may invoke. Tools receive a read-only view of session state and report
// desired mutations as delta ops in their result; they never write state
// directly. The reserved signal-loop-exit tool raises the typed loop-exit
// signal instead of touching state at all.
package tool

import (
	"context"
	"encoding/json"

	"trpc.group/trpc-go/trpc-workflow-go/state"
)

// LoopExitName is the reserved name of the tool that signals a loop to stop.
const LoopExitName = "signal-loop-exit"

// Tool is one callable tool.
type Tool interface {
	// Declaration returns the metadata describing the tool.
	Declaration() *Declaration

	// Call invokes the tool. args is the JSON-encoded argument object, view a
	// read-only window on session state. Desired state changes come back as
	// ops in the result, never as side effects.
	Call(ctx context.Context, args json.RawMessage, view state.View) (*Result, error)
}

// Result is what a tool call produces.
type Result struct {
	// Content is the payload handed back to the capability, JSON-encoded.
	Content json.RawMessage `json:"content,omitempty"`

	// Ops are the state mutations the tool requests. The owning capability
	// folds them into its delta; the executor applies them.
	Ops state.Delta `json:"ops,omitempty"`

	// ExitLoop requests termination of the nearest enclosing loop.
	ExitLoop bool `json:"exitLoop,omitempty"`

	// TransferTo requests a handoff to the named node. The target must be
	// declared on the invoking leaf.
	TransferTo string `json:"transferTo,omitempty"`
}

// NewTextResult wraps plain text as a tool result.
func NewTextResult(text string) *Result {
	raw, _ := json.Marshal(text)
	return &Result{Content: raw}
}

// Declaration describes a tool to capabilities and to the models behind them.
type Declaration struct {
	// Name is the unique identifier of the tool.
	Name string `json:"name"`

	// Description explains the tool's purpose and when to call it.
	Description string `json:"description"`

	// InputSchema defines the expected argument object in JSON schema form.
	InputSchema *Schema `json:"inputSchema"`

	// OutputSchema optionally defines the result payload.
	OutputSchema *Schema `json:"outputSchema,omitempty"`
}

// Schema is the JSON-schema subset used to declare tool arguments and
// results.
type Schema struct {
	// Type specifies the data type (e.g. "object", "array", "string").
	// Empty means any type.
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
	// Properties of an object schema, each with its own schema.
	Properties map[string]*Schema `json:"properties,omitempty"`
	// Items is the element schema for array types.
	Items *Schema `json:"items,omitempty"`
	// AdditionalProperties controls undeclared object properties.
	AdditionalProperties any `json:"additionalProperties,omitempty"`
}
