//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package function wraps a typed Go function as a tool. Argument and result
// schemas are reflected from the function's input and output types, so model
// adapters can declare the tool without hand-written JSON schema.
package function

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	ischema "trpc.group/trpc-go/trpc-workflow-go/internal/schema"
	"trpc.group/trpc-go/trpc-workflow-go/state"
	"trpc.group/trpc-go/trpc-workflow-go/tool"
)

// Tool adapts a typed function to the tool interface. I is the argument
// struct the model fills in, O the result payload handed back to it.
type Tool[I, O any] struct {
	name         string
	description  string
	inputSchema  *tool.Schema
	outputSchema *tool.Schema
	fn           func(ctx context.Context, in I) (O, error)
}

// Option configures a function tool.
type Option func(*options)

type options struct {
	name        string
	description string
}

// WithName sets the tool's name. Required: registries reject unnamed tools.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithDescription sets the tool's description shown to models.
func WithDescription(description string) Option {
	return func(o *options) { o.description = description }
}

// New wraps fn as a tool, reflecting schemas from I and O.
func New[I, O any](fn func(ctx context.Context, in I) (O, error), opts ...Option) *Tool[I, O] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var (
		emptyI I
		emptyO O
	)
	return &Tool[I, O]{
		name:         o.name,
		description:  o.description,
		inputSchema:  ischema.Generate(reflect.TypeOf(emptyI)),
		outputSchema: ischema.Generate(reflect.TypeOf(emptyO)),
		fn:           fn,
	}
}

// Declaration returns the tool's metadata.
func (t *Tool[I, O]) Declaration() *tool.Declaration {
	return &tool.Declaration{
		Name:         t.name,
		Description:  t.description,
		InputSchema:  t.inputSchema,
		OutputSchema: t.outputSchema,
	}
}

// Call decodes args into I, runs the function and encodes its result. The
// state view is unused: a plain function tool works on its arguments alone.
func (t *Tool[I, O]) Call(ctx context.Context, args json.RawMessage, _ state.View) (*tool.Result, error) {
	var input I
	if len(args) > 0 {
		if err := json.Unmarshal(args, &input); err != nil {
			return nil, fmt.Errorf("decode %q arguments: %w", t.name, err)
		}
	}

	output, err := t.fn(ctx, input)
	if err != nil {
		return nil, err
	}

	content, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("encode %q result: %w", t.name, err)
	}
	return &tool.Result{Content: content}, nil
}
