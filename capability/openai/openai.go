//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package openai adapts the OpenAI Chat Completions API (and compatible
// endpoints) as a capability. Each Invoke runs a bounded tool-call loop: the
// model may request tools from the leaf's registry, results are fed back, and
// the final assistant text becomes the capability output.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"trpc.group/trpc-go/trpc-workflow-go/capability"
	itelemetry "trpc.group/trpc-go/trpc-workflow-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-workflow-go/telemetry/trace"
	"trpc.group/trpc-go/trpc-workflow-go/tool"
)

const defaultMaxToolRounds = 8

// Capability drives an OpenAI-compatible chat model.
type Capability struct {
	client        openai.Client
	model         string
	instruction   string
	temperature   *float64
	maxTokens     *int64
	maxToolRounds int
}

// Option configures the capability.
type Option func(*options)

type options struct {
	apiKey        string
	baseURL       string
	instruction   string
	temperature   *float64
	maxTokens     *int64
	maxToolRounds int
	clientOpts    []openaiopt.RequestOption
}

// WithAPIKey sets the API key. Defaults to the SDK's environment lookup.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithInstruction sets the system instruction template. State placeholders
// like {topic} are resolved against session state on every invocation.
func WithInstruction(instruction string) Option {
	return func(o *options) { o.instruction = instruction }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *options) { o.temperature = &t }
}

// WithMaxTokens caps completion length.
func WithMaxTokens(n int64) Option {
	return func(o *options) { o.maxTokens = &n }
}

// WithMaxToolRounds bounds how many tool-call rounds one invocation may run.
func WithMaxToolRounds(n int) Option {
	return func(o *options) { o.maxToolRounds = n }
}

// WithClientOptions appends raw SDK request options.
func WithClientOptions(opts ...openaiopt.RequestOption) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// New creates an OpenAI capability for the named model.
func New(model string, opts ...Option) *Capability {
	o := &options{maxToolRounds: defaultMaxToolRounds}
	for _, opt := range opts {
		opt(o)
	}

	var clientOpts []openaiopt.RequestOption
	if o.apiKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(o.baseURL))
	}
	clientOpts = append(clientOpts, o.clientOpts...)

	return &Capability{
		client:        openai.NewClient(clientOpts...),
		model:         model,
		instruction:   o.instruction,
		temperature:   o.temperature,
		maxTokens:     o.maxTokens,
		maxToolRounds: o.maxToolRounds,
	}
}

// Invoke implements the capability interface.
func (c *Capability) Invoke(ctx context.Context, req *capability.Request) (*capability.Result, error) {
	messages := c.initialMessages(req)
	tools := convertTools(req.Tools)

	var collector capability.Collector
	for round := 0; ; round++ {
		params := openai.ChatCompletionNewParams{
			Model:    shared.ChatModel(c.model),
			Messages: messages,
			Tools:    tools,
		}
		if c.temperature != nil {
			params.Temperature = openai.Float(*c.temperature)
		}
		if c.maxTokens != nil {
			params.MaxCompletionTokens = openai.Int(*c.maxTokens)
		}

		completion, err := c.call(ctx, req, params)
		if err != nil {
			return nil, err
		}
		if len(completion.Choices) == 0 {
			return nil, capability.NewTransient("model returned no choices", nil)
		}
		message := completion.Choices[0].Message

		if len(message.ToolCalls) == 0 {
			return &capability.Result{
				Output:     message.Content,
				Delta:      collector.Delta(),
				ExitLoop:   collector.ExitLoop(),
				TransferTo: collector.TransferTo(),
			}, nil
		}
		if round >= c.maxToolRounds {
			return nil, capability.NewFatal(
				fmt.Sprintf("tool-call loop exceeded %d rounds", c.maxToolRounds), nil)
		}

		messages = append(messages, message.ToParam())
		for _, call := range message.ToolCalls {
			result, err := capability.ExecuteTool(
				ctx, req.Tools, call.Function.Name, json.RawMessage(call.Function.Arguments), req.State)
			if err != nil {
				return nil, err
			}
			collector.Fold(result)
			messages = append(messages, openai.ToolMessage(toolContent(result), call.ID))
		}
	}
}

func (c *Capability) initialMessages(req *capability.Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if c.instruction != "" {
		messages = append(messages, openai.SystemMessage(capability.InjectState(c.instruction, req.State)))
	}
	if req.Input != "" {
		messages = append(messages, openai.UserMessage(req.Input))
	}
	return messages
}

func (c *Capability) call(
	ctx context.Context,
	req *capability.Request,
	params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanNameCallModel)
	defer span.End()

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}
	itelemetry.TraceModelCall(span, req.SessionID, req.Node, c.model, &params, completion)
	return completion, nil
}

// classify sorts provider errors into transient and fatal. Rate limits,
// server errors and transport timeouts are worth retrying; everything else
// (bad request, auth, quota) will fail the same way again.
func classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusTooManyRequests,
			apierr.StatusCode == http.StatusRequestTimeout,
			apierr.StatusCode >= http.StatusInternalServerError:
			return capability.NewTransient(fmt.Sprintf("openai: status %d", apierr.StatusCode), err)
		default:
			return capability.NewFatal(fmt.Sprintf("openai: status %d", apierr.StatusCode), err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	// Anything below the HTTP layer (DNS, reset connections) is transient.
	return capability.NewTransient("openai: request failed", err)
}

func convertTools(reg *tool.Registry) []openai.ChatCompletionToolParam {
	if reg == nil || reg.Len() == 0 {
		return nil
	}
	declarations := reg.Declarations()
	result := make([]openai.ChatCompletionToolParam, 0, len(declarations))
	for _, decl := range declarations {
		parameters := shared.FunctionParameters{"type": "object"}
		if decl.InputSchema != nil {
			raw, err := json.Marshal(decl.InputSchema)
			if err == nil {
				_ = json.Unmarshal(raw, &parameters)
			}
		}
		result = append(result, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        decl.Name,
				Description: openai.String(decl.Description),
				Parameters:  parameters,
			},
		})
	}
	return result
}

// toolContent renders a tool result for the model. JSON strings are unquoted
// so the model sees plain text; other payloads stay JSON.
func toolContent(result *tool.Result) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(result.Content, &text); err == nil {
		return text
	}
	return strings.TrimSpace(string(result.Content))
}
