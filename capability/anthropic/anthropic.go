//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package anthropic adapts the Anthropic Messages API as a capability. Each
// Invoke runs a bounded tool-use loop: tool_use blocks are executed against
// the leaf's registry, results go back as tool_result blocks, and the final
// text blocks become the capability output.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"trpc.group/trpc-go/trpc-workflow-go/capability"
	itelemetry "trpc.group/trpc-go/trpc-workflow-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-workflow-go/telemetry/trace"
	"trpc.group/trpc-go/trpc-workflow-go/tool"
)

const (
	defaultMaxTokens     = 4096
	defaultMaxToolRounds = 8
)

// Capability drives a Claude model through the Messages API.
type Capability struct {
	client        anthropic.Client
	model         anthropic.Model
	instruction   string
	temperature   *float64
	maxTokens     int64
	maxToolRounds int
}

// Option configures the capability.
type Option func(*options)

type options struct {
	apiKey        string
	baseURL       string
	instruction   string
	temperature   *float64
	maxTokens     int64
	maxToolRounds int
	clientOpts    []option.RequestOption
}

// WithAPIKey sets the API key. Defaults to the SDK's environment lookup.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithInstruction sets the system prompt template. State placeholders like
// {topic} are resolved against session state on every invocation.
func WithInstruction(instruction string) Option {
	return func(o *options) { o.instruction = instruction }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *options) { o.temperature = &t }
}

// WithMaxTokens caps completion length. The Messages API requires a cap;
// the default is 4096.
func WithMaxTokens(n int64) Option {
	return func(o *options) { o.maxTokens = n }
}

// WithMaxToolRounds bounds how many tool-use rounds one invocation may run.
func WithMaxToolRounds(n int) Option {
	return func(o *options) { o.maxToolRounds = n }
}

// WithClientOptions appends raw SDK request options.
func WithClientOptions(opts ...option.RequestOption) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// New creates an Anthropic capability for the named model.
func New(model string, opts ...Option) *Capability {
	o := &options{maxTokens: defaultMaxTokens, maxToolRounds: defaultMaxToolRounds}
	for _, opt := range opts {
		opt(o)
	}

	var clientOpts []option.RequestOption
	if o.apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(o.baseURL))
	}
	clientOpts = append(clientOpts, o.clientOpts...)

	return &Capability{
		client:        anthropic.NewClient(clientOpts...),
		model:         anthropic.Model(model),
		instruction:   o.instruction,
		temperature:   o.temperature,
		maxTokens:     o.maxTokens,
		maxToolRounds: o.maxToolRounds,
	}
}

// Invoke implements the capability interface.
func (c *Capability) Invoke(ctx context.Context, req *capability.Request) (*capability.Result, error) {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(req.Input)),
	}
	tools := convertTools(req.Tools)

	var collector capability.Collector
	for round := 0; ; round++ {
		params := anthropic.MessageNewParams{
			Model:     c.model,
			Messages:  messages,
			MaxTokens: c.maxTokens,
			Tools:     tools,
		}
		if c.instruction != "" {
			params.System = []anthropic.TextBlockParam{
				{Text: capability.InjectState(c.instruction, req.State)},
			}
		}
		if c.temperature != nil {
			params.Temperature = anthropic.Float(*c.temperature)
		}

		message, err := c.call(ctx, req, params)
		if err != nil {
			return nil, err
		}

		var (
			text        strings.Builder
			toolResults []anthropic.ContentBlockParamUnion
		)
		for _, block := range message.Content {
			switch block.Type {
			case "text":
				text.WriteString(block.AsText().Text)
			case "tool_use":
				use := block.AsToolUse()
				args, _ := json.Marshal(use.Input)
				result, err := capability.ExecuteTool(ctx, req.Tools, use.Name, args, req.State)
				if err != nil {
					return nil, err
				}
				collector.Fold(result)
				toolResults = append(toolResults,
					anthropic.NewToolResultBlock(use.ID, toolContent(result), false))
			}
		}

		if len(toolResults) == 0 {
			return &capability.Result{
				Output:     text.String(),
				Delta:      collector.Delta(),
				ExitLoop:   collector.ExitLoop(),
				TransferTo: collector.TransferTo(),
			}, nil
		}
		if round >= c.maxToolRounds {
			return nil, capability.NewFatal(
				fmt.Sprintf("tool-use loop exceeded %d rounds", c.maxToolRounds), nil)
		}

		messages = append(messages, message.ToParam())
		messages = append(messages, anthropic.NewUserMessage(toolResults...))
	}
}

func (c *Capability) call(
	ctx context.Context,
	req *capability.Request,
	params anthropic.MessageNewParams,
) (*anthropic.Message, error) {
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanNameCallModel)
	defer span.End()

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}
	itelemetry.TraceModelCall(span, req.SessionID, req.Node, string(c.model), &params, message)
	return message, nil
}

// classify sorts provider errors into transient and fatal, mirroring the
// retry advice in Anthropic's API documentation.
func classify(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusTooManyRequests,
			apierr.StatusCode == http.StatusRequestTimeout,
			apierr.StatusCode >= http.StatusInternalServerError:
			return capability.NewTransient(fmt.Sprintf("anthropic: status %d", apierr.StatusCode), err)
		default:
			return capability.NewFatal(fmt.Sprintf("anthropic: status %d", apierr.StatusCode), err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return capability.NewTransient("anthropic: request failed", err)
}

func convertTools(reg *tool.Registry) []anthropic.ToolUnionParam {
	if reg == nil || reg.Len() == 0 {
		return nil
	}
	declarations := reg.Declarations()
	result := make([]anthropic.ToolUnionParam, 0, len(declarations))
	for _, decl := range declarations {
		schema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		if decl.InputSchema != nil {
			schema.Properties = decl.InputSchema.Properties
			schema.Required = decl.InputSchema.Required
		}
		result = append(result, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        decl.Name,
				Description: anthropic.String(decl.Description),
				InputSchema: schema,
			},
		})
	}
	return result
}

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
