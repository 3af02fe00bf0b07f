//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package gemini adapts the Gemini API as a capability. Each Invoke runs a
// bounded function-calling loop: function calls are executed against the
// leaf's registry, responses go back as function-response parts, and the
// final text becomes the capability output.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"trpc.group/trpc-go/trpc-workflow-go/capability"
	itelemetry "trpc.group/trpc-go/trpc-workflow-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-workflow-go/telemetry/trace"
	"trpc.group/trpc-go/trpc-workflow-go/tool"
)

const defaultMaxToolRounds = 8

// Capability drives a Gemini model.
type Capability struct {
	client        *genai.Client
	model         string
	instruction   string
	temperature   *float32
	maxTokens     int32
	maxToolRounds int
}

// Option configures the capability.
type Option func(*options)

type options struct {
	apiKey        string
	instruction   string
	temperature   *float32
	maxTokens     int32
	maxToolRounds int
	clientConfig  *genai.ClientConfig
}

// WithAPIKey sets the API key. Ignored when WithClientConfig supplies one.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithInstruction sets the system instruction template. State placeholders
// like {topic} are resolved against session state on every invocation.
func WithInstruction(instruction string) Option {
	return func(o *options) { o.instruction = instruction }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(o *options) { o.temperature = &t }
}

// WithMaxTokens caps completion length.
func WithMaxTokens(n int32) Option {
	return func(o *options) { o.maxTokens = n }
}

// WithMaxToolRounds bounds how many function-calling rounds one invocation
// may run.
func WithMaxToolRounds(n int) Option {
	return func(o *options) { o.maxToolRounds = n }
}

// WithClientConfig sets the full client configuration, for Vertex backends
// or custom HTTP options.
func WithClientConfig(cfg *genai.ClientConfig) Option {
	return func(o *options) {
		c := *cfg
		o.clientConfig = &c
	}
}

// New creates a Gemini capability for the named model.
func New(ctx context.Context, model string, opts ...Option) (*Capability, error) {
	o := &options{maxToolRounds: defaultMaxToolRounds}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.clientConfig
	if cfg == nil {
		cfg = &genai.ClientConfig{}
	}
	if cfg.APIKey == "" {
		cfg.APIKey = o.apiKey
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Capability{
		client:        client,
		model:         model,
		instruction:   o.instruction,
		temperature:   o.temperature,
		maxTokens:     o.maxTokens,
		maxToolRounds: o.maxToolRounds,
	}, nil
}

// Invoke implements the capability interface.
func (c *Capability) Invoke(ctx context.Context, req *capability.Request) (*capability.Result, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(req.Input, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{}
	if c.instruction != "" {
		config.SystemInstruction = genai.NewContentFromText(
			capability.InjectState(c.instruction, req.State), genai.RoleUser)
	}
	if c.temperature != nil {
		config.Temperature = genai.Ptr(*c.temperature)
	}
	if c.maxTokens > 0 {
		config.MaxOutputTokens = c.maxTokens
	}
	if tools := convertTools(req.Tools); tools != nil {
		config.Tools = tools
	}

	var collector capability.Collector
	for round := 0; ; round++ {
		response, err := c.call(ctx, req, contents, config)
		if err != nil {
			return nil, err
		}

		calls := response.FunctionCalls()
		if len(calls) == 0 {
			return &capability.Result{
				Output:     response.Text(),
				Delta:      collector.Delta(),
				ExitLoop:   collector.ExitLoop(),
				TransferTo: collector.TransferTo(),
			}, nil
		}
		if round >= c.maxToolRounds {
			return nil, capability.NewFatal(
				fmt.Sprintf("function-calling loop exceeded %d rounds", c.maxToolRounds), nil)
		}

		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			args, err := json.Marshal(call.Args)
			if err != nil {
				return nil, capability.NewFatal(
					fmt.Sprintf("encode %q arguments", call.Name), err)
			}
			result, err := capability.ExecuteTool(ctx, req.Tools, call.Name, args, req.State)
			if err != nil {
				return nil, err
			}
			collector.Fold(result)
			parts = append(parts, genai.NewPartFromFunctionResponse(call.Name, toolResponse(result)))
		}

		if len(response.Candidates) > 0 && response.Candidates[0].Content != nil {
			contents = append(contents, response.Candidates[0].Content)
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	}
}

func (c *Capability) call(
	ctx context.Context,
	req *capability.Request,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanNameCallModel)
	defer span.End()

	response, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, classify(err)
	}
	itelemetry.TraceModelCall(span, req.SessionID, req.Node, c.model, contents, response)
	return response, nil
}

// classify sorts provider errors into transient and fatal.
func classify(err error) error {
	var apierr genai.APIError
	if errors.As(err, &apierr) {
		switch {
		case apierr.Code == http.StatusTooManyRequests,
			apierr.Code == http.StatusRequestTimeout,
			apierr.Code >= http.StatusInternalServerError:
			return capability.NewTransient(fmt.Sprintf("gemini: status %d", apierr.Code), err)
		default:
			return capability.NewFatal(fmt.Sprintf("gemini: status %d", apierr.Code), err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return capability.NewTransient("gemini: request failed", err)
}

func convertTools(reg *tool.Registry) []*genai.Tool {
	if reg == nil || reg.Len() == 0 {
		return nil
	}
	declarations := reg.Declarations()
	fns := make([]*genai.FunctionDeclaration, 0, len(declarations))
	for _, decl := range declarations {
		fns = append(fns, &genai.FunctionDeclaration{
			Name:        decl.Name,
			Description: decl.Description,
			Parameters:  convertSchema(decl.InputSchema),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: fns}}
}

func convertSchema(s *tool.Schema) *genai.Schema {
	if s == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	out := &genai.Schema{
		Type:        convertType(s.Type),
		Description: s.Description,
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = convertSchema(prop)
		}
	}
	if s.Items != nil {
		out.Items = convertSchema(s.Items)
	}
	return out
}

func convertType(t string) genai.Type {
	// Nullable types are declared as "<type>,null"; Gemini has no null
	// variant, so the base type is used.
	if idx := strings.Index(t, ","); idx != -1 {
		t = t[:idx]
	}
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

// toolResponse shapes a tool result as the map the function-response part
// expects. Non-object payloads are wrapped under "result".
func toolResponse(result *tool.Result) map[string]any {
	if result == nil || len(result.Content) == 0 {
		return map[string]any{}
	}
	var obj map[string]any
	if err := json.Unmarshal(result.Content, &obj); err == nil {
		return obj
	}
	var v any
	if err := json.Unmarshal(result.Content, &v); err == nil {
		return map[string]any{"result": v}
	}
	return map[string]any{"result": string(result.Content)}
}
