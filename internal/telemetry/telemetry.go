//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry holds the shared constants and span helpers used by the
// trace and metric packages and by the capability adapters.
package telemetry

import (
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"trpc.group/trpc-go/trpc-workflow-go/tool"
)

// telemetry service constants.
const (
	ServiceName      = "telemetry"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "trpc-go-workflow"
	InstrumentName   = "trpc.workflow.go"

	SpanNameRunWorkflow       = "run_workflow"
	SpanNameCallModel         = "call_model"
	SpanNamePrefixExecuteTool = "execute_tool"
)

const (
	// ProtocolGRPC uses gRPC protocol for OTLP exporter.
	ProtocolGRPC string = "grpc"
	// ProtocolHTTP uses HTTP protocol for OTLP exporter.
	ProtocolHTTP string = "http"
)

// telemetry attributes constants.
var (
	KeySessionID     = "trpc.go.workflow.session_id"
	KeyNode          = "trpc.go.workflow.node"
	KeyEventSeq      = "trpc.go.workflow.event_seq"
	KeyModelRequest  = "trpc.go.workflow.model_request"
	KeyModelResponse = "trpc.go.workflow.model_response"
)

// TraceToolCall records the invocation of a tool call on span.
func TraceToolCall(span trace.Span, declaration *tool.Declaration, args json.RawMessage, result *tool.Result) {
	span.SetAttributes(
		attribute.String("gen_ai.system", "trpc.go.workflow"),
		attribute.String("gen_ai.operation.name", "tool.execute"),
		attribute.String("gen_ai.tool.name", declaration.Name),
		attribute.String("gen_ai.tool.description", declaration.Description),
		attribute.String("trpc.go.workflow.tool_call_args", string(args)),
	)
	if result == nil {
		return
	}
	if bts, err := json.Marshal(result); err == nil {
		span.SetAttributes(attribute.String("trpc.go.workflow.tool_response", string(bts)))
	} else {
		span.SetAttributes(attribute.String("trpc.go.workflow.tool_response", "<not json serializable>"))
	}
}

// TraceModelCall records one model invocation on span. req and rsp are the
// provider-specific request and response, serialized when possible.
func TraceModelCall(span trace.Span, sessionID, nodeName, modelName string, req, rsp any) {
	span.SetAttributes(
		attribute.String("gen_ai.system", "trpc.go.workflow"),
		attribute.String(KeySessionID, sessionID),
		attribute.String(KeyNode, nodeName),
		attribute.String("gen_ai.request.model", modelName),
	)
	if bts, err := json.Marshal(req); err == nil {
		span.SetAttributes(attribute.String(KeyModelRequest, string(bts)))
	} else {
		span.SetAttributes(attribute.String(KeyModelRequest, "<not json serializable>"))
	}
	if bts, err := json.Marshal(rsp); err == nil {
		span.SetAttributes(attribute.String(KeyModelResponse, string(bts)))
	} else {
		span.SetAttributes(attribute.String(KeyModelResponse, "<not json serializable>"))
	}
}

// NewGRPCConn creates a new gRPC connection to the OpenTelemetry Collector.
func NewGRPCConn(endpoint string) (*grpc.ClientConn, error) {
	// Note the use of insecure transport here. TLS is recommended in production.
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}
	return conn, nil
}
