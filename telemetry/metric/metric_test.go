//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package metric

import (
	"context"
	"testing"
)

func TestMetricsEndpoint(t *testing.T) {
	const (
		customEndpoint  = "custom-metric:4317"
		genericEndpoint = "generic-endpoint:4317"
	)

	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", customEndpoint)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", genericEndpoint)
	if ep := metricsEndpoint(); ep != customEndpoint {
		t.Fatalf("expected %s, got %s", customEndpoint, ep)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")
	if ep := metricsEndpoint(); ep != genericEndpoint {
		t.Fatalf("expected %s, got %s", genericEndpoint, ep)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	if ep := metricsEndpoint(); ep == "" {
		t.Fatalf("expected non-empty default endpoint")
	}
}

func TestStartAndClean(t *testing.T) {
	ctx := context.Background()
	clean, err := Start(ctx, WithEndpoint("localhost:4317"))
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if clean == nil {
		t.Fatalf("expected non-nil cleanup function")
	}
	if Meter == nil {
		t.Fatalf("expected global meter to be installed")
	}
	_ = clean()
}
