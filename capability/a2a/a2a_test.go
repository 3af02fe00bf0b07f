//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package a2a

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"
	a2aserver "trpc.group/trpc-go/trpc-a2a-go/server"
	"trpc.group/trpc-go/trpc-a2a-go/taskmanager"

	"trpc.group/trpc-go/trpc-workflow-go/capability"
)

// echoProcessor answers every message with "echo: <text>".
type echoProcessor struct{}

func (echoProcessor) ProcessMessage(
	ctx context.Context,
	message protocol.Message,
	options taskmanager.ProcessOptions,
	handler taskmanager.TaskHandler,
) (*taskmanager.MessageProcessingResult, error) {
	var text strings.Builder
	for _, part := range message.Parts {
		switch p := part.(type) {
		case *protocol.TextPart:
			text.WriteString(p.Text)
		case protocol.TextPart:
			text.WriteString(p.Text)
		}
	}
	reply := protocol.NewMessage(protocol.MessageRoleAgent,
		[]protocol.Part{protocol.NewTextPart("echo: " + text.String())})
	return &taskmanager.MessageProcessingResult{Result: &reply}, nil
}

func startEchoAgent(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host := listener.Addr().String()
	require.NoError(t, listener.Close())

	manager, err := taskmanager.NewMemoryTaskManager(echoProcessor{})
	require.NoError(t, err)

	streaming := false
	card := a2aserver.AgentCard{
		Name:        "echo-agent",
		Description: "echoes what it hears",
		URL:         fmt.Sprintf("http://%s", host),
		Capabilities: a2aserver.AgentCapabilities{
			Streaming: &streaming,
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	}
	srv, err := a2aserver.NewA2AServer(card, manager)
	require.NoError(t, err)

	go func() { _ = srv.Start(host) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})

	// Wait for the listener to come up.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", host, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Sprintf("http://%s/", host)
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("a2a server on %s never became reachable", host)
	return ""
}

func TestInvokeRemoteAgent(t *testing.T) {
	url := startEchoAgent(t)

	cap, err := New(url)
	require.NoError(t, err)

	res, err := cap.Invoke(context.Background(), &capability.Request{Input: "ping"})
	require.NoError(t, err)
	require.Equal(t, "echo: ping", res.Output)
	require.True(t, res.Delta.IsEmpty())
	require.False(t, res.ExitLoop)
}

func TestInvokeUnreachableAgentIsTransient(t *testing.T) {
	// A port nothing listens on.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host := listener.Addr().String()
	require.NoError(t, listener.Close())

	cap, err := New(fmt.Sprintf("http://%s/", host))
	require.NoError(t, err)

	_, err = cap.Invoke(context.Background(), &capability.Request{Input: "ping"})
	require.Error(t, err)
	require.True(t, capability.IsTransient(err))
}

func TestExtractTextFromTask(t *testing.T) {
	statusMsg := protocol.NewMessage(protocol.MessageRoleAgent,
		[]protocol.Part{protocol.NewTextPart(" and a closing note")})
	task := &protocol.Task{
		ID: "task-1",
		Artifacts: []protocol.Artifact{
			{Parts: []protocol.Part{protocol.NewTextPart("artifact text")}},
		},
		Status: protocol.TaskStatus{Message: &statusMsg},
	}

	text, err := extractText(task)
	require.NoError(t, err)
	require.Equal(t, "artifact text and a closing note", text)
}

func TestExtractTextNilResult(t *testing.T) {
	text, err := extractText(nil)
	require.NoError(t, err)
	require.Empty(t, text)
}
