//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package artifact

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-workflow-go/artifact/inmemory"
	"trpc.group/trpc-go/trpc-workflow-go/capability"
	"trpc.group/trpc-go/trpc-workflow-go/state"
	"trpc.group/trpc-go/trpc-workflow-go/tool"
)

func sessionContext(id string) context.Context {
	return capability.NewContext(context.Background(), &capability.Request{SessionID: id})
}

func call(t *testing.T, tl tool.Tool, ctx context.Context, args string, out any) error {
	t.Helper()
	res, err := tl.Call(ctx, json.RawMessage(args), state.State{}.View())
	if err != nil {
		return err
	}
	require.NoError(t, json.Unmarshal(res.Content, out))
	return nil
}

func TestSaveLoadListRoundTrip(t *testing.T) {
	svc := inmemory.NewService()
	tools := NewTools(svc)
	require.Len(t, tools, 3)
	save, load, list := tools[0], tools[1], tools[2]
	ctx := sessionContext("sess-1")

	var saved saveResult
	require.NoError(t, call(t, save, ctx, `{"name":"report.md","content":"draft one"}`, &saved))
	require.Equal(t, 0, saved.Version)

	require.NoError(t, call(t, save, ctx, `{"name":"report.md","content":"draft two"}`, &saved))
	require.Equal(t, 1, saved.Version)
	require.Equal(t, "saved report.md as version 1", saved.Message)

	var loaded loadResult
	require.NoError(t, call(t, load, ctx, `{"name":"report.md"}`, &loaded))
	require.Equal(t, "draft two", loaded.Content)
	require.Equal(t, "text/plain", loaded.MimeType)

	require.NoError(t, call(t, load, ctx, `{"name":"report.md","version":0}`, &loaded))
	require.Equal(t, "draft one", loaded.Content)

	var listed listResult
	require.NoError(t, call(t, list, ctx, `{}`, &listed))
	require.Equal(t, []string{"report.md"}, listed.Names)
}

func TestToolsRequireSession(t *testing.T) {
	save := NewSaveTool(inmemory.NewService())

	var out saveResult
	err := call(t, save, context.Background(), `{"name":"x","content":"y"}`, &out)
	require.ErrorContains(t, err, "none in context")
}

func TestLoadMissingArtifact(t *testing.T) {
	load := NewLoadTool(inmemory.NewService())

	var out loadResult
	err := call(t, load, sessionContext("sess-1"), `{"name":"ghost.md"}`, &out)
	require.ErrorContains(t, err, `artifact "ghost.md" not found`)
}

func TestSessionsAreIsolated(t *testing.T) {
	svc := inmemory.NewService()
	save := NewSaveTool(svc)
	list := NewListTool(svc)

	var saved saveResult
	require.NoError(t, call(t, save, sessionContext("sess-1"), `{"name":"a.md","content":"a"}`, &saved))

	var listed listResult
	require.NoError(t, call(t, list, sessionContext("sess-2"), `{}`, &listed))
	require.Empty(t, listed.Names)
}

func TestDeclarations(t *testing.T) {
	for _, tl := range NewTools(inmemory.NewService()) {
		decl := tl.Declaration()
		require.NotEmpty(t, decl.Name)
		require.NotEmpty(t, decl.Description)
	}
}
