//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package loopexit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-workflow-go/state"
	"trpc.group/trpc-go/trpc-workflow-go/tool"
)

func TestDeclarationUsesReservedName(t *testing.T) {
	decl := New().Declaration()
	require.Equal(t, tool.LoopExitName, decl.Name)
	require.NotEmpty(t, decl.Description)
}

func TestCallRaisesExitSignal(t *testing.T) {
	res, err := New().Call(context.Background(), json.RawMessage(`{"reason":"report finished"}`), state.State{}.View())
	require.NoError(t, err)
	require.True(t, res.ExitLoop)
	require.Empty(t, res.Ops)

	var resp Response
	require.NoError(t, json.Unmarshal(res.Content, &resp))
	require.True(t, resp.Success)
	require.Contains(t, resp.Message, "report finished")
}

func TestCallWithoutArgs(t *testing.T) {
	res, err := New().Call(context.Background(), nil, state.State{}.View())
	require.NoError(t, err)
	require.True(t, res.ExitLoop)
}
