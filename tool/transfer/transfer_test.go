//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package transfer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-workflow-go/state"
)

func newTool() *Tool {
	return New(
		Target{Name: "film-concept-team", Description: "Develops the full film pitch"},
		Target{Name: "archivist", Description: "Answers questions about past sessions"},
	)
}

func TestDeclarationListsTargets(t *testing.T) {
	decl := newTool().Declaration()
	require.Equal(t, ToolName, decl.Name)
	desc := decl.InputSchema.Properties["agent_name"].Description
	require.Contains(t, desc, "film-concept-team: Develops the full film pitch")
	require.Contains(t, desc, "archivist")
}

func TestCallRaisesTransferSignal(t *testing.T) {
	res, err := newTool().Call(context.Background(),
		json.RawMessage(`{"agent_name":"film-concept-team"}`), state.State{}.View())
	require.NoError(t, err)
	require.Equal(t, "film-concept-team", res.TransferTo)
	require.False(t, res.ExitLoop)
	require.Empty(t, res.Ops)

	var resp Response
	require.NoError(t, json.Unmarshal(res.Content, &resp))
	require.True(t, resp.Success)
	require.Equal(t, "film-concept-team", resp.TargetAgent)
}

func TestCallUnknownTarget(t *testing.T) {
	_, err := newTool().Call(context.Background(),
		json.RawMessage(`{"agent_name":"ghost"}`), state.State{}.View())
	require.ErrorContains(t, err, `unknown target "ghost"`)
}

func TestCallMissingTarget(t *testing.T) {
	_, err := newTool().Call(context.Background(), nil, state.State{}.View())
	require.ErrorContains(t, err, "agent_name is required")
}
