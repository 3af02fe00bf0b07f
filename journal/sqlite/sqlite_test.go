//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-workflow-go/event"
	"trpc.group/trpc-go/trpc-workflow-go/journal"
	"trpc.group/trpc-go/trpc-workflow-go/state"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestAppendAndReadSince(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	e1 := event.NewStateDelta("sess", "a", state.Delta{state.SetString("a", "1")})
	e2 := event.NewStateDelta("sess", "b", state.Delta{state.SetString("b", "2")})
	last, err := s.Append(ctx, "sess", e1, e2)
	require.NoError(t, err)
	require.EqualValues(t, 2, last)
	require.EqualValues(t, 1, e1.Seq)
	require.EqualValues(t, 2, e2.Seq)

	events, err := s.ReadSince(ctx, "sess", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, e1.ID, events[0].ID)
	require.Equal(t, event.KindStateDelta, events[0].Kind)
	require.JSONEq(t, `"1"`, string(events[0].Delta[0].Value))

	tail, err := s.ReadSince(ctx, "sess", 1)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	require.EqualValues(t, 2, tail[0].Seq)
}

func TestSequencesArePerSession(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.Append(ctx, "one", event.New("one", "n", event.KindNodeStart))
	require.NoError(t, err)

	last, err := s.Append(ctx, "two", event.New("two", "n", event.KindNodeStart))
	require.NoError(t, err)
	require.EqualValues(t, 1, last)
}

func TestAppendSurvivesReopen(t *testing.T) {
	s, path := newTestService(t)
	ctx := context.Background()

	_, err := s.Append(ctx, "sess",
		event.NewStateDelta("sess", "n", state.Delta{state.AppendString("log", "x")}))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	events, err := reopened.ReadSince(ctx, "sess", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.EqualValues(t, 1, events[0].Seq)

	// Appends continue after the existing tail.
	last, err := reopened.Append(ctx, "sess", event.New("sess", "n", event.KindNodeStart))
	require.NoError(t, err)
	require.EqualValues(t, 2, last)
}

func TestSnapshotUpsert(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	none, err := s.ReadLatestSnapshot(ctx, "sess")
	require.NoError(t, err)
	require.Nil(t, none)

	st := state.New()
	require.NoError(t, st.Apply(state.Delta{state.SetString("k", "v1")}))
	require.NoError(t, s.WriteSnapshot(ctx, &journal.Snapshot{SessionID: "sess", Seq: 3, State: st}))

	st2 := state.New()
	require.NoError(t, st2.Apply(state.Delta{state.SetString("k", "v2")}))
	require.NoError(t, s.WriteSnapshot(ctx, &journal.Snapshot{SessionID: "sess", Seq: 5, State: st2}))

	snap, err := s.ReadLatestSnapshot(ctx, "sess")
	require.NoError(t, err)
	require.EqualValues(t, 5, snap.Seq)
	require.JSONEq(t, `"v2"`, string(snap.State["k"]))
	require.False(t, snap.TakenAt.IsZero())
}

func TestEmptyAppendIsNoop(t *testing.T) {
	s, _ := newTestService(t)
	last, err := s.Append(context.Background(), "sess")
	require.NoError(t, err)
	require.Zero(t, last)
}
