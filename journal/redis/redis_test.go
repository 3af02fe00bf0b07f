//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-workflow-go/event"
	"trpc.group/trpc-go/trpc-workflow-go/journal"
	"trpc.group/trpc-go/trpc-workflow-go/state"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s, err := New(WithURL("redis://" + mr.Addr()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAssignsSequences(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	e1 := event.NewStateDelta("sess", "a", state.Delta{state.SetString("a", "1")})
	e2 := event.NewStateDelta("sess", "b", state.Delta{state.SetString("b", "2")})

	last, err := s.Append(ctx, "sess", e1, e2)
	require.NoError(t, err)
	require.EqualValues(t, 2, last)
	require.EqualValues(t, 1, e1.Seq)
	require.EqualValues(t, 2, e2.Seq)

	last, err = s.Append(ctx, "sess", event.New("sess", "c", event.KindNodeStart))
	require.NoError(t, err)
	require.EqualValues(t, 3, last)

	// A different session starts at 1.
	last, err = s.Append(ctx, "other", event.New("other", "n", event.KindNodeStart))
	require.NoError(t, err)
	require.EqualValues(t, 1, last)
}

func TestReadSinceOrdersAndFilters(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, "sess",
			event.NewStateDelta("sess", "n", state.Delta{state.AppendString("log", "x")}))
		require.NoError(t, err)
	}

	all, err := s.ReadSince(ctx, "sess", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, ev := range all {
		require.EqualValues(t, i+1, ev.Seq)
		require.Equal(t, event.KindStateDelta, ev.Kind)
	}

	tail, err := s.ReadSince(ctx, "sess", 3)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	require.EqualValues(t, 4, tail[0].Seq)

	none, err := s.ReadSince(ctx, "empty", 0)
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	none, err := s.ReadLatestSnapshot(ctx, "sess")
	require.NoError(t, err)
	require.Nil(t, none)

	st := state.New()
	require.NoError(t, st.Apply(state.Delta{state.SetString("k", "v")}))
	require.NoError(t, s.WriteSnapshot(ctx, &journal.Snapshot{SessionID: "sess", Seq: 4, State: st}))

	snap, err := s.ReadLatestSnapshot(ctx, "sess")
	require.NoError(t, err)
	require.Equal(t, "sess", snap.SessionID)
	require.EqualValues(t, 4, snap.Seq)
	require.JSONEq(t, `"v"`, string(snap.State["k"]))
}

func TestKeyPrefixIsolation(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	ctx := context.Background()

	a, err := New(WithURL("redis://"+mr.Addr()), WithKeyPrefix("engine-a"))
	require.NoError(t, err)
	defer a.Close()
	b, err := New(WithURL("redis://"+mr.Addr()), WithKeyPrefix("engine-b"))
	require.NoError(t, err)
	defer b.Close()

	_, err = a.Append(ctx, "sess", event.New("sess", "n", event.KindNodeStart))
	require.NoError(t, err)

	events, err := b.ReadSince(ctx, "sess", 0)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestBadURL(t *testing.T) {
	_, err := New(WithURL("not-a-url"))
	require.Error(t, err)
}
