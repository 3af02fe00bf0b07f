//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package inmemory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-workflow-go/event"
	"trpc.group/trpc-go/trpc-workflow-go/journal"
	"trpc.group/trpc-go/trpc-workflow-go/state"
)

func TestAppendAssignsDenseSequences(t *testing.T) {
	s := New()
	ctx := context.Background()

	e1 := event.NewStateDelta("sess", "a", state.Delta{state.SetString("a", "1")})
	e2 := event.NewStateDelta("sess", "b", state.Delta{state.SetString("b", "2")})

	last, err := s.Append(ctx, "sess", e1, e2)
	require.NoError(t, err)
	require.EqualValues(t, 2, last)
	require.EqualValues(t, 1, e1.Seq)
	require.EqualValues(t, 2, e2.Seq)

	e3 := event.NewLoopExit("sess", "loop", event.ReasonMaxIterations, 3)
	last, err = s.Append(ctx, "sess", e3)
	require.NoError(t, err)
	require.EqualValues(t, 3, last)

	// Sequences are per session.
	other := event.New("other", "n", event.KindNodeStart)
	last, err = s.Append(ctx, "other", other)
	require.NoError(t, err)
	require.EqualValues(t, 1, last)
}

func TestAppendEmptyIsNoop(t *testing.T) {
	s := New()
	last, err := s.Append(context.Background(), "sess")
	require.NoError(t, err)
	require.Zero(t, last)
}

func TestReadSinceIsExclusive(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, "sess", event.New("sess", "n", event.KindNodeStart))
		require.NoError(t, err)
	}

	all, err := s.ReadSince(ctx, "sess", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)

	tail, err := s.ReadSince(ctx, "sess", 3)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	require.EqualValues(t, 4, tail[0].Seq)
	require.EqualValues(t, 5, tail[1].Seq)

	none, err := s.ReadSince(ctx, "sess", 5)
	require.NoError(t, err)
	require.Empty(t, none)

	unknown, err := s.ReadSince(ctx, "missing", 0)
	require.NoError(t, err)
	require.Nil(t, unknown)
}

func TestStoredEventsAreIsolated(t *testing.T) {
	s := New()
	ctx := context.Background()

	ev := event.NewStateDelta("sess", "n", state.Delta{state.SetString("k", "v")})
	_, err := s.Append(ctx, "sess", ev)
	require.NoError(t, err)

	// Mutating the appended event after the fact must not touch the log.
	ev.Delta[0].Value[1] = 'x'

	got, err := s.ReadSince(ctx, "sess", 0)
	require.NoError(t, err)
	require.JSONEq(t, `"v"`, string(got[0].Delta[0].Value))

	// Mutating a read result must not touch the log either.
	got[0].Delta[0].Value[1] = 'y'
	again, err := s.ReadSince(ctx, "sess", 0)
	require.NoError(t, err)
	require.JSONEq(t, `"v"`, string(again[0].Delta[0].Value))
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	none, err := s.ReadLatestSnapshot(ctx, "sess")
	require.NoError(t, err)
	require.Nil(t, none)

	st := state.New()
	require.NoError(t, st.Apply(state.Delta{state.SetString("k", "v")}))
	require.NoError(t, s.WriteSnapshot(ctx, &journal.Snapshot{SessionID: "sess", Seq: 3, State: st}))

	snap, err := s.ReadLatestSnapshot(ctx, "sess")
	require.NoError(t, err)
	require.EqualValues(t, 3, snap.Seq)
	require.JSONEq(t, `"v"`, string(snap.State["k"]))

	// A later snapshot replaces the earlier one.
	require.NoError(t, s.WriteSnapshot(ctx, &journal.Snapshot{SessionID: "sess", Seq: 7, State: st.Clone()}))
	snap, err = s.ReadLatestSnapshot(ctx, "sess")
	require.NoError(t, err)
	require.EqualValues(t, 7, snap.Seq)
}

func TestConcurrentAppendsAcrossSessions(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"s1", "s2", "s3", "s4"} {
		wg.Add(1)
		go func(sessionID string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := s.Append(ctx, sessionID, event.New(sessionID, "n", event.KindNodeStart))
				require.NoError(t, err)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"s1", "s2", "s3", "s4"} {
		events, err := s.ReadSince(ctx, id, 0)
		require.NoError(t, err)
		require.Len(t, events, 50)
		for i, ev := range events {
			require.EqualValues(t, i+1, ev.Seq)
		}
	}
}
