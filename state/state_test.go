//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplySet(t *testing.T) {
	s := New()
	op, err := NewSet("a", 1)
	require.NoError(t, err)
	require.NoError(t, s.Apply(Delta{op}))
	require.JSONEq(t, `1`, string(s["a"]))

	// A later set replaces the value.
	require.NoError(t, s.Apply(Delta{SetString("a", "two")}))
	require.JSONEq(t, `"two"`, string(s["a"]))
}

func TestApplyAppendCreatesArray(t *testing.T) {
	s := New()
	op, err := NewAppend("log", 0)
	require.NoError(t, err)
	require.NoError(t, s.Apply(Delta{op}))

	op, err = NewAppend("log", 1)
	require.NoError(t, err)
	require.NoError(t, s.Apply(Delta{op}))

	var items []int
	require.NoError(t, json.Unmarshal(s["log"], &items))
	require.Equal(t, []int{0, 1}, items)
}

func TestApplyAppendToNonArrayFails(t *testing.T) {
	s := New()
	require.NoError(t, s.Apply(Delta{SetString("k", "scalar")}))
	err := s.Apply(Delta{AppendString("k", "x")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not an array")
}

func TestApplyUnknownOp(t *testing.T) {
	s := New()
	err := s.Apply(Delta{{Key: "k", Kind: OpKind("replace"), Value: json.RawMessage(`1`)}})
	require.Error(t, err)
}

func TestApplyOrderWithinDelta(t *testing.T) {
	s := New()
	d := Delta{
		SetString("k", "first"),
		SetString("k", "second"),
	}
	require.NoError(t, s.Apply(d))
	v, ok := s.View().GetString("k")
	require.True(t, ok)
	require.Equal(t, "second", v)
}

func TestCloneIsDeep(t *testing.T) {
	s := New()
	require.NoError(t, s.Apply(Delta{AppendString("log", "a")}))
	c := s.Clone()

	require.NoError(t, s.Apply(Delta{AppendString("log", "b")}))

	var orig, cloned []string
	require.NoError(t, json.Unmarshal(s["log"], &orig))
	require.NoError(t, json.Unmarshal(c["log"], &cloned))
	require.Equal(t, []string{"a", "b"}, orig)
	require.Equal(t, []string{"a"}, cloned)
}

func TestViewAccessors(t *testing.T) {
	s := New()
	op, err := NewSet("n", 42)
	require.NoError(t, err)
	require.NoError(t, s.Apply(Delta{op, SetString("name", "ada")}))

	v := s.View()
	require.True(t, v.Has("n"))
	require.False(t, v.Has("missing"))
	require.Equal(t, 2, v.Len())
	require.Equal(t, []string{"n", "name"}, v.Keys())

	name, ok := v.GetString("name")
	require.True(t, ok)
	require.Equal(t, "ada", name)

	_, ok = v.GetString("n")
	require.False(t, ok, "non-string value must not decode as string")

	var n int
	require.NoError(t, v.Decode("n", &n))
	require.Equal(t, 42, n)

	require.Error(t, v.Decode("missing", &n))

	raw, ok := v.Get("n")
	require.True(t, ok)
	require.JSONEq(t, `42`, string(raw))
}

func TestDeltaKeys(t *testing.T) {
	d := Delta{
		SetString("a", "1"),
		AppendString("log", "x"),
		SetString("b", "2"),
		SetString("a", "3"),
	}
	require.Equal(t, []string{"a", "b"}, d.Keys(OpSet))
	require.Equal(t, []string{"log"}, d.Keys(OpAppend))
	require.Nil(t, Delta{}.Keys(OpSet))
}

func TestDeltaMerge(t *testing.T) {
	a := Delta{SetString("a", "1")}
	b := Delta{SetString("b", "2")}
	m := a.Merge(b)
	require.Len(t, m, 2)
	require.Equal(t, "a", m[0].Key)
	require.Equal(t, "b", m[1].Key)

	require.True(t, Delta{}.IsEmpty())
	require.False(t, a.IsEmpty())
	require.Equal(t, a, a.Merge(nil))
}
