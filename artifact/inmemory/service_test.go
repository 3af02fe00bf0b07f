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
	"testing"

	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-workflow-go/artifact"
)

func textArtifact(s string) *artifact.Artifact {
	return &artifact.Artifact{Data: []byte(s), MimeType: "text/plain"}
}

func TestSaveAssignsVersions(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	for want := 0; want < 3; want++ {
		got, err := svc.Save(ctx, "sess-1", "report.md", textArtifact("draft"))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	versions, err := svc.ListVersions(ctx, "sess-1", "report.md")
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, versions)
}

func TestLoadLatestAndSpecific(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	_, err := svc.Save(ctx, "sess-1", "report.md", textArtifact("first"))
	require.NoError(t, err)
	_, err = svc.Save(ctx, "sess-1", "report.md", textArtifact("second"))
	require.NoError(t, err)

	latest, err := svc.Load(ctx, "sess-1", "report.md", nil)
	require.NoError(t, err)
	require.Equal(t, "second", string(latest.Data))

	zero := 0
	first, err := svc.Load(ctx, "sess-1", "report.md", &zero)
	require.NoError(t, err)
	require.Equal(t, "first", string(first.Data))

	five := 5
	_, err = svc.Load(ctx, "sess-1", "report.md", &five)
	require.ErrorContains(t, err, "version 5 does not exist")
}

func TestLoadMissingArtifact(t *testing.T) {
	svc := NewService()

	art, err := svc.Load(context.Background(), "sess-1", "nothing.bin", nil)
	require.NoError(t, err)
	require.Nil(t, art)
}

func TestListNamesIsPerSession(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	_, err := svc.Save(ctx, "sess-1", "b.txt", textArtifact("b"))
	require.NoError(t, err)
	_, err = svc.Save(ctx, "sess-1", "a.txt", textArtifact("a"))
	require.NoError(t, err)
	_, err = svc.Save(ctx, "sess-2", "other.txt", textArtifact("o"))
	require.NoError(t, err)

	names, err := svc.ListNames(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "b.txt"}, names)
}

func TestDeleteRemovesAllVersions(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	_, err := svc.Save(ctx, "sess-1", "report.md", textArtifact("first"))
	require.NoError(t, err)
	_, err = svc.Save(ctx, "sess-1", "report.md", textArtifact("second"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "sess-1", "report.md"))

	art, err := svc.Load(ctx, "sess-1", "report.md", nil)
	require.NoError(t, err)
	require.Nil(t, art)

	versions, err := svc.ListVersions(ctx, "sess-1", "report.md")
	require.NoError(t, err)
	require.Empty(t, versions)

	// Deleting again is a no-op, not an error.
	require.NoError(t, svc.Delete(ctx, "sess-1", "report.md"))
}
