//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package cos

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	cos "github.com/tencentyun/cos-go-sdk-v5"

	"trpc.group/trpc-go/trpc-workflow-go/artifact"
)

type fakeObject struct {
	data     []byte
	mimeType string
}

// fakeClient is an in-memory bucket. Listings are lexicographic like the
// real service.
type fakeClient struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string]fakeObject)}
}

func (f *fakeClient) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *fakeClient) PutObject(ctx context.Context, key string, content io.Reader, mimeType string) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = fakeObject{data: data, mimeType: mimeType}
	return nil
}

func (f *fakeClient) GetObject(ctx context.Context, key string) (io.ReadCloser, http.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return nil, nil, notFoundError()
	}
	header := http.Header{}
	header.Set("Content-Type", obj.mimeType)
	return io.NopCloser(bytes.NewReader(obj.data)), header, nil
}

func (f *fakeClient) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func notFoundError() error {
	return &cos.ErrorResponse{
		Response: &http.Response{
			StatusCode: http.StatusNotFound,
			Request:    &http.Request{Method: http.MethodGet, URL: &url.URL{}},
		},
		Code: "NoSuchKey",
	}
}

func newTestService() (*Service, *fakeClient) {
	fake := newFakeClient()
	return &Service{client: fake}, fake
}

func textArtifact(s string) *artifact.Artifact {
	return &artifact.Artifact{Data: []byte(s), MimeType: "text/plain"}
}

func TestSaveIncrementsPastLexicographicVersions(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	// Past version 9 a lexicographic listing puts "10" before "2"; the next
	// version must still be the numeric max plus one.
	for want := 0; want <= 10; want++ {
		got, err := svc.Save(ctx, "sess-1", "report.md", textArtifact("v"))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	versions, err := svc.ListVersions(ctx, "sess-1", "report.md")
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, versions)
}

func TestLoadLatestAndSpecific(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Save(ctx, "sess-1", "report.md", textArtifact("first"))
	require.NoError(t, err)
	_, err = svc.Save(ctx, "sess-1", "report.md", textArtifact("second"))
	require.NoError(t, err)

	latest, err := svc.Load(ctx, "sess-1", "report.md", nil)
	require.NoError(t, err)
	require.Equal(t, "second", string(latest.Data))
	require.Equal(t, "text/plain", latest.MimeType)
	require.Equal(t, "report.md", latest.Name)

	zero := 0
	first, err := svc.Load(ctx, "sess-1", "report.md", &zero)
	require.NoError(t, err)
	require.Equal(t, "first", string(first.Data))

	nine := 9
	gone, err := svc.Load(ctx, "sess-1", "report.md", &nine)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestLoadMissingArtifact(t *testing.T) {
	svc, _ := newTestService()

	art, err := svc.Load(context.Background(), "sess-1", "nothing.bin", nil)
	require.NoError(t, err)
	require.Nil(t, art)
}

func TestListNamesEscapesSlashes(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Save(ctx, "sess-1", "reports/final.md", textArtifact("r"))
	require.NoError(t, err)
	_, err = svc.Save(ctx, "sess-1", "cover.png", textArtifact("c"))
	require.NoError(t, err)
	_, err = svc.Save(ctx, "sess-2", "other.md", textArtifact("o"))
	require.NoError(t, err)

	names, err := svc.ListNames(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, []string{"cover.png", "reports/final.md"}, names)

	// The slash in the name must not add a path segment in the bucket.
	art, err := svc.Load(ctx, "sess-1", "reports/final.md", nil)
	require.NoError(t, err)
	require.Equal(t, "r", string(art.Data))
}

func TestDeleteRemovesAllVersions(t *testing.T) {
	svc, fake := newTestService()
	ctx := context.Background()

	_, err := svc.Save(ctx, "sess-1", "report.md", textArtifact("first"))
	require.NoError(t, err)
	_, err = svc.Save(ctx, "sess-1", "report.md", textArtifact("second"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "sess-1", "report.md"))
	require.Empty(t, fake.objects)

	versions, err := svc.ListVersions(ctx, "sess-1", "report.md")
	require.NoError(t, err)
	require.Empty(t, versions)

	require.NoError(t, svc.Delete(ctx, "sess-1", "report.md"))
}

func TestNewServiceBadBucketURL(t *testing.T) {
	_, err := NewService("://missing-scheme")
	require.ErrorContains(t, err, "parse bucket URL")
}
