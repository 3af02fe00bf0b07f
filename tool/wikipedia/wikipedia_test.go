//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package wikipedia

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-workflow-go/state"
)

func newFakeWiki(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/w/rest.php/v1/search/page", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tide pools", r.URL.Query().Get("q"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"pages": [
				{
					"id": 1,
					"key": "Tide_pool",
					"title": "Tide pool",
					"excerpt": "A <span class=\"searchmatch\">tide pool</span> is a rocky pool near the ocean.",
					"description": "Rocky pool on a seashore"
				},
				{
					"id": 2,
					"key": "Intertidal_zone",
					"title": "Intertidal zone",
					"excerpt": "The area between low and high tide.",
					"description": ""
				}
			]
		}`))
	})
	mux.HandleFunc("/api/rest_v1/page/summary/", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/api/rest_v1/page/summary/")
		if key != "Tide_pool" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"title": "Tide pool",
			"description": "Rocky pool on a seashore",
			"extract": "Tide pools are rocky pools on the seashore filled with seawater.",
			"content_urls": {"desktop": {"page": "https://en.wikipedia.org/wiki/Tide_pool"}}
		}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchTool(t *testing.T) {
	srv := newFakeWiki(t)
	searchTool := NewSearchTool(WithBaseURL(srv.URL), WithUserAgent("test-agent/1.0"))

	decl := searchTool.Declaration()
	assert.Equal(t, "wikipedia_search", decl.Name)
	require.Contains(t, decl.InputSchema.Properties, "query")

	result, err := searchTool.Call(context.Background(), json.RawMessage(`{"query":"tide pools"}`), state.State{}.View())
	require.NoError(t, err)

	var rsp searchResult
	require.NoError(t, json.Unmarshal(result.Content, &rsp))
	require.Len(t, rsp.Pages, 2)
	assert.Equal(t, "Tide_pool", rsp.Pages[0].Key)
	assert.Equal(t, "Tide pool", rsp.Pages[0].Title)
	assert.Equal(t, "A tide pool is a rocky pool near the ocean.", rsp.Pages[0].Excerpt)
	assert.Contains(t, rsp.Message, "found 2 page(s)")
}

func TestSearchToolEmptyQuery(t *testing.T) {
	searchTool := NewSearchTool(WithBaseURL("http://127.0.0.1:1"))

	_, err := searchTool.Call(context.Background(), json.RawMessage(`{"query":"  "}`), state.State{}.View())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query cannot be empty")
}

func TestSummaryTool(t *testing.T) {
	srv := newFakeWiki(t)
	summaryTool := NewSummaryTool(WithBaseURL(srv.URL))

	result, err := summaryTool.Call(context.Background(), json.RawMessage(`{"page":"Tide pool"}`), state.State{}.View())
	require.NoError(t, err)

	var rsp summaryResult
	require.NoError(t, json.Unmarshal(result.Content, &rsp))
	assert.Equal(t, "Tide pool", rsp.Title)
	assert.Contains(t, rsp.Extract, "rocky pools on the seashore")
	assert.Equal(t, "https://en.wikipedia.org/wiki/Tide_pool", rsp.URL)
}

func TestSummaryToolMissingPage(t *testing.T) {
	srv := newFakeWiki(t)
	summaryTool := NewSummaryTool(WithBaseURL(srv.URL))

	_, err := summaryTool.Call(context.Background(), json.RawMessage(`{"page":"No_such_page"}`), state.State{}.View())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestNewTools(t *testing.T) {
	tools := NewTools(WithLanguage("de"))
	require.Len(t, tools, 2)
	assert.Equal(t, "wikipedia_search", tools[0].Declaration().Name)
	assert.Equal(t, "wikipedia_summary", tools[1].Declaration().Name)
}
