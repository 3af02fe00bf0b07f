//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package client provides an HTTP client for the Wikipedia REST APIs.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client talks to one Wikipedia instance.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// New creates a Wikipedia client. baseURL is the wiki root, e.g.
// "https://en.wikipedia.org".
func New(baseURL, userAgent string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

// Page is one entry of a search response.
type Page struct {
	ID          int64  `json:"id"`
	Key         string `json:"key"`
	Title       string `json:"title"`
	Excerpt     string `json:"excerpt"`
	Description string `json:"description"`
}

// SearchResponse is the payload of the v1 page search endpoint.
type SearchResponse struct {
	Pages []Page `json:"pages"`
}

// Summary is the lead-section summary of one page.
type Summary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Search queries the page search endpoint.
func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	reqURL := fmt.Sprintf("%s/w/rest.php/v1/search/page?q=%s&limit=%d",
		c.baseURL, url.QueryEscape(query), limit)

	var response SearchResponse
	if err := c.get(ctx, reqURL, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Summary fetches the summary of the page named by key.
func (c *Client) Summary(ctx context.Context, key string) (*Summary, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("page key cannot be empty")
	}
	reqURL := fmt.Sprintf("%s/api/rest_v1/page/summary/%s", c.baseURL, url.PathEscape(key))

	var summary Summary
	if err := c.get(ctx, reqURL, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// get performs one JSON GET against the API.
func (c *Client) get(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	rsp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer rsp.Body.Close()

	if rsp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", rsp.StatusCode)
	}
	body, err := io.ReadAll(rsp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
