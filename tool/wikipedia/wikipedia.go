//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package wikipedia provides Wikipedia research tools for workflow
// capabilities: a page search over the REST search endpoint and a summary
// fetch for the lead section of a page. Suited to factual background
// research, not to real-time information.
package wikipedia

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-workflow-go/tool"
	"trpc.group/trpc-go/trpc-workflow-go/tool/function"
	"trpc.group/trpc-go/trpc-workflow-go/tool/wikipedia/internal/client"
)

const (
	defaultBaseURL   = "https://en.wikipedia.org"
	defaultUserAgent = "trpc-workflow-go-wikipedia/1.0"
	defaultTimeout   = 30 * time.Second
	defaultMaxPages  = 5
)

// tagPattern strips the highlight markup the search endpoint embeds in
// excerpts.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Option configures the Wikipedia tools.
type Option func(*config)

type config struct {
	baseURL    string
	userAgent  string
	maxPages   int
	httpClient *http.Client
}

// WithBaseURL points the tools at a different wiki, e.g. a language edition
// or a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *config) { c.baseURL = baseURL }
}

// WithLanguage selects a Wikipedia language edition, e.g. "de".
func WithLanguage(lang string) Option {
	return func(c *config) { c.baseURL = fmt.Sprintf("https://%s.wikipedia.org", lang) }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(userAgent string) Option {
	return func(c *config) { c.userAgent = userAgent }
}

// WithMaxPages caps the number of search results.
func WithMaxPages(n int) Option {
	return func(c *config) { c.maxPages = n }
}

// WithHTTPClient sets the HTTP client to use.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *config) { c.httpClient = httpClient }
}

func newClient(opts []Option) (*client.Client, *config) {
	cfg := &config{
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		maxPages:   defaultMaxPages,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return client.New(cfg.baseURL, cfg.userAgent, cfg.httpClient), cfg
}

type searchArgs struct {
	Query string `json:"query" description:"The topic to search Wikipedia for."`
}

type searchResult struct {
	Query   string       `json:"query"`
	Pages   []pageResult `json:"pages"`
	Message string       `json:"message"`
}

type pageResult struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Excerpt     string `json:"excerpt,omitempty"`
}

// NewSearchTool builds the wikipedia_search tool.
func NewSearchTool(opts ...Option) tool.Tool {
	c, cfg := newClient(opts)

	search := func(ctx context.Context, args searchArgs) (searchResult, error) {
		rsp := searchResult{Query: args.Query}
		if strings.TrimSpace(args.Query) == "" {
			return rsp, fmt.Errorf("query cannot be empty")
		}
		found, err := c.Search(ctx, args.Query, cfg.maxPages)
		if err != nil {
			return rsp, fmt.Errorf("wikipedia search: %w", err)
		}
		for _, page := range found.Pages {
			rsp.Pages = append(rsp.Pages, pageResult{
				Key:         page.Key,
				Title:       page.Title,
				Description: page.Description,
				Excerpt:     strings.TrimSpace(tagPattern.ReplaceAllString(page.Excerpt, "")),
			})
		}
		rsp.Message = fmt.Sprintf("found %d page(s) for %q", len(rsp.Pages), args.Query)
		return rsp, nil
	}

	return function.New(
		search,
		function.WithName("wikipedia_search"),
		function.WithDescription("Search Wikipedia for pages about a topic. Returns up to a handful of "+
			"matching pages with title, page key and a short excerpt. Use the page key with "+
			"wikipedia_summary to read the lead section of a result."),
	)
}

type summaryArgs struct {
	Page string `json:"page" description:"Page key or title, e.g. 'Apollo_11'."`
}

type summaryResult struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Extract     string `json:"extract"`
	URL         string `json:"url,omitempty"`
}

// NewSummaryTool builds the wikipedia_summary tool.
func NewSummaryTool(opts ...Option) tool.Tool {
	c, _ := newClient(opts)

	summarize := func(ctx context.Context, args summaryArgs) (summaryResult, error) {
		if strings.TrimSpace(args.Page) == "" {
			return summaryResult{}, fmt.Errorf("page cannot be empty")
		}
		// Page keys use underscores where titles have spaces.
		key := strings.ReplaceAll(strings.TrimSpace(args.Page), " ", "_")
		summary, err := c.Summary(ctx, key)
		if err != nil {
			return summaryResult{}, fmt.Errorf("wikipedia summary for %q: %w", args.Page, err)
		}
		return summaryResult{
			Title:       summary.Title,
			Description: summary.Description,
			Extract:     summary.Extract,
			URL:         summary.ContentURLs.Desktop.Page,
		}, nil
	}

	return function.New(
		summarize,
		function.WithName("wikipedia_summary"),
		function.WithDescription("Fetch the lead-section summary of a Wikipedia page. 'page' is the page "+
			"key or title, spaces are accepted. Returns the title, a one-line description, the extract and "+
			"the page URL."),
	)
}

// NewTools returns both Wikipedia tools sharing one configuration.
func NewTools(opts ...Option) []tool.Tool {
	return []tool.Tool{NewSearchTool(opts...), NewSummaryTool(opts...)}
}
