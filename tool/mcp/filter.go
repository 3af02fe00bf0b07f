//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package mcp

import (
	"context"
	"regexp"
)

// Info carries the metadata a filter decides on.
type Info struct {
	// Name is the remote tool name.
	Name string `json:"name"`
	// Description is the remote tool description.
	Description string `json:"description"`
}

// Filter selects which remote tools the toolset exposes.
type Filter interface {
	Filter(ctx context.Context, tools []Info) []Info
}

// FilterFunc adapts a plain function into a Filter.
type FilterFunc func(ctx context.Context, tools []Info) []Info

// Filter implements the Filter interface.
func (f FilterFunc) Filter(ctx context.Context, tools []Info) []Info {
	return f(ctx, tools)
}

// IncludeTools keeps only the named tools.
func IncludeTools(names ...string) Filter {
	set := nameSet(names)
	return FilterFunc(func(_ context.Context, tools []Info) []Info {
		var kept []Info
		for _, t := range tools {
			if set[t.Name] {
				kept = append(kept, t)
			}
		}
		return kept
	})
}

// ExcludeTools drops the named tools and keeps everything else.
func ExcludeTools(names ...string) Filter {
	set := nameSet(names)
	return FilterFunc(func(_ context.Context, tools []Info) []Info {
		var kept []Info
		for _, t := range tools {
			if !set[t.Name] {
				kept = append(kept, t)
			}
		}
		return kept
	})
}

// MatchTools keeps tools whose name matches any of the regular expression
// patterns. Invalid patterns match nothing.
func MatchTools(patterns ...string) Filter {
	return FilterFunc(func(_ context.Context, tools []Info) []Info {
		var kept []Info
		for _, t := range tools {
			for _, pattern := range patterns {
				if matched, _ := regexp.MatchString(pattern, t.Name); matched {
					kept = append(kept, t)
					break
				}
			}
		}
		return kept
	})
}

// ChainFilters applies the filters in order, narrowing the set at each step.
func ChainFilters(filters ...Filter) Filter {
	return FilterFunc(func(ctx context.Context, tools []Info) []Info {
		for _, f := range filters {
			tools = f.Filter(ctx, tools)
		}
		return tools
	})
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}
