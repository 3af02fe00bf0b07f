//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"trpc.group/trpc-go/trpc-workflow-go/tool"
	"trpc.group/trpc-go/trpc-workflow-go/tool/function"
)

type listArgs struct {
	Path string `json:"path,omitempty" description:"Relative directory to list, empty for the base directory."`
}

type listResult struct {
	Path    string   `json:"path"`
	Files   []string `json:"files"`
	Folders []string `json:"folders"`
	Message string   `json:"message"`
}

func (ts *ToolSet) listDir(_ context.Context, args listArgs) (listResult, error) {
	rsp := listResult{Path: args.Path}
	dir, err := ts.statDir(args.Path)
	if err != nil {
		return rsp, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return rsp, fmt.Errorf("read directory %q: %w", args.Path, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			rsp.Folders = append(rsp.Folders, entry.Name())
		} else {
			rsp.Files = append(rsp.Files, entry.Name())
		}
	}
	rsp.Message = fmt.Sprintf("found %d files and %d folders", len(rsp.Files), len(rsp.Folders))
	return rsp, nil
}

func (ts *ToolSet) listDirTool() tool.Tool {
	return function.New(
		ts.listDir,
		function.WithName("list_file"),
		function.WithDescription("List the files and folders of a directory. 'path' is relative to the base "+
			"directory; empty lists the base directory itself."),
	)
}

type searchFileArgs struct {
	Path          string `json:"path,omitempty" description:"Relative directory to search in, empty for the base directory."`
	Pattern       string `json:"pattern" description:"Glob pattern, '**' matches recursively."`
	CaseSensitive bool   `json:"case_sensitive,omitempty" description:"Match the pattern case sensitively."`
}

type searchFileResult struct {
	Pattern string   `json:"pattern"`
	Files   []string `json:"files"`
	Folders []string `json:"folders"`
	Message string   `json:"message"`
}

func (ts *ToolSet) searchFile(_ context.Context, args searchFileArgs) (searchFileResult, error) {
	rsp := searchFileResult{Pattern: args.Pattern}
	dir, err := ts.statDir(args.Path)
	if err != nil {
		return rsp, err
	}
	matches, err := ts.glob(dir, args.Pattern, args.CaseSensitive)
	if err != nil {
		return rsp, err
	}
	for _, match := range matches {
		stat, err := os.Stat(filepath.Join(dir, match))
		if err != nil {
			continue
		}
		relative := filepath.Join(args.Path, match)
		if stat.IsDir() {
			rsp.Folders = append(rsp.Folders, relative)
		} else {
			rsp.Files = append(rsp.Files, relative)
		}
	}
	rsp.Message = fmt.Sprintf("found %d files and %d folders matching %q", len(rsp.Files), len(rsp.Folders), args.Pattern)
	return rsp, nil
}

func (ts *ToolSet) searchFileTool() tool.Tool {
	return function.New(
		ts.searchFile,
		function.WithName("search_file"),
		function.WithDescription("Find files and folders whose path matches a glob 'pattern' under 'path'. "+
			"Examples: '*.txt', 'scenes/*.md', '**/*.md' (recursive), '*draft*'. 'case_sensitive' is false "+
			"by default."),
	)
}

type searchContentArgs struct {
	Path                 string `json:"path,omitempty" description:"Relative directory to search in, empty for the base directory."`
	FilePattern          string `json:"file_pattern" description:"Glob selecting the files to scan."`
	FileCaseSensitive    bool   `json:"file_case_sensitive,omitempty" description:"Match the file pattern case sensitively."`
	ContentPattern       string `json:"content_pattern" description:"Regular expression applied per line."`
	ContentCaseSensitive bool   `json:"content_case_sensitive,omitempty" description:"Match the content pattern case sensitively."`
}

type searchContentResult struct {
	FilePattern    string      `json:"file_pattern"`
	ContentPattern string      `json:"content_pattern"`
	Matches        []fileMatch `json:"matches"`
	Message        string      `json:"message"`
}

type fileMatch struct {
	FilePath string      `json:"file_path"`
	Lines    []lineMatch `json:"lines"`
}

type lineMatch struct {
	LineNumber int    `json:"line_number"`
	Content    string `json:"content"`
}

func (ts *ToolSet) searchContent(_ context.Context, args searchContentArgs) (searchContentResult, error) {
	rsp := searchContentResult{FilePattern: args.FilePattern, ContentPattern: args.ContentPattern}
	if args.FilePattern == "" {
		return rsp, fmt.Errorf("file_pattern cannot be empty")
	}
	if args.ContentPattern == "" {
		return rsp, fmt.Errorf("content_pattern cannot be empty")
	}
	dir, err := ts.statDir(args.Path)
	if err != nil {
		return rsp, err
	}

	pattern := args.ContentPattern
	if !args.ContentCaseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return rsp, fmt.Errorf("invalid content_pattern %q: %w", args.ContentPattern, err)
	}

	files, err := ts.glob(dir, args.FilePattern, args.FileCaseSensitive)
	if err != nil {
		return rsp, err
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		matches []fileMatch
	)
	for _, file := range files {
		full := filepath.Join(dir, file)
		stat, err := os.Stat(full)
		if err != nil || stat.IsDir() || stat.Size() > ts.maxFileSize {
			continue
		}
		relative := filepath.Join(args.Path, file)
		wg.Add(1)
		go func() {
			defer wg.Done()
			lines := grepFile(full, re)
			if len(lines) == 0 {
				return
			}
			mu.Lock()
			matches = append(matches, fileMatch{FilePath: relative, Lines: lines})
			mu.Unlock()
		}()
	}
	wg.Wait()

	rsp.Matches = matches
	rsp.Message = fmt.Sprintf("found matches in %d file(s)", len(matches))
	return rsp, nil
}

// grepFile returns the lines of one file matching re. Unreadable files yield
// no matches.
func grepFile(path string, re *regexp.Regexp) []lineMatch {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var matches []lineMatch
	for i, line := range strings.Split(string(data), "\n") {
		if re.MatchString(line) {
			matches = append(matches, lineMatch{LineNumber: i + 1, Content: line})
		}
	}
	return matches
}

func (ts *ToolSet) searchContentTool() tool.Tool {
	return function.New(
		ts.searchContent,
		function.WithName("search_content"),
		function.WithDescription("Scan files matched by the glob 'file_pattern' under 'path' and return the "+
			"lines matching the regular expression 'content_pattern', with line numbers. Both patterns match "+
			"case insensitively unless the corresponding case_sensitive flag is set."),
	)
}
