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
	"slices"
	"strings"
	"sync"

	multierror "github.com/hashicorp/go-multierror"

	"trpc.group/trpc-go/trpc-workflow-go/tool"
	"trpc.group/trpc-go/trpc-workflow-go/tool/function"
)

type readArgs struct {
	FileName  string `json:"file_name" description:"Relative path of the file to read."`
	StartLine *int   `json:"start_line,omitempty" description:"First line to read, 1-based."`
	NumLines  *int   `json:"num_lines,omitempty" description:"Maximum number of lines to read."`
}

type readResult struct {
	FileName string `json:"file_name"`
	Contents string `json:"contents"`
	Message  string `json:"message"`
}

func (ts *ToolSet) readFile(_ context.Context, args readArgs) (readResult, error) {
	rsp := readResult{FileName: args.FileName}
	if args.StartLine != nil && *args.StartLine <= 0 {
		return rsp, fmt.Errorf("start_line must be greater than 0, got %d", *args.StartLine)
	}
	if args.NumLines != nil && *args.NumLines <= 0 {
		return rsp, fmt.Errorf("num_lines must be greater than 0, got %d", *args.NumLines)
	}

	contents, err := ts.readWhole(args.FileName)
	if err != nil {
		return rsp, err
	}
	if len(contents) == 0 {
		rsp.Message = fmt.Sprintf("read %s, file is empty", args.FileName)
		return rsp, nil
	}

	lines := strings.Split(contents, "\n")
	total := len(lines)
	start := 1
	if args.StartLine != nil {
		start = *args.StartLine
	}
	if start > total {
		return rsp, fmt.Errorf("start_line %d is out of range, file has %d lines", start, total)
	}
	end := total
	if args.NumLines != nil {
		if end = start + *args.NumLines - 1; end > total {
			end = total
		}
	}

	rsp.Contents = strings.Join(lines[start-1:end], "\n")
	rsp.Message = fmt.Sprintf("read %s, lines %d-%d of %d", args.FileName, start, end, total)
	return rsp, nil
}

// readWhole reads one file within the base directory, enforcing the size cap.
func (ts *ToolSet) readWhole(relative string) (string, error) {
	path, err := ts.resolve(relative)
	if err != nil {
		return "", err
	}
	stat, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("access %q: %w", relative, err)
	}
	if stat.IsDir() {
		return "", fmt.Errorf("%q is a directory, not a file", relative)
	}
	if stat.Size() > ts.maxFileSize {
		return "", fmt.Errorf("%q is too large: %d bytes, limit %d", relative, stat.Size(), ts.maxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", relative, err)
	}
	return string(data), nil
}

func (ts *ToolSet) readFileTool() tool.Tool {
	return function.New(
		ts.readFile,
		function.WithName("read_file"),
		function.WithDescription("Read the contents of the file 'file_name', a relative path from the base "+
			"directory. Optional 'start_line' (1-based) and 'num_lines' select a slice of the file; without "+
			"them the whole file is returned."),
	)
}

type readManyArgs struct {
	Patterns      []string `json:"patterns" description:"Glob patterns of relative file paths, '**' matches recursively."`
	CaseSensitive bool     `json:"case_sensitive,omitempty" description:"Match patterns case sensitively."`
}

type readManyResult struct {
	Files   []readResult `json:"files"`
	Message string       `json:"message"`
}

func (ts *ToolSet) readManyFiles(_ context.Context, args readManyArgs) (readManyResult, error) {
	var rsp readManyResult
	if len(args.Patterns) == 0 {
		return rsp, fmt.Errorf("patterns cannot be empty")
	}

	var (
		files []string
		errs  *multierror.Error
	)
	for _, pattern := range args.Patterns {
		matches, err := ts.glob(ts.baseDir, pattern, args.CaseSensitive)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	files = slices.Compact(files)

	rsp.Files = make([]readResult, len(files))
	var wg sync.WaitGroup
	for i, relative := range files {
		wg.Add(1)
		go func(idx int, rel string) {
			defer wg.Done()
			result := readResult{FileName: rel}
			contents, err := ts.readWhole(rel)
			if err != nil {
				result.Message = fmt.Sprintf("error: %v", err)
			} else {
				result.Contents = contents
				result.Message = fmt.Sprintf("read %s, %d lines", rel, strings.Count(contents, "\n")+1)
			}
			rsp.Files[idx] = result
		}(i, relative)
	}
	wg.Wait()

	rsp.Message = fmt.Sprintf("read %d file(s)", len(rsp.Files))
	if errs != nil {
		rsp.Message += fmt.Sprintf(", pattern errors: %v", errs)
	}
	return rsp, nil
}

func (ts *ToolSet) readManyTool() tool.Tool {
	return function.New(
		ts.readManyFiles,
		function.WithName("read_multiple_files"),
		function.WithDescription("Read every file matched by the glob 'patterns', relative to the base "+
			"directory, e.g. ['*.md', 'scenes/**/*.txt']. '*' matches within one path segment, '**' matches "+
			"recursively. Returns per-file contents and messages; unreadable files are reported, not fatal."),
	)
}
