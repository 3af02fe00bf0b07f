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
	"strings"

	"trpc.group/trpc-go/trpc-workflow-go/tool"
	"trpc.group/trpc-go/trpc-workflow-go/tool/function"
)

type saveArgs struct {
	FileName  string `json:"file_name" description:"Relative path of the file to save."`
	Contents  string `json:"contents" description:"Contents to write."`
	Overwrite bool   `json:"overwrite,omitempty" description:"Overwrite the file if it already exists."`
}

type saveResult struct {
	FileName string `json:"file_name"`
	Message  string `json:"message"`
}

func (ts *ToolSet) saveFile(_ context.Context, args saveArgs) (saveResult, error) {
	if args.FileName == "" {
		return saveResult{}, fmt.Errorf("file_name cannot be empty")
	}
	path, err := ts.resolve(args.FileName)
	if err != nil {
		return saveResult{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), ts.dirMode); err != nil {
		return saveResult{}, fmt.Errorf("create parent directory: %w", err)
	}
	if !args.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return saveResult{}, fmt.Errorf("file %q already exists and overwrite is disabled", args.FileName)
		}
	}
	if err := os.WriteFile(path, []byte(args.Contents), ts.fileMode); err != nil {
		return saveResult{}, fmt.Errorf("write %q: %w", args.FileName, err)
	}
	return saveResult{
		FileName: args.FileName,
		Message:  fmt.Sprintf("saved %s (%d bytes)", args.FileName, len(args.Contents)),
	}, nil
}

func (ts *ToolSet) saveFileTool() tool.Tool {
	return function.New(
		ts.saveFile,
		function.WithName("save_file"),
		function.WithDescription("Save 'contents' to the file 'file_name', creating parent directories as "+
			"needed. 'file_name' is a relative path from the base directory, e.g. 'notes/plot.md'. An existing "+
			"file is only replaced when 'overwrite' is true."),
	)
}

type replaceArgs struct {
	FileName        string `json:"file_name" description:"Relative path of the file to edit."`
	OldString       string `json:"old_string" description:"Exact text to replace."`
	NewString       string `json:"new_string" description:"Replacement text."`
	NumReplacements int    `json:"num_replacements,omitempty" description:"Maximum replacements, default 1, negative replaces all."`
}

type replaceResult struct {
	FileName string `json:"file_name"`
	Replaced int    `json:"replaced"`
	Message  string `json:"message"`
}

func (ts *ToolSet) replaceContent(_ context.Context, args replaceArgs) (replaceResult, error) {
	rsp := replaceResult{FileName: args.FileName}
	if args.OldString == "" {
		return rsp, fmt.Errorf("old_string cannot be empty")
	}
	if args.OldString == args.NewString {
		rsp.Message = "old_string and new_string are identical, nothing to do"
		return rsp, nil
	}
	path, err := ts.resolve(args.FileName)
	if err != nil {
		return rsp, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		return rsp, fmt.Errorf("access %q: %w", args.FileName, err)
	}
	if stat.IsDir() {
		return rsp, fmt.Errorf("%q is a directory, not a file", args.FileName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return rsp, fmt.Errorf("read %q: %w", args.FileName, err)
	}

	content := string(data)
	total := strings.Count(content, args.OldString)
	if total == 0 {
		rsp.Message = fmt.Sprintf("%q not found in %s", args.OldString, args.FileName)
		return rsp, nil
	}
	n := args.NumReplacements
	if n == 0 {
		n = 1
	}
	if n < 0 || n > total {
		n = total
	}
	// Write back with the file's own mode so edits don't loosen permissions.
	if err := os.WriteFile(path, []byte(strings.Replace(content, args.OldString, args.NewString, n)), stat.Mode()); err != nil {
		return rsp, fmt.Errorf("write %q: %w", args.FileName, err)
	}
	rsp.Replaced = n
	rsp.Message = fmt.Sprintf("replaced %d of %d occurrence(s) in %s", n, total, args.FileName)
	return rsp, nil
}

func (ts *ToolSet) replaceContentTool() tool.Tool {
	return function.New(
		ts.replaceContent,
		function.WithName("replace_content"),
		function.WithDescription("Replace occurrences of 'old_string' with 'new_string' in the file "+
			"'file_name'. Include enough surrounding context in 'old_string' to pin the right location. "+
			"'num_replacements' caps how many occurrences change: default 1, negative means all."),
	)
}
