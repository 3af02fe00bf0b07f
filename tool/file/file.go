//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package file provides workspace file tools for workflow capabilities.
// All operations are confined to a base directory: relative paths only, no
// '..' traversal. Writers create missing parent directories, readers refuse
// files beyond the configured size limit.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"trpc.group/trpc-go/trpc-workflow-go/tool"
)

const (
	defaultBaseDir  = "."
	defaultDirMode  = os.FileMode(0755)
	defaultFileMode = os.FileMode(0644)
	// defaultMaxFileSize caps reads at 1MB.
	defaultMaxFileSize = 1024 * 1024
)

// ToolSet bundles the file tools rooted at one base directory.
type ToolSet struct {
	baseDir     string
	dirMode     os.FileMode
	fileMode    os.FileMode
	maxFileSize int64
	readOnly    bool
	tools       []tool.Tool
}

// Option configures a ToolSet.
type Option func(*ToolSet)

// WithBaseDir roots all file operations at dir. Defaults to the current
// directory.
func WithBaseDir(dir string) Option {
	return func(ts *ToolSet) { ts.baseDir = dir }
}

// WithDirMode sets the permission bits for created directories.
func WithDirMode(mode os.FileMode) Option {
	return func(ts *ToolSet) { ts.dirMode = mode }
}

// WithFileMode sets the permission bits for created files.
func WithFileMode(mode os.FileMode) Option {
	return func(ts *ToolSet) { ts.fileMode = mode }
}

// WithMaxFileSize caps the size of files the read tools accept.
func WithMaxFileSize(size int64) Option {
	return func(ts *ToolSet) { ts.maxFileSize = size }
}

// WithReadOnly drops the writing tools, leaving read, list and search.
func WithReadOnly() Option {
	return func(ts *ToolSet) { ts.readOnly = true }
}

// NewToolSet builds the file tools. The base directory must exist.
func NewToolSet(opts ...Option) (*ToolSet, error) {
	ts := &ToolSet{
		baseDir:     defaultBaseDir,
		dirMode:     defaultDirMode,
		fileMode:    defaultFileMode,
		maxFileSize: defaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(ts)
	}

	ts.baseDir = filepath.Clean(ts.baseDir)
	stat, err := os.Stat(ts.baseDir)
	if err != nil {
		return nil, fmt.Errorf("base directory %q: %w", ts.baseDir, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("base directory %q is not a directory", ts.baseDir)
	}

	ts.tools = []tool.Tool{
		ts.readFileTool(),
		ts.readManyTool(),
		ts.listDirTool(),
		ts.searchFileTool(),
		ts.searchContentTool(),
	}
	if !ts.readOnly {
		ts.tools = append(ts.tools, ts.saveFileTool(), ts.replaceContentTool())
	}
	return ts, nil
}

// Tools returns the tools of the set.
func (ts *ToolSet) Tools() []tool.Tool {
	tools := make([]tool.Tool, len(ts.tools))
	copy(tools, ts.tools)
	return tools
}

// resolve keeps relative paths inside the base directory.
func (ts *ToolSet) resolve(relative string) (string, error) {
	if filepath.IsAbs(relative) || strings.Contains(relative, "..") {
		return "", fmt.Errorf("invalid path %q: absolute paths and '..' are not allowed", relative)
	}
	return filepath.Join(ts.baseDir, relative), nil
}

// glob matches files under dir with a doublestar pattern. "" , "." and ".."
// are dropped from the matches.
func (ts *ToolSet) glob(dir, pattern string, caseSensitive bool) ([]string, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern cannot be empty")
	}
	var opts []doublestar.GlobOption
	if !caseSensitive {
		opts = append(opts, doublestar.WithCaseInsensitive())
	}
	matches, err := doublestar.Glob(os.DirFS(dir), pattern, opts...)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	files := matches[:0]
	for _, match := range matches {
		if match == "" || match == "." || match == ".." {
			continue
		}
		files = append(files, match)
	}
	return files, nil
}

// statDir resolves a relative path and verifies it names an existing
// directory.
func (ts *ToolSet) statDir(relative string) (string, error) {
	dir, err := ts.resolve(relative)
	if err != nil {
		return "", err
	}
	stat, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("access %q: %w", relative, err)
	}
	if !stat.IsDir() {
		return "", fmt.Errorf("%q is a file, not a directory", relative)
	}
	return dir, nil
}
