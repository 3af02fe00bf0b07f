//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package artifact exposes the artifact store to capabilities as tools: save
// named content, load it back, list what the session has produced. The owning
// session is recovered from the capability request the runner installs in the
// context, so the tools carry no session state of their own.
package artifact

import (
	"context"
	"fmt"

	store "trpc.group/trpc-go/trpc-workflow-go/artifact"
	"trpc.group/trpc-go/trpc-workflow-go/capability"
	"trpc.group/trpc-go/trpc-workflow-go/tool"
	"trpc.group/trpc-go/trpc-workflow-go/tool/function"
)

const defaultMimeType = "text/plain"

func sessionFromContext(ctx context.Context) (string, error) {
	req, ok := capability.FromContext(ctx)
	if !ok || req.SessionID == "" {
		return "", fmt.Errorf("artifact tools need a session; none in context")
	}
	return req.SessionID, nil
}

type saveArgs struct {
	Name     string `json:"name" description:"Artifact name, typically a filename"`
	Content  string `json:"content" description:"Content to store"`
	MimeType string `json:"mime_type,omitempty" description:"MIME type of the content, text/plain when omitted"`
}

type saveResult struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
	Message string `json:"message"`
}

// NewSaveTool creates the save_artifact tool backed by svc.
func NewSaveTool(svc store.Service) tool.Tool {
	save := func(ctx context.Context, args saveArgs) (saveResult, error) {
		if args.Name == "" {
			return saveResult{}, fmt.Errorf("name is required")
		}
		sessionID, err := sessionFromContext(ctx)
		if err != nil {
			return saveResult{}, err
		}
		mimeType := args.MimeType
		if mimeType == "" {
			mimeType = defaultMimeType
		}
		version, err := svc.Save(ctx, sessionID, args.Name, &store.Artifact{
			Data:     []byte(args.Content),
			MimeType: mimeType,
			Name:     args.Name,
		})
		if err != nil {
			return saveResult{}, fmt.Errorf("save artifact %q: %w", args.Name, err)
		}
		return saveResult{
			Name:    args.Name,
			Version: version,
			Message: fmt.Sprintf("saved %s as version %d", args.Name, version),
		}, nil
	}
	return function.New(save,
		function.WithName("save_artifact"),
		function.WithDescription("Save named content to the session's artifact store. Every save of a name creates a new version."),
	)
}

type loadArgs struct {
	Name    string `json:"name" description:"Artifact name to load"`
	Version *int   `json:"version,omitempty" description:"Version to load, latest when omitted"`
}

type loadResult struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Content  string `json:"content"`
}

// NewLoadTool creates the load_artifact tool backed by svc.
func NewLoadTool(svc store.Service) tool.Tool {
	load := func(ctx context.Context, args loadArgs) (loadResult, error) {
		if args.Name == "" {
			return loadResult{}, fmt.Errorf("name is required")
		}
		sessionID, err := sessionFromContext(ctx)
		if err != nil {
			return loadResult{}, err
		}
		art, err := svc.Load(ctx, sessionID, args.Name, args.Version)
		if err != nil {
			return loadResult{}, fmt.Errorf("load artifact %q: %w", args.Name, err)
		}
		if art == nil {
			return loadResult{}, fmt.Errorf("artifact %q not found", args.Name)
		}
		return loadResult{Name: args.Name, MimeType: art.MimeType, Content: string(art.Data)}, nil
	}
	return function.New(load,
		function.WithName("load_artifact"),
		function.WithDescription("Load a named artifact from the session's store, the latest version unless one is given."),
	)
}

type listArgs struct{}

type listResult struct {
	Names   []string `json:"names"`
	Message string   `json:"message"`
}

// NewListTool creates the list_artifacts tool backed by svc.
func NewListTool(svc store.Service) tool.Tool {
	list := func(ctx context.Context, _ listArgs) (listResult, error) {
		sessionID, err := sessionFromContext(ctx)
		if err != nil {
			return listResult{}, err
		}
		names, err := svc.ListNames(ctx, sessionID)
		if err != nil {
			return listResult{}, fmt.Errorf("list artifacts: %w", err)
		}
		return listResult{Names: names, Message: fmt.Sprintf("%d artifact(s) in this session", len(names))}, nil
	}
	return function.New(list,
		function.WithName("list_artifacts"),
		function.WithDescription("List the artifact names saved in this session."),
	)
}

// NewTools returns the save, load and list artifact tools.
func NewTools(svc store.Service) []tool.Tool {
	return []tool.Tool{NewSaveTool(svc), NewLoadTool(svc), NewListTool(svc)}
}
