//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package artifact

import "context"

// Service stores artifacts keyed by session and name. Every save of a name
// creates a new version; versions are never overwritten in place.
type Service interface {
	// Save stores a new version of the named artifact and returns its version
	// number. The first save of a name is version 0, incremented by one on
	// each later save.
	Save(ctx context.Context, sessionID, name string, art *Artifact) (int, error)

	// Load returns one version of the named artifact, the latest when version
	// is nil. A missing artifact loads as (nil, nil), not as an error.
	Load(ctx context.Context, sessionID, name string, version *int) (*Artifact, error)

	// ListNames lists the artifact names saved under a session, sorted.
	ListNames(ctx context.Context, sessionID string) ([]string, error)

	// ListVersions lists the stored versions of one artifact, oldest first.
	// A missing artifact lists as empty.
	ListVersions(ctx context.Context, sessionID, name string) ([]int, error)

	// Delete removes every version of the named artifact. Deleting an
	// artifact that does not exist is not an error.
	Delete(ctx context.Context, sessionID, name string) error
}
