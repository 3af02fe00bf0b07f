//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package artifact defines named, versioned blobs attached to a session and
// the service that stores them. Artifacts hold the binary side products of a
// workflow, such as rendered reports, fetched documents or generated images,
// that are too large or too opaque to live in session state.
package artifact

// Artifact is one stored blob.
type Artifact struct {
	// Data contains the raw bytes.
	Data []byte `json:"data,omitempty"`
	// MimeType is the IANA MIME type of Data.
	MimeType string `json:"mime_type,omitempty"`
	// URL optionally points at an external location serving the same content.
	URL string `json:"url,omitempty"`
	// Name is an optional display name, typically a filename.
	Name string `json:"name,omitempty"`
}
