//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory stores artifacts in process memory. It backs tests,
// examples and single-process deployments; nothing survives a restart.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"trpc.group/trpc-go/trpc-workflow-go/artifact"
)

var _ artifact.Service = (*Service)(nil)

// Service is an in-memory artifact store. Versions of one name are held as a
// slice in save order, so the slice index is the version number.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]map[string][]*artifact.Artifact
}

// NewService creates an empty in-memory artifact service.
func NewService() *Service {
	return &Service{sessions: make(map[string]map[string][]*artifact.Artifact)}
}

// Save appends a new version of the named artifact and returns its version.
func (s *Service) Save(ctx context.Context, sessionID, name string, art *artifact.Artifact) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName := s.sessions[sessionID]
	if byName == nil {
		byName = make(map[string][]*artifact.Artifact)
		s.sessions[sessionID] = byName
	}
	version := len(byName[name])
	byName[name] = append(byName[name], art)
	return version, nil
}

// Load returns one version of the named artifact, the latest when version is
// nil. A name with no saved versions loads as (nil, nil).
func (s *Service) Load(ctx context.Context, sessionID, name string, version *int) (*artifact.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.sessions[sessionID][name]
	if len(versions) == 0 {
		return nil, nil
	}
	idx := len(versions) - 1
	if version != nil {
		idx = *version
		if idx < 0 || idx >= len(versions) {
			return nil, fmt.Errorf("version %d does not exist", *version)
		}
	}
	return versions[idx], nil
}

// ListNames lists the artifact names saved under a session, sorted.
func (s *Service) ListNames(ctx context.Context, sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.sessions[sessionID]))
	for name := range s.sessions[sessionID] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ListVersions lists the stored versions of one artifact, oldest first.
func (s *Service) ListVersions(ctx context.Context, sessionID, name string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.sessions[sessionID][name]
	result := make([]int, len(versions))
	for i := range versions {
		result[i] = i
	}
	return result, nil
}

// Delete removes every version of the named artifact. Missing names are a
// no-op.
func (s *Service) Delete(ctx context.Context, sessionID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName := s.sessions[sessionID]
	delete(byName, name)
	if len(byName) == 0 {
		delete(s.sessions, sessionID)
	}
	return nil
}
