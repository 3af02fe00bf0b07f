//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package cos stores artifacts in Tencent Cloud Object Storage. Every version
// of an artifact is one immutable object named {session}/{name}/{version};
// saving writes the next version instead of overwriting.
//
// Credentials come from the COS_SECRETID and COS_SECRETKEY environment
// variables unless WithSecretID and WithSecretKey, or a pre-built client via
// WithClient, are provided:
//
//	svc, err := cos.NewService("https://bucket.cos.region.myqcloud.com")
package cos

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	cos "github.com/tencentyun/cos-go-sdk-v5"

	"trpc.group/trpc-go/trpc-workflow-go/artifact"
)

var _ artifact.Service = (*Service)(nil)

// Service is a COS-backed artifact store.
type Service struct {
	client client
}

// NewService creates a COS artifact service for the given bucket URL.
func NewService(bucketURL string, opts ...Option) (*Service, error) {
	o := &options{
		timeout:   defaultTimeout,
		secretID:  os.Getenv("COS_SECRETID"),
		secretKey: os.Getenv("COS_SECRETKEY"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.client != nil {
		return &Service{client: o.client}, nil
	}

	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("parse bucket URL %q: %w", bucketURL, err)
	}
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: o.timeout,
			Transport: &cos.AuthorizationTransport{
				SecretID:  o.secretID,
				SecretKey: o.secretKey,
			},
		}
	} else if o.timeout > 0 {
		httpClient.Timeout = o.timeout
	}
	return &Service{client: newSDKClient(cos.NewClient(&cos.BaseURL{BucketURL: u}, httpClient))}, nil
}

// Save uploads a new version of the named artifact and returns its version.
// The next version is one past the highest stored, so versions stay dense
// unless older ones were deleted out of band.
func (s *Service) Save(ctx context.Context, sessionID, name string, art *artifact.Artifact) (int, error) {
	versions, err := s.ListVersions(ctx, sessionID, name)
	if err != nil {
		return 0, err
	}
	version := 0
	for _, v := range versions {
		if v >= version {
			version = v + 1
		}
	}
	if err := s.client.PutObject(ctx, objectKey(sessionID, name, version), bytes.NewReader(art.Data), art.MimeType); err != nil {
		return 0, fmt.Errorf("upload artifact: %w", err)
	}
	return version, nil
}

// Load downloads one version of the named artifact, the latest when version
// is nil. Missing artifacts and missing versions load as (nil, nil).
func (s *Service) Load(ctx context.Context, sessionID, name string, version *int) (*artifact.Artifact, error) {
	var target int
	if version != nil {
		target = *version
	} else {
		versions, err := s.ListVersions(ctx, sessionID, name)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, nil
		}
		target = versions[len(versions)-1]
	}

	body, header, err := s.client.GetObject(ctx, objectKey(sessionID, name, target))
	if err != nil {
		if cos.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("download artifact: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read artifact data: %w", err)
	}
	mimeType := header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &artifact.Artifact{Data: data, MimeType: mimeType, Name: name}, nil
}

// ListNames lists the artifact names stored under a session, sorted.
func (s *Service) ListNames(ctx context.Context, sessionID string) ([]string, error) {
	keys, err := s.client.ListObjects(ctx, sessionPrefix(sessionID))
	if err != nil {
		if cos.IsNotFoundError(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	seen := make(map[string]struct{})
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		name, ok := nameFromKey(key)
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ListVersions lists the stored versions of one artifact, oldest first.
func (s *Service) ListVersions(ctx context.Context, sessionID, name string) ([]int, error) {
	keys, err := s.client.ListObjects(ctx, versionPrefix(sessionID, name))
	if err != nil {
		if cos.IsNotFoundError(err) {
			return []int{}, nil
		}
		return nil, fmt.Errorf("list versions: %w", err)
	}

	versions := make([]int, 0, len(keys))
	for _, key := range keys {
		idx := strings.LastIndex(key, "/")
		if idx < 0 {
			continue
		}
		if v, err := strconv.Atoi(key[idx+1:]); err == nil {
			versions = append(versions, v)
		}
	}
	// Bucket listings are lexicographic, so version 10 sorts before 2.
	sort.Ints(versions)
	return versions, nil
}

// Delete removes every stored version of the named artifact.
func (s *Service) Delete(ctx context.Context, sessionID, name string) error {
	versions, err := s.ListVersions(ctx, sessionID, name)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if err := s.client.DeleteObject(ctx, objectKey(sessionID, name, v)); err != nil && !cos.IsNotFoundError(err) {
			return fmt.Errorf("delete artifact version %d: %w", v, err)
		}
	}
	return nil
}

// Session IDs and artifact names are path-escaped in object keys so the
// session/name/version layout survives names containing slashes.
func objectKey(sessionID, name string, version int) string {
	return fmt.Sprintf("%s/%s/%d", url.PathEscape(sessionID), url.PathEscape(name), version)
}

func sessionPrefix(sessionID string) string {
	return url.PathEscape(sessionID) + "/"
}

func versionPrefix(sessionID, name string) string {
	return url.PathEscape(sessionID) + "/" + url.PathEscape(name) + "/"
}

func nameFromKey(key string) (string, bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 {
		return "", false
	}
	if _, err := strconv.Atoi(parts[2]); err != nil {
		return "", false
	}
	name, err := url.PathUnescape(parts[1])
	if err != nil {
		return "", false
	}
	return name, true
}
