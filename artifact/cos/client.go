//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package cos

import (
	"context"
	"io"
	"net/http"

	cos "github.com/tencentyun/cos-go-sdk-v5"
)

// client is the slice of the COS SDK the service needs. Tests substitute an
// in-memory implementation.
type client interface {
	ListObjects(ctx context.Context, prefix string) ([]string, error)
	PutObject(ctx context.Context, key string, content io.Reader, mimeType string) error
	GetObject(ctx context.Context, key string) (body io.ReadCloser, header http.Header, err error)
	DeleteObject(ctx context.Context, key string) error
}

type sdkClient struct {
	*cos.Client
}

func newSDKClient(c *cos.Client) client {
	return &sdkClient{Client: c}
}

func (c *sdkClient) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	result, _, err := c.Client.Bucket.Get(ctx, &cos.BucketGetOptions{Prefix: prefix})
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(result.Contents))
	for _, obj := range result.Contents {
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (c *sdkClient) PutObject(ctx context.Context, key string, content io.Reader, mimeType string) error {
	opt := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{ContentType: mimeType},
	}
	_, err := c.Client.Object.Put(ctx, key, content, opt)
	return err
}

func (c *sdkClient) GetObject(ctx context.Context, key string) (io.ReadCloser, http.Header, error) {
	resp, err := c.Client.Object.Get(ctx, key, nil)
	if err != nil {
		return nil, nil, err
	}
	return resp.Body, resp.Header, nil
}

func (c *sdkClient) DeleteObject(ctx context.Context, key string) error {
	_, err := c.Client.Object.Delete(ctx, key)
	return err
}
