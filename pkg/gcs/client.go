/*
 * Copyright (c) 2025, The Kubernetes Task Runner Authors. All rights reserved.
 * See LICENSE for license information.
 */

package gcs

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/config"
	trerrors "github.com/kubernetes-task-runner/kubernetes-task-runner/pkg/errors"
)

// Output URLs stay valid long enough for clients to collect results.
const signedUrlValidity = 30 * 24 * time.Hour

type Interface interface {
	Upload(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	SignedUrl(key string) (string, error)
}

// Client is the object-store adapter over one bucket. It performs no retries;
// retry policy belongs to the callers.
type Client struct {
	client  *storage.Client
	bucket  string
	timeout time.Duration
}

func NewClient(ctx context.Context) (*Client, error) {
	client, err := storage.NewClient(ctx, option.WithCredentialsFile(config.GetCredentialsFilePath()))
	if err != nil {
		return nil, trerrors.NewStorageError(err.Error())
	}
	return &Client{
		client:  client,
		bucket:  config.GetBucketName(),
		timeout: time.Duration(config.GetRequestTimeoutSecond()) * time.Second,
	}, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) Upload(ctx context.Context, key string, data []byte) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	writer := c.client.Bucket(c.bucket).Object(key).NewWriter(ctx)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return trerrors.NewStorageError(err.Error())
	}
	if err := writer.Close(); err != nil {
		return trerrors.NewStorageError(err.Error())
	}
	return nil
}

// Delete removes an object; a missing object is success.
func (c *Client) Delete(ctx context.Context, key string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	err := c.client.Bucket(c.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return trerrors.NewStorageError(err.Error())
	}
	return nil
}

// SignedUrl produces a GET URL for the object, signed with the configured
// service account credentials.
func (c *Client) SignedUrl(key string) (string, error) {
	url, err := c.client.Bucket(c.bucket).SignedURL(key, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().UTC().Add(signedUrlValidity),
	})
	if err != nil {
		return "", trerrors.NewStorageError(err.Error())
	}
	return url, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
