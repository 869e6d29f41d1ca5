// Package minio uploads backup snapshots to S3-compatible object storage.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rossigee/todostore/internal/config"
	"github.com/rossigee/todostore/internal/retry"
	"github.com/sirupsen/logrus"
)

// objectAPI is the subset of *minio.Client used here
type objectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader,
		objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Client handles MinIO operations
type Client struct {
	api         objectAPI
	bucket      string
	retryConfig retry.Config
}

// NewClient creates a MinIO client from the backup configuration
func NewClient(cfg config.BackupConfig) (*Client, error) {
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("MINIO_ACCESS_KEY environment variable is required for backups")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("MINIO_SECRET_KEY environment variable is required for backups")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("BACKUP_BUCKET environment variable is required for backups")
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid MINIO_ENDPOINT '%s': %w (expected format: https://hostname:port)", cfg.Endpoint, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid MINIO_ENDPOINT scheme '%s': must be http or https", u.Scheme)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("invalid MINIO_ENDPOINT '%s': missing hostname", cfg.Endpoint)
	}

	minioClient, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client for %s: %w", u.Host, err)
	}

	logrus.WithFields(logrus.Fields{
		"endpoint": u.Host,
		"bucket":   cfg.Bucket,
	}).Debug("Configured backup object storage")

	return newClient(minioClient, cfg.Bucket, retry.Config{
		MaxAttempts: cfg.RetryAttempts,
		Delays:      cfg.RetryDelays(),
	}), nil
}

func newClient(api objectAPI, bucket string, retryConfig retry.Config) *Client {
	retryConfig.Name = "backup upload"
	retryConfig.Retryable = isTransient
	return &Client{
		api:         api,
		bucket:      bucket,
		retryConfig: retryConfig,
	}
}

// Bucket returns the destination bucket
func (c *Client) Bucket() string {
	return c.bucket
}

// Upload writes data to objectName in the backup bucket, retrying transient failures
func (c *Client) Upload(ctx context.Context, objectName string, data []byte, contentType string) (minio.UploadInfo, error) {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return minio.UploadInfo{}, fmt.Errorf("failed to check bucket %s: %w", c.bucket, err)
	}
	if !exists {
		return minio.UploadInfo{}, fmt.Errorf("backup bucket %s does not exist", c.bucket)
	}

	var info minio.UploadInfo
	err = retry.WithRetry(ctx, c.retryConfig, func() error {
		var putErr error
		info, putErr = c.api.PutObject(ctx, c.bucket, objectName,
			bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: contentType})
		return putErr
	})
	if err != nil {
		return minio.UploadInfo{}, fmt.Errorf("failed to upload %s: %w", objectName, err)
	}

	return info, nil
}

// isTransient treats network failures and server-side errors as retryable
func isTransient(err error) bool {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "" && resp.StatusCode == 0 {
		return true
	}
	return resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
}
