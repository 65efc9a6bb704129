// Package storage keeps rendered SVG cards in MinIO so identical README content is
// only rendered once across replicas.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/readme-readyou/readme-readyou/internal/config"
)

// CardCache is a MinIO-backed snapshot cache for rendered cards.
type CardCache struct {
	client *minio.Client
	bucket string
}

// NewCardCache connects to MinIO and ensures the bucket exists.
func NewCardCache(ctx context.Context, cfg config.MinIOConfig) (*CardCache, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	c := &CardCache{client: mc, bucket: cfg.Bucket}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		exists, xerr := mc.BucketExists(ctx, c.bucket)
		if xerr != nil || !exists {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return c, nil
}

// Get returns the cached card for key; ok is false when the object does not exist.
func (c *CardCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, err
	}
	defer obj.Close()
	svg, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("minio get %s: %w", key, err)
	}
	return svg, true, nil
}

// Put stores a rendered card under key.
func (c *CardCache) Put(ctx context.Context, key string, svg []byte) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(svg), int64(len(svg)), minio.PutObjectOptions{
		ContentType:  "image/svg+xml",
		CacheControl: "public, max-age=3600",
	})
	if err != nil {
		return fmt.Errorf("minio put %s: %w", key, err)
	}
	return nil
}
