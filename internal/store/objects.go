package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ObjectStore keeps each cache entry as a JSON object in an S3-compatible
// bucket. Suits edge deployments that replicate the bucket.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

// NewObjectStore connects to the endpoint and creates the bucket if missing.
func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &ObjectStore{client: client, bucket: cfg.Bucket}, nil
}

// objectName maps a logical path to an object key; paths are already
// slash-separated so they become prefixes in the bucket.
func objectName(path string) string {
	return strings.TrimPrefix(path, "/") + ".json"
}

func (s *ObjectStore) Get(ctx context.Context, path string) ([]byte, bool, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName(path), minio.GetObjectOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("get object %s: %w", path, err)
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read object %s: %w", path, err)
	}
	return raw, true, nil
}

func (s *ObjectStore) Set(ctx context.Context, path string, value []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName(path), bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", path, err)
	}
	return nil
}

func (s *ObjectStore) Delete(ctx context.Context, path string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectName(path), minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("remove object %s: %w", path, err)
	}
	return nil
}

func (s *ObjectStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

func (s *ObjectStore) Close() error { return nil }

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
