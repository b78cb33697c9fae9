package inference

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArtifactSource opens named artifact files. A missing artifact wraps fs.ErrNotExist.
type ArtifactSource interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	String() string
}

// DirSource reads artifacts from a local directory
type DirSource struct {
	Dir string
}

// Open implements ArtifactSource
func (s DirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("inference: open %s: %w", name, err)
	}
	return f, nil
}

func (s DirSource) String() string {
	return "dir:" + s.Dir
}

// BucketConfig addresses an S3 compatible bucket holding the artifacts
type BucketConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

// BucketSource reads artifacts from an S3 compatible object store
type BucketSource struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewBucketSource creates a minio client for the bucket
func NewBucketSource(cfg BucketConfig) (*BucketSource, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("inference: bucket source needs endpoint and bucket")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("inference: failed to create minio client: %w", err)
	}
	return &BucketSource{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Open implements ArtifactSource
func (s *BucketSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := path.Join(s.prefix, name)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("inference: get %s: %w", key, err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("inference: get %s: %w", key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("inference: stat %s: %w", key, err)
	}
	return obj, nil
}

func (s *BucketSource) String() string {
	return "bucket:" + path.Join(s.bucket, s.prefix)
}
