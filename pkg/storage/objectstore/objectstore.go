package objectstore

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config contains the information required to talk to an object store.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Client represents the capabilities the dispatcher expects. The relay never
// reads or writes object bytes; it only needs object metadata to recover a
// size that a notification envelope omitted.
type Client interface {
	Stat(ctx context.Context, bucket, key string) (int64, error)
	Close() error
}

// New creates an object store client based on the given configuration.
func New(cfg Config) (Client, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store client: %w", err)
	}

	return &minioClient{client: cl}, nil
}

type minioClient struct {
	client *minio.Client
}

func (m *minioClient) Stat(ctx context.Context, bucket, key string) (int64, error) {
	info, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("stat object %s/%s: %w", bucket, key, err)
	}
	return info.Size, nil
}

func (m *minioClient) Close() error {
	return nil
}
