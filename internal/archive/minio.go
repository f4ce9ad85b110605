package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/discovery"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioArchiver stores reports as JSON objects.
type MinioArchiver struct {
	client *minio.Client
	bucket string
}

// NewMinioArchiver creates the client and the bucket if it doesn't exist.
func NewMinioArchiver(ctx context.Context, cfg MinioConfig) (*MinioArchiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return &MinioArchiver{client: client, bucket: cfg.Bucket}, nil
}

// ObjectName places a report under runs/YYYY/MM/DD/<run id>.json.
func ObjectName(r *discovery.Report) string {
	return fmt.Sprintf("runs/%s/%s.json", r.StartedAt.UTC().Format("2006/01/02"), r.RunID)
}

// Archive implements discovery.Archiver.
func (a *MinioArchiver) Archive(ctx context.Context, r *discovery.Report) error {
	body, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = a.client.PutObject(ctx, a.bucket, ObjectName(r), bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload report: %w", err)
	}
	return nil
}
