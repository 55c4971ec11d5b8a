package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// SnapshotStore keeps drawing snapshots attached to group submissions in
// object storage.
type SnapshotStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewSnapshotStore connects to MinIO and ensures the bucket exists.
func NewSnapshotStore(endpoint, accessKey, secretKey, bucket, publicURL string) (*SnapshotStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	if publicURL == "" {
		publicURL = "http://" + endpoint
	}
	return &SnapshotStore{client: client, bucket: bucket, publicURL: publicURL}, nil
}

// SaveSnapshot uploads one snapshot and returns its fetch URL.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, name), nil
}
