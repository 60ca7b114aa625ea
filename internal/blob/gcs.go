package blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// GCSStore writes assets to a Cloud Storage bucket. Public URLs come from
// joining the bucket's public base URL with the object path, which also
// works for buckets fronted by a CDN domain.
type GCSStore struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

func NewGCSStore(ctx context.Context, bucket, publicBaseURL string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://storage.googleapis.com/%s", bucket)
	}

	return &GCSStore{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

func (s *GCSStore) Put(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	obj := s.client.Bucket(s.bucket).Object(objectPath)
	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object: %w", err)
	}

	return fmt.Sprintf("%s/%s", s.publicBaseURL, objectPath), nil
}

func (s *GCSStore) Get(ctx context.Context, objectPath string) ([]byte, string, error) {
	obj := s.client.Bucket(s.bucket).Object(objectPath)
	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open object: %w", err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object: %w", err)
	}
	return data, r.Attrs.ContentType, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
