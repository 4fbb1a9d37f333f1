// Package gcsio moves dataset CSVs between the local store and Google
// Cloud Storage. Application Default Credentials are assumed
// (gcloud auth application-default login).
package gcsio

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// IsURI reports whether s looks like a GCS URI.
func IsURI(s string) bool {
	return strings.HasPrefix(s, "gs://")
}

// ParseURI splits a gs://bucket/object URI into bucket and object path.
func ParseURI(uri string) (bucket, object string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// Filename extracts the object's base name from a GCS URI.
// e.g., "gs://bucket/folder/notas.csv" → "notas.csv"
func Filename(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// Fetch downloads the object bytes from the given GCS URI.
func Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read object bytes: %w", err)
	}
	return data, nil
}

// UploadFile uploads a local file (the canonical dataset CSV, typically) to a
// GCS bucket under the given object name.
func UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// Fetcher resolves an import source URI to CSV bytes. The zero-dependency
// Client hits GCS; tests substitute a fake.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Client is the GCS-backed Fetcher.
type Client struct{}

// NewClient creates a GCS-backed Fetcher.
func NewClient() *Client {
	return &Client{}
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, uri string) ([]byte, error) {
	return Fetch(ctx, uri)
}

var _ Fetcher = (*Client)(nil)
