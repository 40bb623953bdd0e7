// Package gcs reads claim documents from and writes uploads and exports to
// Google Cloud Storage.
package gcs

import (
	"context"
	"io"
)

// StorageService is the storage surface used by the CLI and the HTTP service.
// *Service implements it.
type StorageService interface {
	// Upload writes r to bucket/object and returns the gs:// URI.
	Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) (string, error)

	// Fetch downloads the object at a gs:// URI.
	Fetch(ctx context.Context, uri string) (*Object, error)
}

// Object is a downloaded object.
type Object struct {
	URI         string
	Name        string
	ContentType string
	Data        []byte
}
