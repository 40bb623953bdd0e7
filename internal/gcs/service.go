package gcs

import (
	"context"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/kentandrian/vertexai-demos/internal/logger"
	"github.com/rotisserie/eris"
)

// DefaultUploadTimeout bounds a single upload.
const DefaultUploadTimeout = 2 * time.Minute

// Service talks to Cloud Storage with one shared client.
// It assumes Application Default Credentials are configured.
type Service struct {
	client  *storage.Client
	maxSize int64
}

// NewService creates the storage client. maxSize caps downloads; zero means no cap.
func NewService(ctx context.Context, maxSize int64) (*Service, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "NewService: create storage client")
	}
	return &Service{client: client, maxSize: maxSize}, nil
}

// Close releases the client.
func (s *Service) Close() error {
	return s.client.Close()
}

// Upload implements StorageService.
func (s *Service) Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultUploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", eris.Wrapf(err, "Upload: copy to %s", URI(bucket, object))
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", eris.Wrapf(err, "Upload: finalize %s", URI(bucket, object))
	}

	uri := URI(bucket, object)
	log := logger.FromContext(ctx)
	log.Info().Str("uri", uri).Msg("Object uploaded")
	return uri, nil
}

// Fetch implements StorageService.
func (s *Service) Fetch(ctx context.Context, uri string) (*Object, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "Fetch: open %s", uri)
	}
	defer rc.Close()

	if s.maxSize > 0 && rc.Attrs.Size > s.maxSize {
		return nil, eris.Errorf("Fetch: %s is %d bytes, limit is %d", uri, rc.Attrs.Size, s.maxSize)
	}

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "Fetch: read %s", uri)
	}
	return &Object{
		URI:         uri,
		Name:        FilenameFromURI(uri),
		ContentType: rc.Attrs.ContentType,
		Data:        data,
	}, nil
}

var _ StorageService = (*Service)(nil)
