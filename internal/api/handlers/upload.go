package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/kentandrian/vertexai-demos/internal/document"
	"github.com/kentandrian/vertexai-demos/internal/logger"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// DefaultMaxUploadBytes caps multipart uploads when no limit is configured.
const DefaultMaxUploadBytes = 20 << 20

// formFileField is the multipart field holding the document.
const formFileField = "file"

// readUpload reads the "file" part of a multipart request into a Document.
// The declared part type wins over sniffing.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (document.Document, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return document.Document{}, err
		}
		return document.Document{}, eris.Wrap(document.ErrEmpty, "readUpload: no multipart form")
	}
	file, header, err := r.FormFile(formFileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return document.Document{}, eris.Wrap(document.ErrEmpty, "readUpload: missing file field")
		}
		return document.Document{}, eris.Wrap(err, "readUpload: open file part")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return document.Document{}, eris.Wrap(err, "readUpload: read file part")
	}

	name := filepath.Base(header.Filename)
	mt := header.Header.Get("Content-Type")
	if mt == "" || mt == "application/octet-stream" {
		mt = document.DetectMIMEType(name, data)
	}
	return document.Document{Name: name, MIMEType: mt, Data: data}, nil
}

func loggerFor(r *http.Request) *zerolog.Logger {
	log := logger.FromContext(r.Context())
	return &log
}
