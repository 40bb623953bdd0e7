package document

import (
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Media types accepted for document extraction.
const (
	MIMEPDF  = "application/pdf"
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEWebP = "image/webp"
)

var (
	// ErrEmpty is returned for a missing or zero-length payload.
	ErrEmpty = errors.New("document is empty")
	// ErrUnsupportedType is returned when the media type is not accepted by the caller.
	ErrUnsupportedType = errors.New("unsupported document type")
)

// DefaultTypes are the media types accepted by the multimodal extractors.
var DefaultTypes = []string{MIMEPDF, MIMEPNG, MIMEJPEG, MIMEWebP}

// Document is one uploaded file.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Validate checks that the payload is present and its type is one of allowed.
// With no allowed types, DefaultTypes is used.
func (d Document) Validate(allowed ...string) error {
	if len(d.Data) == 0 {
		return ErrEmpty
	}
	if len(allowed) == 0 {
		allowed = DefaultTypes
	}
	mt := NormalizeMIMEType(d.MIMEType)
	for _, a := range allowed {
		if mt == a {
			return nil
		}
	}
	return eris.Wrapf(ErrUnsupportedType, "%q (accepted: %s)", d.MIMEType, strings.Join(allowed, ", "))
}

// NormalizeMIMEType lower-cases the type, drops parameters and maps common aliases.
func NormalizeMIMEType(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.Index(mt, ";"); i != -1 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "image/jpg", "image/pjpeg":
		return MIMEJPEG
	case "application/x-pdf":
		return MIMEPDF
	}
	return mt
}

// DetectMIMEType picks a media type from the file extension, falling back to content sniffing.
func DetectMIMEType(name string, data []byte) string {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		if mt := mime.TypeByExtension(ext); mt != "" {
			return NormalizeMIMEType(mt)
		}
	}
	return NormalizeMIMEType(http.DetectContentType(data))
}

// FromFile reads a local file and detects its media type.
func FromFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, eris.Wrapf(err, "FromFile: read %q", path)
	}
	return Document{
		Name:     filepath.Base(path),
		MIMEType: DetectMIMEType(path, data),
		Data:     data,
	}, nil
}
