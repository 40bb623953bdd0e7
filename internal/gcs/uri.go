package gcs

import (
	"errors"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// ErrInvalidURI is returned for strings that are not gs://bucket/object.
var ErrInvalidURI = errors.New("invalid GCS URI")

// ParseURI splits gs://bucket/path/to/object into bucket and object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", eris.Wrapf(ErrInvalidURI, "%q: missing gs:// scheme", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", eris.Wrapf(ErrInvalidURI, "%q: no object path", uri)
	}
	return parts[0], parts[1], nil
}

// URI builds gs://bucket/object.
func URI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}

// FilenameFromURI returns the last path element of a gs:// URI,
// e.g. "gs://bucket/claims/receipt.pdf" gives "receipt.pdf".
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

var unsafeObjectChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectName returns a collision-free object name under prefix:
// {prefix}/{YYYY-MM-DD}/{uuid}-{filename}.
func ObjectName(prefix, filename string, now time.Time) string {
	name := unsafeObjectChars.ReplaceAllString(path.Base(filename), "_")
	name = strings.Trim(name, "_")
	if name == "" || name == "." {
		name = "document"
	}
	return path.Join(strings.Trim(prefix, "/"), now.UTC().Format("2006-01-02"), uuid.NewString()+"-"+name)
}
