package app

import (
	"context"
	"strings"

	"github.com/kentandrian/vertexai-demos/internal/claims"
	"github.com/kentandrian/vertexai-demos/internal/document"
	"github.com/kentandrian/vertexai-demos/internal/gcs"
	"github.com/kentandrian/vertexai-demos/internal/jobs"
	"github.com/kentandrian/vertexai-demos/internal/logger"
	"github.com/rotisserie/eris"
)

// LoadDocument reads ref from Cloud Storage when it is a gs:// URI and from
// the local filesystem otherwise. The returned string is the source URI, empty
// for local files.
func LoadDocument(ctx context.Context, storage gcs.StorageService, ref string) (document.Document, string, error) {
	if !strings.HasPrefix(ref, "gs://") {
		doc, err := document.FromFile(ref)
		return doc, "", err
	}
	if storage == nil {
		return document.Document{}, "", eris.New("LoadDocument: storage is not configured")
	}
	obj, err := storage.Fetch(ctx, ref)
	if err != nil {
		return document.Document{}, "", eris.Wrap(err, "LoadDocument: fetch")
	}
	mt := obj.ContentType
	if mt == "" || mt == "application/octet-stream" {
		mt = document.DetectMIMEType(obj.Name, obj.Data)
	}
	return document.Document{Name: obj.Name, MIMEType: mt, Data: obj.Data}, obj.URI, nil
}

// Processor is the part of claims.Processor the job handler needs.
type Processor interface {
	Process(ctx context.Context, in claims.Input) (*claims.Result, error)
}

// ClaimJobHandler processes queued claim jobs. Uploaded jobs carry their
// bytes; the rest are fetched from SourceURI. The job id doubles as the run id.
func ClaimJobHandler(p Processor, storage gcs.StorageService) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.ProcessClaimJob) error {
		doc := document.Document{Name: job.DocumentName, MIMEType: job.MIMEType, Data: job.Data}
		if len(doc.Data) == 0 && job.SourceURI != "" {
			fetched, _, err := LoadDocument(ctx, storage, job.SourceURI)
			if err != nil {
				return err
			}
			if job.MIMEType != "" {
				fetched.MIMEType = job.MIMEType
			}
			doc = fetched
		}

		log := logger.FromContext(ctx)
		log.Info().Str("document", doc.Name).Str("source_uri", job.SourceURI).Msg("Processing claim job")

		res, err := p.Process(ctx, claims.Input{Document: doc, SourceURI: job.SourceURI, RunID: job.JobID})
		if err != nil {
			return err
		}
		job.Result = res
		return nil
	}
}
