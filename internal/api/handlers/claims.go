package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kentandrian/vertexai-demos/internal/api/middleware"
	"github.com/kentandrian/vertexai-demos/internal/claims"
	"github.com/kentandrian/vertexai-demos/internal/export"
	"github.com/kentandrian/vertexai-demos/internal/gcs"
	"github.com/kentandrian/vertexai-demos/internal/jobs"
)

// ClaimProcessor runs the two-stage claim pipeline.
type ClaimProcessor interface {
	Process(ctx context.Context, in claims.Input) (*claims.Result, error)
	Table() *claims.CategoryTable
}

// ClaimsHandler handles claim processing endpoints.
type ClaimsHandler struct {
	processor ClaimProcessor
	publisher jobs.Publisher
	maxUpload int64
	now       func() time.Time
}

// NewClaimsHandler creates a new claims handler. publisher may be nil, in
// which case async submission is unavailable.
func NewClaimsHandler(processor ClaimProcessor, publisher jobs.Publisher, maxUpload int64) *ClaimsHandler {
	return &ClaimsHandler{
		processor: processor,
		publisher: publisher,
		maxUpload: maxUpload,
		now:       time.Now,
	}
}

// Process handles POST /api/claims
// The response is JSON unless ?format=csv or ?format=xlsx asks for a download.
func (h *ClaimsHandler) Process(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != "json" && format != "csv" && format != "xlsx" {
		badRequest(w, "format must be json, csv or xlsx")
		return
	}

	doc, err := readUpload(w, r, h.maxUpload)
	if err != nil {
		writeErr(w, r, err, "Invalid upload")
		return
	}

	res, err := h.processor.Process(r.Context(), claims.Input{Document: doc})
	if err != nil {
		writeErr(w, r, err, "Failed to process claim")
		return
	}

	switch format {
	case "csv":
		h.download(w, r, doc.Name, "csv", "text/csv; charset=utf-8", func(buf *bytes.Buffer) error {
			return export.WriteCSV(buf, res.Items)
		})
	case "xlsx":
		h.download(w, r, doc.Name, "xlsx", export.XLSXContentType, func(buf *bytes.Buffer) error {
			return export.WriteXLSX(buf, res)
		})
	default:
		middleware.WriteJSON(w, http.StatusOK, res)
	}
}

func (h *ClaimsHandler) download(w http.ResponseWriter, r *http.Request, name, ext, contentType string, write func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		writeErr(w, r, err, "Failed to export claim")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.BuildFilename(name, ext, h.now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// SubmitJob handles POST /api/claims/jobs
// The body is either a multipart upload or {"gcs_uri": "gs://bucket/object"}.
func (h *ClaimsHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Job queue is not configured")
		return
	}

	job := &jobs.ProcessClaimJob{
		JobID:     uuid.NewString(),
		Status:    jobs.JobStatusPending,
		CreatedAt: h.now().UTC(),
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			GCSURI   string `json:"gcs_uri"`
			MIMEType string `json:"mime_type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "Invalid request body")
			return
		}
		if _, _, err := gcs.ParseURI(req.GCSURI); err != nil {
			writeErr(w, r, err, "Invalid gcs_uri")
			return
		}
		job.SourceURI = req.GCSURI
		job.DocumentName = gcs.FilenameFromURI(req.GCSURI)
		job.MIMEType = req.MIMEType
	} else {
		doc, err := readUpload(w, r, h.maxUpload)
		if err != nil {
			writeErr(w, r, err, "Invalid upload")
			return
		}
		if err := doc.Validate(); err != nil {
			writeErr(w, r, err, "Invalid upload")
			return
		}
		job.DocumentName = doc.Name
		job.MIMEType = doc.MIMEType
		job.Data = doc.Data
	}

	if err := h.publisher.PublishProcessClaim(r.Context(), job); err != nil {
		writeErr(w, r, err, "Failed to enqueue claim")
		return
	}

	log := loggerFor(r)
	log.Info().Str("job_id", job.JobID).Str("document", job.DocumentName).Msg("Claim job submitted")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.JobID,
		"status": job.Status,
	})
}

// categoryView exposes the key that CategoryRecord hides from JSON.
type categoryView struct {
	Key claims.ClassificationKey `json:"key"`
	claims.CategoryRecord
}

// Categories handles GET /api/claims/categories
func (h *ClaimsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	table := h.processor.Table()
	records := table.Records()
	views := make([]categoryView, 0, len(records))
	for _, rec := range records {
		views = append(views, categoryView{Key: rec.Key, CategoryRecord: rec})
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": views,
		"default":    table.Default().Key,
		"count":      table.Len(),
	})
}
