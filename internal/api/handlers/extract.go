package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kentandrian/vertexai-demos/internal/api/middleware"
	"github.com/kentandrian/vertexai-demos/internal/document"
	"github.com/kentandrian/vertexai-demos/internal/extract"
)

// DocumentExtractor runs a single-call extractor.
type DocumentExtractor interface {
	Extract(ctx context.Context, kind extract.Kind, doc document.Document) (*extract.Result, error)
}

// ExtractHandler serves the invoice, e-Bupot and one-shot claim extractors.
type ExtractHandler struct {
	extractor DocumentExtractor
	maxUpload int64
}

// NewExtractHandler creates an extract handler.
func NewExtractHandler(extractor DocumentExtractor, maxUpload int64) *ExtractHandler {
	return &ExtractHandler{extractor: extractor, maxUpload: maxUpload}
}

// Extract handles POST /api/extract/{kind}
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	kind, err := extract.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeErr(w, r, err, "Unknown extractor")
		return
	}

	doc, err := readUpload(w, r, h.maxUpload)
	if err != nil {
		writeErr(w, r, err, "Invalid upload")
		return
	}

	res, err := h.extractor.Extract(r.Context(), kind, doc)
	if err != nil {
		writeErr(w, r, err, "Failed to extract document")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, res)
}
