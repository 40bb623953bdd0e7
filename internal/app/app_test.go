package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/kentandrian/vertexai-demos/internal/claims"
	"github.com/kentandrian/vertexai-demos/internal/config"
	"github.com/kentandrian/vertexai-demos/internal/document"
	"github.com/kentandrian/vertexai-demos/internal/gcs"
	"github.com/kentandrian/vertexai-demos/internal/jobs"
	"github.com/kentandrian/vertexai-demos/internal/vertex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct{}

func (fakeModel) Generate(ctx context.Context, req vertex.Request) (*vertex.Response, error) {
	return &vertex.Response{Text: "{}"}, nil
}

type fakeStorage struct {
	FetchFunc func(ctx context.Context, uri string) (*gcs.Object, error)
}

func (f *fakeStorage) Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) (string, error) {
	return gcs.URI(bucket, object), nil
}

func (f *fakeStorage) Fetch(ctx context.Context, uri string) (*gcs.Object, error) {
	return f.FetchFunc(ctx, uri)
}

type fakeProcessor struct {
	ProcessFunc func(ctx context.Context, in claims.Input) (*claims.Result, error)
}

func (f *fakeProcessor) Process(ctx context.Context, in claims.Input) (*claims.Result, error) {
	return f.ProcessFunc(ctx, in)
}

func testConfig() *config.Config {
	return &config.Config{
		Vertex: config.VertexConfig{ProjectID: "demo-project", Location: "us-central1", TimeoutSecs: 30},
		Models: config.ModelsConfig{Claim: "gemini-claim", Tax: "gemini-tax"},
		Claims: config.ClaimsConfig{Workers: 2, MaxUploadMB: 1},
	}
}

func TestNew_WithFakes(t *testing.T) {
	storage := &fakeStorage{}
	a, err := New(context.Background(), testConfig(), WithModel(fakeModel{}), WithStorage(storage))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Repo)
	assert.Equal(t, claims.NopRecorder{}, a.Recorder())

	p, err := a.ClaimProcessor()
	require.NoError(t, err)
	assert.Positive(t, p.Table().Len())

	assert.NotNil(t, a.Extractor())
	assert.NotNil(t, a.ExchangeAgent())
	assert.NotNil(t, a.TripPlanner())

	_, err = a.TaxAssistant()
	assert.Error(t, err)

	a.Config.Search.DataStoreID = "tax-docs"
	tax, err := a.TaxAssistant()
	require.NoError(t, err)
	assert.NotNil(t, tax)
}

func TestNew_RequiresProject(t *testing.T) {
	cfg := testConfig()
	cfg.Vertex.ProjectID = ""
	_, err := New(context.Background(), cfg, WithStorage(&fakeStorage{}))
	assert.Error(t, err)
}

func TestLoadDocument_Local(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7"), 0o600))

	doc, uri, err := LoadDocument(context.Background(), nil, path)
	require.NoError(t, err)
	assert.Empty(t, uri)
	assert.Equal(t, "receipt.pdf", doc.Name)
	assert.Equal(t, document.MIMEPDF, doc.MIMEType)
}

func TestLoadDocument_GCS(t *testing.T) {
	storage := &fakeStorage{FetchFunc: func(ctx context.Context, uri string) (*gcs.Object, error) {
		return &gcs.Object{URI: uri, Name: "scan.png", Data: []byte("\x89PNG\r\n\x1a\n")}, nil
	}}

	doc, uri, err := LoadDocument(context.Background(), storage, "gs://claims/scan.png")
	require.NoError(t, err)
	assert.Equal(t, "gs://claims/scan.png", uri)
	assert.Equal(t, document.MIMEPNG, doc.MIMEType)

	_, _, err = LoadDocument(context.Background(), nil, "gs://claims/scan.png")
	assert.Error(t, err)
}

func TestClaimJobHandler(t *testing.T) {
	var got claims.Input
	p := &fakeProcessor{ProcessFunc: func(ctx context.Context, in claims.Input) (*claims.Result, error) {
		got = in
		return &claims.Result{RunID: in.RunID}, nil
	}}
	storage := &fakeStorage{FetchFunc: func(ctx context.Context, uri string) (*gcs.Object, error) {
		return &gcs.Object{URI: uri, Name: "a.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}, nil
	}}
	handler := ClaimJobHandler(p, storage)

	job := &jobs.ProcessClaimJob{JobID: "job-1", SourceURI: "gs://claims/a.pdf"}
	require.NoError(t, handler(context.Background(), job))
	assert.Equal(t, "job-1", got.RunID)
	assert.Equal(t, "gs://claims/a.pdf", got.SourceURI)
	assert.Equal(t, []byte("%PDF"), got.Document.Data)
	require.NotNil(t, job.Result)
	assert.Equal(t, "job-1", job.Result.RunID)

	upload := &jobs.ProcessClaimJob{JobID: "job-2", DocumentName: "b.png", MIMEType: document.MIMEPNG, Data: []byte{1, 2}}
	require.NoError(t, handler(context.Background(), upload))
	assert.Equal(t, "b.png", got.Document.Name)
	assert.Equal(t, []byte{1, 2}, got.Document.Data)
}

func TestClaimJobHandler_Errors(t *testing.T) {
	errFetch := errors.New("object not found")
	errModel := errors.New("model unavailable")
	p := &fakeProcessor{ProcessFunc: func(ctx context.Context, in claims.Input) (*claims.Result, error) {
		return nil, errModel
	}}
	storage := &fakeStorage{FetchFunc: func(ctx context.Context, uri string) (*gcs.Object, error) {
		return nil, errFetch
	}}
	handler := ClaimJobHandler(p, storage)

	err := handler(context.Background(), &jobs.ProcessClaimJob{JobID: "j", SourceURI: "gs://b/o.pdf"})
	assert.ErrorIs(t, err, errFetch)

	job := &jobs.ProcessClaimJob{JobID: "j", Data: []byte("%PDF"), MIMEType: document.MIMEPDF}
	err = handler(context.Background(), job)
	assert.ErrorIs(t, err, errModel)
	assert.Nil(t, job.Result)
}
