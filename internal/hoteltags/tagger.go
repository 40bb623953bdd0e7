package hoteltags

import (
	"context"
	"embed"
	"encoding/json"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/kentandrian/vertexai-demos/internal/logger"
	"github.com/kentandrian/vertexai-demos/internal/vertex"
	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// Result holds both model replies for one hotel.
type Result struct {
	Page *HotelPage `json:"page"`
	// AllTags is the tag-and-score reply as returned by the model.
	AllTags string `json:"all_tags"`
	// TopTags is the top-five reply as returned by the model.
	TopTags string        `json:"top_tags"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// TopTagSet is the parsed top-five reply.
type TopTagSet struct {
	HotelName string   `json:"hotel_name"`
	Tags      []string `json:"tags"`
}

// Tagger runs the two tag generation calls.
type Tagger struct {
	model     vertex.Model
	modelName string
}

// NewTagger creates a Tagger.
func NewTagger(model vertex.Model, modelName string) *Tagger {
	return &Tagger{model: model, modelName: modelName}
}

func taggingParams() vertex.Params {
	return vertex.Params{
		Temperature:     vertex.Float(1),
		TopP:            vertex.Float(0.95),
		MaxOutputTokens: 8192,
		Safety:          vertex.SafetyOff(),
	}
}

// Generate tags the hotel from its reviews and images, then asks for the top five tags.
func (t *Tagger) Generate(ctx context.Context, page *HotelPage) (*Result, error) {
	start := time.Now()

	reviewsJSON, err := json.Marshal(page.Reviews)
	if err != nil {
		return nil, eris.Wrap(err, "Generate: marshal reviews")
	}
	tagsPrompt, err := render("tags.tmpl", map[string]string{
		"HotelName": page.Name,
		"Reviews":   string(reviewsJSON),
	})
	if err != nil {
		return nil, err
	}

	parts := make([]*genai.Part, 0, len(page.ImageURLs)+1)
	parts = append(parts, genai.NewPartFromText(tagsPrompt))
	for _, u := range page.ImageURLs {
		parts = append(parts, genai.NewPartFromURI(u, "image/jpeg"))
	}

	all, err := t.model.Generate(ctx, vertex.Request{Model: t.modelName, Parts: parts, Params: taggingParams()})
	if err != nil {
		return nil, eris.Wrap(err, "Generate: tag call")
	}

	topPrompt, err := render("top_tags.tmpl", map[string]string{
		"HotelName": page.Name,
		"Tags":      all.Text,
	})
	if err != nil {
		return nil, err
	}
	top, err := t.model.Generate(ctx, vertex.Request{
		Model:  t.modelName,
		Parts:  []*genai.Part{genai.NewPartFromText(topPrompt)},
		Params: taggingParams(),
	})
	if err != nil {
		return nil, eris.Wrap(err, "Generate: top tags call")
	}

	res := &Result{Page: page, AllTags: all.Text, TopTags: top.Text, Elapsed: time.Since(start)}
	log := logger.FromContext(ctx)
	log.Info().
		Str("hotel", page.Name).
		Int("images", len(page.ImageURLs)).
		Int("reviews", len(page.Reviews)).
		Dur("elapsed", res.Elapsed).
		Msg("Hotel tags generated")
	return res, nil
}

func render(name string, data map[string]string) (string, error) {
	var b strings.Builder
	if err := prompts.ExecuteTemplate(&b, name, data); err != nil {
		return "", eris.Wrapf(err, "render: %s", name)
	}
	return b.String(), nil
}

// ParseTopTags decodes the top-five reply. Tags come back ordered tag_1, tag_2, ...
func ParseTopTags(reply string) (*TopTagSet, error) {
	var raw struct {
		HotelName string            `json:"hotel_name"`
		Tags      map[string]string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(vertex.CleanJSON(reply)), &raw); err != nil {
		return nil, eris.Wrap(err, "ParseTopTags: decode reply")
	}
	keys := make([]string, 0, len(raw.Tags))
	for k := range raw.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	set := &TopTagSet{HotelName: raw.HotelName, Tags: make([]string, 0, len(keys))}
	for _, k := range keys {
		if v := strings.TrimSpace(raw.Tags[k]); v != "" {
			set.Tags = append(set.Tags, v)
		}
	}
	return set, nil
}
