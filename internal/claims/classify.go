package claims

import (
	"context"
	"errors"
	"strings"

	"github.com/kentandrian/vertexai-demos/internal/logger"
	"github.com/kentandrian/vertexai-demos/internal/vertex"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"
)

// DefaultWorkers caps concurrent Stage-2 calls when no worker count is configured.
const DefaultWorkers = 10

// ErrEmptyKey is recorded for an item whose classification reply held no key.
var ErrEmptyKey = errors.New("classification reply is empty")

// Outcome is the tagged result of classifying one item. Exactly one of Key or Err is set.
type Outcome struct {
	Index int
	Item  RawLineItem
	Key   ClassificationKey
	Err   error
}

// Classifier runs Stage 2: one model call per item, at most workers at a time.
type Classifier struct {
	model     vertex.Model
	modelName string
	options   string
	workers   int
}

// NewClassifier creates a Classifier listing the keys of table in its prompts.
// A non-positive workers uses DefaultWorkers.
func NewClassifier(model vertex.Model, modelName string, table *CategoryTable, workers int) *Classifier {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Classifier{
		model:     model,
		modelName: modelName,
		options:   table.Options(),
		workers:   workers,
	}
}

func classificationParams() vertex.Params {
	return vertex.Params{
		Temperature:     vertex.Float(0),
		MaxOutputTokens: 256,
		Safety:          vertex.SafetyBlockNone(),
	}
}

// Classify classifies every item and waits for all of them. Each item is
// attempted once. Failed items are returned as ItemFailure and do not stop
// the others. Both slices are in input order.
func (c *Classifier) Classify(ctx context.Context, gc GlobalContext, items []RawLineItem) ([]Classified, []ItemFailure) {
	outcomes := make([]Outcome, len(items))

	g := new(errgroup.Group)
	g.SetLimit(c.workers)
	for i, item := range items {
		g.Go(func() error {
			outcomes[i] = c.classifyOne(ctx, gc, i, item)
			return nil
		})
	}
	_ = g.Wait()

	log := logger.FromContext(ctx)
	classified := make([]Classified, 0, len(items))
	var failures []ItemFailure
	for _, o := range outcomes {
		if o.Err != nil {
			log.Warn().
				Err(o.Err).
				Int("index", o.Index).
				Str("description", o.Item.Description).
				Msg("Item classification failed")
			failures = append(failures, newItemFailure(o.Index, o.Item, o.Err))
			continue
		}
		classified = append(classified, Classified{Index: o.Index, Item: o.Item, Key: o.Key})
	}
	return classified, failures
}

func (c *Classifier) classifyOne(ctx context.Context, gc GlobalContext, index int, item RawLineItem) Outcome {
	out := Outcome{Index: index, Item: item}

	prompt, err := ClassificationPrompt(gc, item, c.options)
	if err != nil {
		out.Err = err
		return out
	}
	resp, err := c.model.Generate(ctx, vertex.Request{
		Model:  c.modelName,
		Parts:  []*genai.Part{genai.NewPartFromText(prompt)},
		Params: classificationParams(),
	})
	if err != nil {
		out.Err = eris.Wrapf(err, "classifyOne: item %d", index)
		return out
	}
	key := NormalizeKey(resp.Text)
	if key == "" {
		out.Err = ErrEmptyKey
		return out
	}
	out.Key = key
	return out
}

// NormalizeKey extracts the key token from a classification reply. Code
// fence lines are dropped, the first non-empty line is kept and surrounding
// quotes, backticks, asterisks and periods are trimmed.
func NormalizeKey(reply string) ClassificationKey {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") {
			continue
		}
		line = strings.Trim(line, " \t`'\"*.")
		if line != "" {
			return ClassificationKey(line)
		}
	}
	return ""
}
