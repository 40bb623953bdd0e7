package claims

import (
	"embed"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
)

//go:embed prompts/stage1_extraction.txt prompts/stage2_classification.tmpl
var promptFS embed.FS

var (
	extractionPrompt     = mustReadPrompt("prompts/stage1_extraction.txt")
	classificationPrompt = template.Must(template.New("stage2").Parse(mustReadPrompt("prompts/stage2_classification.tmpl")))
)

func mustReadPrompt(name string) string {
	b, err := promptFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return strings.TrimSpace(string(b)) + "\n"
}

// ExtractionPrompt returns the fixed Stage-1 instruction text.
func ExtractionPrompt() string {
	return extractionPrompt
}

type classificationInput struct {
	GlobalContext string
	Item          string
	Options       string
}

// ClassificationPrompt renders the Stage-2 prompt for one item.
func ClassificationPrompt(gc GlobalContext, item RawLineItem, options string) (string, error) {
	gcJSON, err := json.MarshalIndent(gc, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "ClassificationPrompt: marshal global context")
	}
	itemJSON, err := json.MarshalIndent(item.view(), "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "ClassificationPrompt: marshal item")
	}

	var b strings.Builder
	err = classificationPrompt.Execute(&b, classificationInput{
		GlobalContext: string(gcJSON),
		Item:          string(itemJSON),
		Options:       options,
	})
	if err != nil {
		return "", eris.Wrap(err, "ClassificationPrompt: render template")
	}
	return b.String(), nil
}
