package claims

import (
	"bytes"
	_ "embed"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var defaultCategoriesYAML []byte

// CategoryTable is the immutable lookup from ClassificationKey to CategoryRecord.
// It is safe for concurrent use without locking.
type CategoryTable struct {
	records    map[ClassificationKey]CategoryRecord
	order      []ClassificationKey
	defaultKey ClassificationKey
	options    string
}

type categoryFile struct {
	DefaultKey ClassificationKey `yaml:"default_key"`
	Categories []CategoryRecord  `yaml:"categories"`
}

// LoadDefaultCategories parses the category table shipped with the binary.
func LoadDefaultCategories() (*CategoryTable, error) {
	return LoadCategories(bytes.NewReader(defaultCategoriesYAML))
}

// LoadCategories parses a YAML category table. Keys must be unique and the
// default key must be one of the listed categories.
func LoadCategories(r io.Reader) (*CategoryTable, error) {
	var f categoryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, eris.Wrap(err, "LoadCategories: decode yaml")
	}
	return NewCategoryTable(f.DefaultKey, f.Categories)
}

// NewCategoryTable builds a table from records in listing order.
func NewCategoryTable(defaultKey ClassificationKey, records []CategoryRecord) (*CategoryTable, error) {
	if len(records) == 0 {
		return nil, eris.New("NewCategoryTable: no categories")
	}
	t := &CategoryTable{
		records:    make(map[ClassificationKey]CategoryRecord, len(records)),
		order:      make([]ClassificationKey, 0, len(records)),
		defaultKey: defaultKey,
	}
	for i, rec := range records {
		rec.Key = ClassificationKey(strings.TrimSpace(string(rec.Key)))
		if rec.Key == "" {
			return nil, eris.Errorf("NewCategoryTable: category %d has no key", i)
		}
		if rec.CategoryClaim == "" {
			return nil, eris.Errorf("NewCategoryTable: category %q has no category_claim", rec.Key)
		}
		if _, dup := t.records[rec.Key]; dup {
			return nil, eris.Errorf("NewCategoryTable: duplicate key %q", rec.Key)
		}
		t.records[rec.Key] = rec
		t.order = append(t.order, rec.Key)
	}
	if _, ok := t.records[defaultKey]; !ok {
		return nil, eris.Errorf("NewCategoryTable: default key %q is not a listed category", defaultKey)
	}
	t.options = buildOptions(t)
	return t, nil
}

func buildOptions(t *CategoryTable) string {
	var b strings.Builder
	for _, key := range t.order {
		rec := t.records[key]
		b.WriteString("- ")
		b.WriteString(string(key))
		b.WriteString(": ")
		b.WriteString(rec.CategoryClaim)
		b.WriteString(" / ")
		b.WriteString(rec.SubCategory)
		if rec.CategoryDescription != "" {
			b.WriteString(" (")
			b.WriteString(rec.CategoryDescription)
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Lookup returns the record for key.
func (t *CategoryTable) Lookup(key ClassificationKey) (CategoryRecord, bool) {
	rec, ok := t.records[key]
	return rec, ok
}

// Resolve returns the record for key, or the default record when key is unknown.
func (t *CategoryTable) Resolve(key ClassificationKey) (CategoryRecord, bool) {
	if rec, ok := t.Lookup(key); ok {
		return rec, true
	}
	return t.Default(), false
}

// Default returns the fallback record.
func (t *CategoryTable) Default() CategoryRecord {
	return t.records[t.defaultKey]
}

// Len returns the number of categories, including the default.
func (t *CategoryTable) Len() int {
	return len(t.order)
}

// Records returns every record in listing order.
func (t *CategoryTable) Records() []CategoryRecord {
	out := make([]CategoryRecord, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.records[key])
	}
	return out
}

// Options returns the human-readable listing of valid keys used in classification prompts.
func (t *CategoryTable) Options() string {
	return t.options
}
