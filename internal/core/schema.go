package core

import (
	"fmt"
	"log/slog"
)

// PreprocessStep is the name of the pipeline step whose input columns are the
// raw columns the model was trained on.
const PreprocessStep = "preprocess"

// FeatureNamer is implemented by pipeline stages that remember the column
// names they were fitted on.
type FeatureNamer interface {
	FeatureNamesIn() []string
}

// Pipeline is implemented by models composed of named steps.
type Pipeline interface {
	NamedStep(name string) (any, bool)
}

// TransformerSet is implemented by preprocessing stages built from several
// column transformers.
type TransformerSet interface {
	Transformers() []any
}

// CategoricalEncoder is implemented by transformers that learned a category
// domain per input column. Categories()[i] belongs to EncodedColumns()[i].
type CategoricalEncoder interface {
	EncodedColumns() []string
	Categories() [][]any
}

// FeatureSchema is the ordered list of raw input columns a model expects,
// along with the categorical domains learned during training.
type FeatureSchema struct {
	Columns    []string
	Categories map[string][]string
}

func (s *FeatureSchema) Contains(column string) bool {
	for _, c := range s.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// DiscoverSchema inspects a loaded model to find the raw input columns it
// expects. The column list of the preprocessing step is preferred, then the
// column list of the model itself. The second result is false when neither is
// available.
func DiscoverSchema(model any) (*FeatureSchema, bool) {
	var columns []string
	var preprocess any

	if p, ok := model.(Pipeline); ok {
		if step, ok := p.NamedStep(PreprocessStep); ok {
			preprocess = step
			if namer, ok := step.(FeatureNamer); ok {
				columns = namer.FeatureNamesIn()
			}
		}
	}

	if len(columns) == 0 {
		if namer, ok := model.(FeatureNamer); ok {
			columns = namer.FeatureNamesIn()
		}
	}

	if len(columns) == 0 {
		return nil, false
	}

	schema := &FeatureSchema{
		Columns:    append([]string(nil), columns...),
		Categories: discoverCategories(preprocess),
	}
	return schema, true
}

func discoverCategories(preprocess any) map[string][]string {
	set, ok := preprocess.(TransformerSet)
	if !ok {
		return nil
	}

	categories := make(map[string][]string)
	for _, t := range set.Transformers() {
		enc, ok := t.(CategoricalEncoder)
		if !ok {
			continue
		}
		cols, cats := enc.EncodedColumns(), enc.Categories()
		if len(cats) == 0 {
			continue
		}
		if len(cols) != len(cats) {
			slog.Warn("categorical encoder column/category count mismatch", "columns", len(cols), "categories", len(cats))
		}
		for i := 0; i < len(cols) && i < len(cats); i++ {
			values := make([]string, len(cats[i]))
			for j, v := range cats[i] {
				values[j] = stringify(v)
			}
			categories[cols[i]] = values
		}
	}

	if len(categories) == 0 {
		return nil
	}
	return categories
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
	}
	return fmt.Sprint(v)
}
