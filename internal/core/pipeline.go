package core

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	PipelineManifestFile = "pipeline.json"
	OnnxModelFile        = "model.onnx"
)

type TransformerKind string

const (
	NumericTransformer TransformerKind = "numeric"
	OneHotTransformer  TransformerKind = "onehot"
	OrdinalTransformer TransformerKind = "ordinal"
)

// Transformer is one fitted column transformer of the preprocessing step.
// Fill holds the imputation value per column, Mean and Scale the parameters
// of an optional standard scaler.
type Transformer struct {
	Name         string          `json:"name"`
	Kind         TransformerKind `json:"kind"`
	Columns      []string        `json:"columns"`
	CategoryList [][]any         `json:"categories,omitempty"`
	Fill         []any           `json:"fill,omitempty"`
	Mean         []float64       `json:"mean,omitempty"`
	Scale        []float64       `json:"scale,omitempty"`
	UnknownValue *float64        `json:"unknown_value,omitempty"`

	index []map[string]int
}

func (t *Transformer) EncodedColumns() []string {
	return t.Columns
}

func (t *Transformer) Categories() [][]any {
	return t.CategoryList
}

func (t *Transformer) Width() int {
	if t.Kind != OneHotTransformer {
		return len(t.Columns)
	}
	width := 0
	for _, cats := range t.CategoryList {
		width += len(cats)
	}
	return width
}

func (t *Transformer) init() error {
	switch t.Kind {
	case NumericTransformer:
		if len(t.Mean) > 0 && (len(t.Mean) != len(t.Columns) || len(t.Scale) != len(t.Columns)) {
			return fmt.Errorf("transformer %s: mean/scale must have one entry per column", t.Name)
		}
	case OneHotTransformer, OrdinalTransformer:
		if len(t.CategoryList) != len(t.Columns) {
			return fmt.Errorf("transformer %s: expected %d category lists, got %d", t.Name, len(t.Columns), len(t.CategoryList))
		}
		t.index = make([]map[string]int, len(t.CategoryList))
		for i, cats := range t.CategoryList {
			t.index[i] = make(map[string]int, len(cats))
			for j, c := range cats {
				t.index[i][stringify(c)] = j
			}
		}
	default:
		return fmt.Errorf("transformer %s: unsupported kind '%s'", t.Name, t.Kind)
	}
	if len(t.Fill) > 0 && len(t.Fill) != len(t.Columns) {
		return fmt.Errorf("transformer %s: fill must have one entry per column", t.Name)
	}
	return nil
}

func (t *Transformer) value(row FeatureRow, i int) any {
	v := row.Get(t.Columns[i])
	if v == nil && len(t.Fill) > 0 {
		return t.Fill[i]
	}
	return v
}

func (t *Transformer) encode(row FeatureRow, out []float32) ([]float32, error) {
	for i, col := range t.Columns {
		v := t.value(row, i)

		switch t.Kind {
		case NumericTransformer:
			f, ok := ToFloat(v)
			if !ok {
				return nil, fmt.Errorf("column %s: expected a number, got %v", col, v)
			}
			if len(t.Mean) > 0 && t.Scale[i] != 0 {
				f = (f - t.Mean[i]) / t.Scale[i]
			}
			out = append(out, float32(f))

		case OneHotTransformer:
			pos := -1
			if v != nil {
				if idx, ok := t.index[i][stringify(v)]; ok {
					pos = idx
				}
			}
			for j := range t.CategoryList[i] {
				if j == pos {
					out = append(out, 1)
				} else {
					out = append(out, 0)
				}
			}

		case OrdinalTransformer:
			idx, ok := -1, false
			if v != nil {
				idx, ok = t.index[i][stringify(v)]
			}
			switch {
			case ok:
				out = append(out, float32(idx))
			case t.UnknownValue != nil:
				out = append(out, float32(*t.UnknownValue))
			default:
				return nil, fmt.Errorf("column %s: unknown category %v", col, v)
			}
		}
	}
	return out, nil
}

// Preprocessor is the fitted preprocessing step of a pipeline. Its output is
// the concatenation of each transformer's output, in declaration order.
type Preprocessor struct {
	Columns []string       `json:"feature_names_in"`
	Steps   []*Transformer `json:"transformers"`
}

func (p *Preprocessor) FeatureNamesIn() []string {
	return p.Columns
}

func (p *Preprocessor) Transformers() []any {
	out := make([]any, len(p.Steps))
	for i, t := range p.Steps {
		out[i] = t
	}
	return out
}

func (p *Preprocessor) Width() int {
	width := 0
	for _, t := range p.Steps {
		width += t.Width()
	}
	return width
}

func (p *Preprocessor) Transform(row FeatureRow) ([]float32, error) {
	out := make([]float32, 0, p.Width())
	for _, t := range p.Steps {
		var err error
		if out, err = t.encode(row, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// PipelineManifest describes a trained pipeline exported next to its ONNX
// classifier: the preprocessing step, the input columns and the class order.
type PipelineManifest struct {
	FeatureNames []string                   `json:"feature_names_in,omitempty"`
	ClassLabels  []any                      `json:"classes"`
	RawSteps     map[string]json.RawMessage `json:"named_steps,omitempty"`

	steps map[string]*Preprocessor
}

func (m *PipelineManifest) FeatureNamesIn() []string {
	return m.FeatureNames
}

func (m *PipelineManifest) NamedStep(name string) (any, bool) {
	step, ok := m.steps[name]
	return step, ok
}

func (m *PipelineManifest) Preprocessor() *Preprocessor {
	return m.steps[PreprocessStep]
}

func (m *PipelineManifest) Classes() []any {
	return m.ClassLabels
}

func ParsePipelineManifest(data []byte) (*PipelineManifest, error) {
	var m PipelineManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid pipeline manifest: %w", err)
	}

	if len(m.ClassLabels) == 0 {
		return nil, fmt.Errorf("pipeline manifest does not declare any classes")
	}
	for i, c := range m.ClassLabels {
		if f, ok := c.(float64); ok && f == float64(int64(f)) {
			m.ClassLabels[i] = int64(f)
		}
	}

	m.steps = make(map[string]*Preprocessor)
	if raw, ok := m.RawSteps[PreprocessStep]; ok {
		var p Preprocessor
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("invalid %s step: %w", PreprocessStep, err)
		}
		for _, t := range p.Steps {
			if err := t.init(); err != nil {
				return nil, err
			}
		}
		m.steps[PreprocessStep] = &p
	}

	return &m, nil
}

func LoadPipelineManifest(path string) (*PipelineManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading pipeline manifest: %w", err)
	}
	return ParsePipelineManifest(data)
}
