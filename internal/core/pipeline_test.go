package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `{
	"classes": [0, 1, 2],
	"named_steps": {
		"preprocess": {
			"feature_names_in": ["patient_age", "temperature_signal", "patient_sexe", "patient_pain_category"],
			"transformers": [
				{
					"name": "num",
					"kind": "numeric",
					"columns": ["patient_age", "temperature_signal"],
					"fill": [50, 98.6],
					"mean": [50, 98.6],
					"scale": [10, 1]
				},
				{
					"name": "sex",
					"kind": "onehot",
					"columns": ["patient_sexe"],
					"categories": [["F", "M"]]
				},
				{
					"name": "pain",
					"kind": "ordinal",
					"columns": ["patient_pain_category"],
					"categories": [["Unknown", "Mild", "Severe"]],
					"unknown_value": -1
				}
			]
		}
	}
}`

func TestParsePipelineManifest(t *testing.T) {
	m, err := ParsePipelineManifest([]byte(testManifest))
	require.NoError(t, err)

	assert.Equal(t, []any{int64(0), int64(1), int64(2)}, m.Classes())
	require.NotNil(t, m.Preprocessor())
	assert.Equal(t, 5, m.Preprocessor().Width())

	schema, ok := DiscoverSchema(m)
	require.True(t, ok)
	assert.Equal(t, []string{"patient_age", "temperature_signal", "patient_sexe", "patient_pain_category"}, schema.Columns)
	assert.Equal(t, map[string][]string{
		"patient_sexe":          {"F", "M"},
		"patient_pain_category": {"Unknown", "Mild", "Severe"},
	}, schema.Categories)
}

func TestParsePipelineManifestErrors(t *testing.T) {
	_, err := ParsePipelineManifest([]byte(`{`))
	assert.Error(t, err)

	_, err = ParsePipelineManifest([]byte(`{"classes": []}`))
	assert.Error(t, err)

	_, err = ParsePipelineManifest([]byte(`{"classes": [0], "named_steps": {"preprocess": {"transformers": [{"name": "x", "kind": "pca", "columns": ["a"]}]}}}`))
	assert.ErrorContains(t, err, "unsupported kind")

	_, err = ParsePipelineManifest([]byte(`{"classes": [0], "named_steps": {"preprocess": {"transformers": [{"name": "x", "kind": "onehot", "columns": ["a", "b"], "categories": [["x"]]}]}}}`))
	assert.Error(t, err)
}

func TestPreprocessorTransform(t *testing.T) {
	m, err := ParsePipelineManifest([]byte(testManifest))
	require.NoError(t, err)
	p := m.Preprocessor()

	row := NewFeatureRow(p.FeatureNamesIn())
	row.Set("patient_age", 70.0)
	row.Set("patient_sexe", "M")
	row.Set("patient_pain_category", "Severe")

	out, err := p.Transform(row)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{2, 0, 0, 1, 2}, out, 1e-5)

	row.Set("patient_sexe", "X")
	row.Set("patient_pain_category", "Extreme")
	out, err = p.Transform(row)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{2, 0, 0, 0, -1}, out, 1e-5)

	row.Set("patient_age", "old")
	_, err = p.Transform(row)
	assert.Error(t, err)
}

func TestLoadPipelineManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, PipelineManifestFile)
	require.NoError(t, os.WriteFile(path, []byte(testManifest), 0644))

	m, err := LoadPipelineManifest(path)
	require.NoError(t, err)
	assert.Len(t, m.Classes(), 3)

	_, err = LoadPipelineManifest(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestDiscoverSchemaFallsBackToModelColumns(t *testing.T) {
	m, err := ParsePipelineManifest([]byte(`{"feature_names_in": ["a", "b"], "classes": ["x"]}`))
	require.NoError(t, err)

	schema, ok := DiscoverSchema(m)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, schema.Columns)
	assert.Nil(t, schema.Categories)

	_, ok = DiscoverSchema(struct{}{})
	assert.False(t, ok)
}
