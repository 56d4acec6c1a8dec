//go:build !windows

package core

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"
)

// The fixtures encode the test manifest to [age, temperature, F, M, pain] and
// score it with softmax(x·W), where only age feeds class 2 and F feeds class 1.
const (
	onnxPipelineDir  = "testdata/onnx_pipeline"
	onnxProbaOnlyDir = "testdata/onnx_proba_only"
)

var (
	onnxInitOnce sync.Once
	onnxInitErr  error
)

func requireOnnxRuntime(t *testing.T) {
	t.Helper()
	dylib := os.Getenv("ONNX_RUNTIME_DYLIB_PATH")
	if dylib == "" {
		t.Skip("ONNX_RUNTIME_DYLIB_PATH not set")
	}
	onnxInitOnce.Do(func() {
		ort.SetSharedLibraryPath(dylib)
		onnxInitErr = ort.InitializeEnvironment()
	})
	require.NoError(t, onnxInitErr, "could not init ONNX Runtime")
}

func loadOnnxModel(t *testing.T, dir string) *OnnxModel {
	model, err := LoadOnnxPipeline(dir)
	require.NoError(t, err)
	t.Cleanup(model.Release)
	return model.(*OnnxModel)
}

func softmax(logits ...float64) []float64 {
	sum := 0.0
	out := make([]float64, len(logits))
	for i, l := range logits {
		out[i] = math.Exp(l)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func onnxRow(m *OnnxModel, age float64, sex, pain string) FeatureRow {
	row := NewFeatureRow(m.preprocess.FeatureNamesIn())
	row.Set("patient_age", age)
	row.Set("patient_sexe", sex)
	row.Set("patient_pain_category", pain)
	return row
}

func TestArgmaxClass(t *testing.T) {
	classes := []any{int64(0), int64(1), int64(2)}

	class, err := argmaxClass(classes, []float32{0.1, 0.7, 0.2})
	require.NoError(t, err)
	assert.Equal(t, int64(1), class)

	class, err = argmaxClass(classes, []float32{0.4, 0.4, 0.2})
	require.NoError(t, err)
	assert.Equal(t, int64(0), class)

	_, err = argmaxClass(classes, nil)
	assert.Error(t, err)

	_, err = argmaxClass(classes, []float32{1})
	assert.Error(t, err)
}

func TestOnnxPipelineLabelAndProba(t *testing.T) {
	requireOnnxRuntime(t)
	m := loadOnnxModel(t, onnxPipelineDir)

	assert.Equal(t, "label", m.labelOutput)
	assert.Equal(t, "probabilities", m.probaOutput)

	// age 70 scales to 2, which goes to class 2 only.
	row := onnxRow(m, 70, "M", "Severe")

	pred, err := m.Predict(row)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pred)

	proba, err := m.PredictProba(row)
	require.NoError(t, err)
	assert.InDeltaSlice(t, softmax(0, 0, 2), proba, 1e-5)

	scoredPred, scoredProba, err := m.PredictScored(row)
	require.NoError(t, err)
	assert.Equal(t, pred, scoredPred)
	assert.InDeltaSlice(t, proba, scoredProba, 1e-6)
}

func TestOnnxPipelineThroughGateway(t *testing.T) {
	requireOnnxRuntime(t)
	g := NewGateway(loadOnnxModel(t, onnxPipelineDir), nil)
	require.NoError(t, g.Ready())

	pred, err := g.Predict(map[string]any{"age": 30, "sex": "F", "temperature": 98.6})
	require.NoError(t, err)

	assert.Equal(t, "Semi-urgent", pred.Label)
	assert.Equal(t, int64(1), pred.Raw)

	expected := softmax(0, 1, -2)
	require.Len(t, pred.Proba, 3)
	for i, class := range []string{"0", "1", "2"} {
		assert.InDelta(t, expected[i], pred.Proba[class], 1e-5, class)
	}
}

func TestOnnxPipelineArgmaxWithoutLabel(t *testing.T) {
	requireOnnxRuntime(t)
	m := loadOnnxModel(t, onnxProbaOnlyDir)

	assert.Empty(t, m.labelOutput)
	assert.Equal(t, "probabilities", m.probaOutput)

	pred, err := m.Predict(onnxRow(m, 30, "F", "Mild"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pred)

	pred, proba, err := m.PredictScored(onnxRow(m, 70, "M", "Unknown"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), pred)
	assert.InDeltaSlice(t, softmax(0, 0, 2), proba, 1e-5)
}

func TestLoadOnnxPipelineErrors(t *testing.T) {
	requireOnnxRuntime(t)

	t.Run("width mismatch", func(t *testing.T) {
		dir := t.TempDir()
		manifest := `{
			"classes": [0, 1, 2],
			"named_steps": {"preprocess": {"transformers": [
				{"name": "num", "kind": "numeric", "columns": ["patient_age", "temperature_signal"]}
			]}}
		}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, PipelineManifestFile), []byte(manifest), 0644))

		model, err := os.ReadFile(filepath.Join(onnxPipelineDir, OnnxModelFile))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, OnnxModelFile), model, 0644))

		_, err = LoadOnnxPipeline(dir)
		assert.ErrorContains(t, err, "does not match")
	})

	t.Run("missing graph", func(t *testing.T) {
		dir := t.TempDir()
		manifest, err := os.ReadFile(filepath.Join(onnxPipelineDir, PipelineManifestFile))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, PipelineManifestFile), manifest, 0644))

		_, err = LoadOnnxPipeline(dir)
		assert.Error(t, err)
	})
}
