//go:build !windows

package core

import (
	"fmt"
	"log/slog"
	"path/filepath"

	ort "github.com/yalue/onnxruntime_go"
)

// OnnxModel is a trained pipeline whose preprocessing step is described by a
// manifest and whose classifier is an ONNX graph over the encoded features.
// The session is safe for concurrent use, tensors are allocated per call.
type OnnxModel struct {
	session    *ort.DynamicAdvancedSession
	manifest   *PipelineManifest
	preprocess *Preprocessor

	inputName   string
	labelOutput string
	probaOutput string
}

func LoadOnnxPipeline(modelDir string) (Model, error) {
	manifest, err := LoadPipelineManifest(filepath.Join(modelDir, PipelineManifestFile))
	if err != nil {
		return nil, err
	}

	preprocess := manifest.Preprocessor()
	if preprocess == nil {
		return nil, fmt.Errorf("pipeline manifest has no '%s' step", PreprocessStep)
	}

	modelPath := filepath.Join(modelDir, OnnxModelFile)
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("error reading onnx model info: %w", err)
	}

	if len(inputs) != 1 {
		return nil, fmt.Errorf("expected onnx model with a single input, found %d", len(inputs))
	}
	input := inputs[0]
	if input.DataType != ort.TensorElementDataTypeFloat {
		return nil, fmt.Errorf("onnx input %s must be float32, got %v", input.Name, input.DataType)
	}
	if dims := input.Dimensions; len(dims) == 2 && dims[1] > 0 && int(dims[1]) != preprocess.Width() {
		return nil, fmt.Errorf("onnx input width %d does not match preprocessing output width %d", dims[1], preprocess.Width())
	}

	m := &OnnxModel{
		manifest:   manifest,
		preprocess: preprocess,
		inputName:  input.Name,
	}

	for _, out := range outputs {
		if out.OrtValueType != ort.ONNXTypeTensor {
			continue
		}
		switch {
		case out.DataType == ort.TensorElementDataTypeInt64 && m.labelOutput == "":
			m.labelOutput = out.Name
		case out.DataType == ort.TensorElementDataTypeFloat && m.probaOutput == "":
			m.probaOutput = out.Name
		}
	}
	if m.labelOutput == "" && m.probaOutput == "" {
		return nil, fmt.Errorf("onnx model has neither an int64 label output nor a float probability output")
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{m.inputName}, m.outputNames(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create onnx session: %w", err)
	}
	m.session = session

	return m, nil
}

func (m *OnnxModel) outputNames() []string {
	var names []string
	if m.labelOutput != "" {
		names = append(names, m.labelOutput)
	}
	if m.probaOutput != "" {
		names = append(names, m.probaOutput)
	}
	return names
}

type onnxResult struct {
	label    int64
	hasLabel bool
	proba    []float32
}

func (m *OnnxModel) run(row FeatureRow) (*onnxResult, error) {
	features, err := m.preprocess.Transform(row)
	if err != nil {
		return nil, fmt.Errorf("error encoding features: %w", err)
	}

	in, err := ort.NewTensor(ort.NewShape(1, int64(len(features))), features)
	if err != nil {
		return nil, err
	}
	defer in.Destroy()

	var outputs []ort.Value

	var labelT *ort.Tensor[int64]
	if m.labelOutput != "" {
		if labelT, err = ort.NewEmptyTensor[int64](ort.NewShape(1)); err != nil {
			return nil, err
		}
		defer labelT.Destroy()
		outputs = append(outputs, labelT)
	}

	var probaT *ort.Tensor[float32]
	if m.probaOutput != "" {
		if probaT, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(m.manifest.Classes())))); err != nil {
			return nil, err
		}
		defer probaT.Destroy()
		outputs = append(outputs, probaT)
	}

	if err := m.session.Run([]ort.Value{in}, outputs); err != nil {
		return nil, fmt.Errorf("session run error: %w", err)
	}

	res := &onnxResult{}
	if labelT != nil {
		res.label, res.hasLabel = labelT.GetData()[0], true
	}
	if probaT != nil {
		res.proba = append([]float32(nil), probaT.GetData()...)
	}
	return res, nil
}

func (r *onnxResult) probabilities() []float64 {
	if r.proba == nil {
		return nil
	}
	out := make([]float64, len(r.proba))
	for i, p := range r.proba {
		out[i] = float64(p)
	}
	return out
}

// argmaxClass picks the class with the highest probability. It is used when
// the graph has no label output.
func argmaxClass(classes []any, proba []float32) (any, error) {
	if len(proba) == 0 {
		return nil, fmt.Errorf("model produced neither a label nor probabilities")
	}
	if len(proba) != len(classes) {
		return nil, fmt.Errorf("probability output has %d entries for %d classes", len(proba), len(classes))
	}
	best := 0
	for i, p := range proba {
		if p > proba[best] {
			best = i
		}
	}
	return classes[best], nil
}

func (m *OnnxModel) label(res *onnxResult) (any, error) {
	if res.hasLabel {
		return res.label, nil
	}
	return argmaxClass(m.manifest.Classes(), res.proba)
}

func (m *OnnxModel) Predict(row FeatureRow) (any, error) {
	res, err := m.run(row)
	if err != nil {
		return nil, err
	}
	return m.label(res)
}

func (m *OnnxModel) PredictProba(row FeatureRow) ([]float64, error) {
	if m.probaOutput == "" {
		return nil, fmt.Errorf("model has no probability output")
	}
	res, err := m.run(row)
	if err != nil {
		return nil, err
	}
	return res.probabilities(), nil
}

// PredictScored runs the session once for both the label and the
// probabilities.
func (m *OnnxModel) PredictScored(row FeatureRow) (any, []float64, error) {
	res, err := m.run(row)
	if err != nil {
		return nil, nil, err
	}
	label, err := m.label(res)
	if err != nil {
		return nil, nil, err
	}
	return label, res.probabilities(), nil
}

func (m *OnnxModel) Classes() []any {
	return m.manifest.Classes()
}

func (m *OnnxModel) NamedStep(name string) (any, bool) {
	return m.manifest.NamedStep(name)
}

func (m *OnnxModel) FeatureNamesIn() []string {
	return m.manifest.FeatureNamesIn()
}

func (m *OnnxModel) Release() {
	if m.session != nil {
		if err := m.session.Destroy(); err != nil {
			slog.Error("error destroying onnx session", "error", err)
		}
	}
}
