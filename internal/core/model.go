package core

import (
	"fmt"
	"sync"
)

type ModelType string

const (
	OnnxPipeline ModelType = "onnx_pipeline"
)

// Model is a loaded triage classifier. Predict receives a row whose columns
// are in schema order and returns the raw predicted class, which is usually
// an integer code or a string label.
type Model interface {
	Predict(row FeatureRow) (any, error)

	// Classes returns the class labels in the order used by probability output.
	Classes() []any

	Release()
}

// ProbabilisticModel is implemented by models that can report a probability
// per class, aligned with Classes().
type ProbabilisticModel interface {
	PredictProba(row FeatureRow) ([]float64, error)
}

// ScoredModel returns the prediction and the class probabilities from a
// single pass. Probabilities may be nil.
type ScoredModel interface {
	PredictScored(row FeatureRow) (any, []float64, error)
}

type ModelLoader func(modelDir string) (Model, error)

var (
	loadersMu    sync.RWMutex
	modelLoaders = map[ModelType]ModelLoader{
		OnnxPipeline: LoadOnnxPipeline,
	}
)

func RegisterModelLoader(modelType ModelType, loader ModelLoader) {
	loadersMu.Lock()
	defer loadersMu.Unlock()
	modelLoaders[modelType] = loader
}

func GetModelLoader(modelType ModelType) (ModelLoader, error) {
	loadersMu.RLock()
	defer loadersMu.RUnlock()
	loader, ok := modelLoaders[modelType]
	if !ok {
		return nil, fmt.Errorf("unsupported model type '%s'", modelType)
	}
	return loader, nil
}
