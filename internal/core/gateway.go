package core

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Gateway holds the process-wide model and the schema derived from it. It is
// built once at startup and is read-only afterwards, so it can be shared by
// concurrent requests. A gateway whose model failed to load is still usable:
// every prediction reports the load failure.
type Gateway struct {
	model   Model
	schema  *FeatureSchema
	loadErr error
}

func NewGateway(model Model, loadErr error) *Gateway {
	g := &Gateway{model: model, loadErr: loadErr}
	if model == nil {
		if g.loadErr == nil {
			g.loadErr = ErrModelNotLoaded
		}
		return g
	}
	if schema, ok := DiscoverSchema(model); ok {
		g.schema = schema
	}
	return g
}

// LoadGateway loads the model in modelDir with the loader registered for
// modelType. Load failures are logged and recorded on the gateway.
func LoadGateway(modelType ModelType, modelDir string) *Gateway {
	loader, err := GetModelLoader(modelType)
	if err != nil {
		slog.Error("could not load model", "model_type", modelType, "error", err)
		return NewGateway(nil, err)
	}

	model, err := loader(modelDir)
	if err != nil {
		slog.Error("could not load model", "model_dir", modelDir, "model_type", modelType, "error", err)
		return NewGateway(nil, err)
	}

	g := NewGateway(model, nil)
	slog.Info("model loaded", "model_dir", modelDir, "classes", ClassNames(model), "expected_cols_detected", g.schema != nil)
	if g.schema != nil {
		slog.Info("expected columns detected", "count", len(g.schema.Columns))
	}
	return g
}

func (g *Gateway) Model() Model {
	return g.model
}

func (g *Gateway) Schema() *FeatureSchema {
	return g.schema
}

func (g *Gateway) LoadError() error {
	return g.loadErr
}

func (g *Gateway) Classes() []string {
	if g.model == nil {
		return nil
	}
	return ClassNames(g.model)
}

// Ready reports ErrModelNotLoaded or ErrSchemaNotFound when predictions cannot
// be served.
func (g *Gateway) Ready() error {
	if g.model == nil {
		return fmt.Errorf("%w: %v", ErrModelNotLoaded, g.loadErr)
	}
	if g.schema == nil {
		return ErrSchemaNotFound
	}
	return nil
}

type Prediction struct {
	Inference

	// Row is the full feature row handed to the model.
	Row FeatureRow
}

// Predict runs the full gateway for one intake payload: row building,
// validation and inference. Panics raised by the model are recovered and
// reported as errors.
func (g *Gateway) Predict(payload map[string]any) (pred *Prediction, err error) {
	if err := g.Ready(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during prediction", "panic", r, "stack", string(debug.Stack()))
			pred, err = nil, fmt.Errorf("panic during prediction: %v", r)
		}
	}()

	row := BuildRow(g.schema, payload)

	if err := Validate(row); err != nil {
		return nil, err
	}

	inf, err := Infer(g.model, row)
	if err != nil {
		return nil, err
	}

	return &Prediction{Inference: *inf, Row: row}, nil
}

func (g *Gateway) Release() {
	if g.model != nil {
		g.model.Release()
	}
}
