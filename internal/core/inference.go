package core

import (
	"fmt"
	"log/slog"
	"strconv"
)

// IdToLabel maps the integer codes used at training time to triage labels.
var IdToLabel = map[int]string{
	0: "Emergent",
	1: "Semi-urgent",
	2: "Urgent",
}

type Inference struct {
	Label string
	Raw   any

	// Proba is nil when the model has no probability output or it failed.
	Proba map[string]float64

	InputUsed FeatureRow
}

func asInteger(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	}
	return 0, false
}

// DecodeLabel turns a raw model prediction into a human readable label.
func DecodeLabel(raw any) string {
	if s, ok := raw.(string); ok {
		return s
	}
	if i, ok := asInteger(raw); ok {
		if label, ok := IdToLabel[int(i)]; ok {
			return label
		}
		return strconv.FormatInt(i, 10)
	}
	return fmt.Sprint(raw)
}

// CodedPrediction is the prediction as reported to clients: an integer for
// integral predictions, a string otherwise.
func CodedPrediction(raw any) any {
	if i, ok := asInteger(raw); ok {
		return i
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}

func ClassNames(model Model) []string {
	classes := model.Classes()
	names := make([]string, len(classes))
	for i, c := range classes {
		names[i] = stringify(c)
	}
	return names
}

func predictProba(model Model, row FeatureRow) []float64 {
	pm, ok := model.(ProbabilisticModel)
	if !ok {
		return nil
	}

	proba, err := pm.PredictProba(row)
	if err != nil {
		slog.Warn("probability prediction failed", "error", err)
		return nil
	}
	return proba
}

func probabilityMap(model Model, proba []float64) map[string]float64 {
	if proba == nil {
		return nil
	}

	classes := ClassNames(model)
	if len(proba) != len(classes) {
		slog.Warn("probability output does not match class list", "probabilities", len(proba), "classes", len(classes))
		return nil
	}

	out := make(map[string]float64, len(classes))
	for i, c := range classes {
		out[c] = proba[i]
	}
	return out
}

// Infer runs the model on a single row. Probability output is best effort and
// never fails the call.
func Infer(model Model, row FeatureRow) (*Inference, error) {
	var (
		raw   any
		proba []float64
		err   error
	)
	if sm, ok := model.(ScoredModel); ok {
		raw, proba, err = sm.PredictScored(row)
	} else if raw, err = model.Predict(row); err == nil {
		proba = predictProba(model, row)
	}
	if err != nil {
		return nil, fmt.Errorf("error running prediction: %w", err)
	}

	return &Inference{
		Label:     DecodeLabel(raw),
		Raw:       raw,
		Proba:     probabilityMap(model, proba),
		InputUsed: row.NonEmpty(),
	}, nil
}
