package core

import (
	"errors"
	"sync/atomic"
)

// fakeModel is a pipeline that predicts a fixed class and records the rows
// it sees.
type fakeModel struct {
	columns []string
	classes []any
	pred    any
	proba   []float64

	probaErr   error
	predictErr error
	panicMsg   string

	calls atomic.Int64
	last  atomic.Pointer[FeatureRow]
}

func newFakeModel(columns ...string) *fakeModel {
	return &fakeModel{
		columns: columns,
		classes: []any{int64(0), int64(1), int64(2)},
		pred:    int64(1),
		proba:   []float64{0.2, 0.7, 0.1},
	}
}

func (m *fakeModel) Predict(row FeatureRow) (any, error) {
	m.calls.Add(1)
	m.last.Store(&row)
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.predictErr != nil {
		return nil, m.predictErr
	}
	return m.pred, nil
}

func (m *fakeModel) PredictProba(row FeatureRow) ([]float64, error) {
	if m.probaErr != nil {
		return nil, m.probaErr
	}
	return m.proba, nil
}

func (m *fakeModel) Classes() []any {
	return m.classes
}

func (m *fakeModel) Release() {}

func (m *fakeModel) NamedStep(name string) (any, bool) {
	if name != PreprocessStep || m.columns == nil {
		return nil, false
	}
	return &Preprocessor{Columns: m.columns}, true
}

// labelOnlyModel has no probability output.
type labelOnlyModel struct {
	pred any
}

func (m *labelOnlyModel) Predict(FeatureRow) (any, error) { return m.pred, nil }

func (m *labelOnlyModel) Classes() []any { return []any{"Emergent", "Urgent"} }

func (m *labelOnlyModel) Release() {}

func (m *labelOnlyModel) FeatureNamesIn() []string { return []string{"patient_age"} }

var errBoom = errors.New("boom")

var triageColumns = []string{
	"patient_age",
	"patient_sexe",
	"heart_rate_signal",
	"temperature_signal",
	"respiratory_rate_signal",
	"blood_pressure_systolic_signal",
	"blood_pressure_diastolic_signal",
	"pulse_oximetry_signal",
	"patient_pain_category",
	"is_arrival_ambulance",
	"is_patient_seen_before_72h",
	"patient_alchol_level",
	"is_patient_suffer_diabet_L0",
	"is_patient_suffer_congestive_heart_failure",
	"is_patient_suffer_renal_insufficiency",
	"is_patient_suffer_obesity",
	"year_visit",
}

func triageSchema() *FeatureSchema {
	return &FeatureSchema{Columns: triageColumns}
}

// scoredModel returns label and probabilities together and counts every
// entry point separately.
type scoredModel struct {
	*fakeModel
	scored     atomic.Int64
	probaCalls atomic.Int64
}

func (m *scoredModel) PredictProba(row FeatureRow) ([]float64, error) {
	m.probaCalls.Add(1)
	return m.fakeModel.PredictProba(row)
}

func (m *scoredModel) PredictScored(row FeatureRow) (any, []float64, error) {
	m.scored.Add(1)
	if m.predictErr != nil {
		return nil, nil, m.predictErr
	}
	return m.pred, m.fakeModel.proba, nil
}
