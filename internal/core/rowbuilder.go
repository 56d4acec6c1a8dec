package core

import "strings"

const (
	ComorbidityPrefix = "is_patient_suffer_"

	systolicColumn    = "blood_pressure_systolic_signal"
	diastolicColumn   = "blood_pressure_diastolic_signal"
	TemperatureColumn = "temperature_signal"

	bloodPressureField = "bloodPressure"
)

type columnDefault struct {
	match func(column string) bool
	value string
}

type fieldAlias struct {
	field  string
	column string
	coerce func(any) any
}

func withPrefix(prefix string) func(string) bool {
	return func(column string) bool {
		return strings.HasPrefix(column, prefix)
	}
}

func oneOf(columns ...string) func(string) bool {
	set := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		set[c] = struct{}{}
	}
	return func(column string) bool {
		_, ok := set[column]
		return ok
	}
}

// Yes/No flags default to "No". The export path applies the same table.
var flagDefaults = []columnDefault{
	{match: withPrefix(ComorbidityPrefix), value: "No"},
	{match: oneOf("is_arrival_ambulance", "is_patient_seen_before_72h", "patient_alchol_level"), value: "No"},
}

var categoryDefaults = []columnDefault{
	{match: oneOf("patient_pain_category"), value: "Unknown"},
}

var fieldAliases = []fieldAlias{
	{field: "age", column: "patient_age", coerce: FloatOrNil},
	{field: "sex", column: "patient_sexe", coerce: verbatim},
	{field: "heartRate", column: "heart_rate_signal", coerce: FloatOrNil},
	{field: "temperature", column: TemperatureColumn, coerce: NumberOrNil},
	{field: "respiratoryRate", column: "respiratory_rate_signal", coerce: FloatOrNil},
	{field: "systolicBP", column: systolicColumn, coerce: FloatOrNil},
	{field: "diastolicBP", column: diastolicColumn, coerce: FloatOrNil},
}

var comorbidityAliases = []fieldAlias{
	{field: "diabetes", column: "is_patient_suffer_diabet_L0", coerce: yesNo},
	{field: "heartFailure", column: "is_patient_suffer_congestive_heart_failure", coerce: yesNo},
	{field: "renalInsufficiency", column: "is_patient_suffer_renal_insufficiency", coerce: yesNo},
}

var numericColumns = []string{
	"heart_rate_signal",
	TemperatureColumn,
	"respiratory_rate_signal",
	systolicColumn,
	diastolicColumn,
	"pulse_oximetry_signal",
	"patient_age",
	"ambulance_time",
	"year_visit",
}

// FlagDefault reports the Yes/No default used for a column, if it has one.
func FlagDefault(column string) (string, bool) {
	for _, d := range flagDefaults {
		if d.match(column) {
			return d.value, true
		}
	}
	return "", false
}

func applyDefaults(row FeatureRow, defaults []columnDefault) {
	for _, c := range row.Columns() {
		if row.Get(c) != nil {
			continue
		}
		for _, d := range defaults {
			if d.match(c) {
				row.Set(c, d.value)
				break
			}
		}
	}
}

func applyAliases(row FeatureRow, payload map[string]any, aliases []fieldAlias) {
	for _, a := range aliases {
		v, ok := payload[a.field]
		if !ok {
			continue
		}
		row.Set(a.column, a.coerce(v))
	}
}

// BuildRow converts a free-form intake payload into a feature row whose
// columns are exactly the schema columns, in schema order.
func BuildRow(schema *FeatureSchema, payload map[string]any) FeatureRow {
	row := NewFeatureRow(schema.Columns)

	applyDefaults(row, flagDefaults)
	applyDefaults(row, categoryDefaults)

	for _, c := range row.Columns() {
		if v, ok := payload[c]; ok {
			row.Set(c, v)
		}
	}

	applyAliases(row, payload, fieldAliases)

	// Explicit systolic/diastolic fields take precedence over the combined string.
	if bp := payload[bloodPressureField]; isTruthyValue(bp) {
		sys, dia := ParseBloodPressure(bp)
		if row.Has(systolicColumn) && isEmpty(row.Get(systolicColumn)) {
			row.Set(systolicColumn, sys)
		}
		if row.Has(diastolicColumn) && isEmpty(row.Get(diastolicColumn)) {
			row.Set(diastolicColumn, dia)
		}
	}

	applyAliases(row, payload, comorbidityAliases)

	coerceNumeric(row)

	return row
}

// coerceNumeric forces the known physiological and temporal signals to
// float-or-nil, discarding stray non-numeric input. Temperature keeps ±Inf
// so that Validate rejects it.
func coerceNumeric(row FeatureRow) {
	for _, c := range numericColumns {
		if !row.Has(c) {
			continue
		}
		if c == TemperatureColumn {
			row.Set(c, NumberOrNil(row.Get(c)))
		} else {
			row.Set(c, FloatOrNil(row.Get(c)))
		}
	}
}
