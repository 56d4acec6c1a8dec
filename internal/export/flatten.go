package export

import (
	"bytes"
	"encoding/json"
	"iter"
	"log/slog"
	"strconv"
	"time"

	"triage-backend/internal/core"
)

// RequiredFeatures always appear in an export, before any other column the
// loaded model declares.
var RequiredFeatures = []string{
	"month_visit", "day_visit", "year_visit",
	"is_arrival_ambulance", "ambulance_time",
	"patient_age", "patient_sexe", "patient_race",
	"heart_rate_signal", "temperature_signal", "respiratory_rate_signal",
	"blood_pressure_systolic_signal", "blood_pressure_diastolic_signal",
	"pulse_oximetry_signal",
	"patient_pain_category",
	"is_patient_seen_before_72h",
	"patient_alchol_level",
	"is_patient_suffer_alzheimar",
	"is_patient_suffer_cancer",
	"is_patient_suffer_cerebrovascular",
	"is_patient_suffer_chronic_kidney",
	"is_patient_suffer_chronic_obstructive_pulmonary",
	"is_patient_suffer_congestive_heart_failure",
	"is_patient_suffer_coronary_artery",
	"is_patient_suffer_depression",
	"is_patient_suffer_diabet_L0",
	"is_patient_suffer_diabet_L1",
	"is_patient_suffer_diabet_L2",
	"is_patient_suffer_renal_insufficiency",
	"is_patient_suffer_pulmonary_embolism",
	"is_patient_suffer_HIV_infection",
	"is_patient_suffer_high_cholesterol",
	"is_patient_suffer_hyper_tension",
	"is_patient_suffer_obesity",
	"is_patient_suffer_apnea",
	"is_patient_suffer_osteoporosis",
}

var (
	PatientColumns = []string{"pat_first_name", "pat_last_name", "pat_insurance_no", "pat_ph_no", "pat_address"}
	BaseColumns    = []string{"created_at", "label"}
)

const createdAtLayout = "2006-01-02 15:04:05"

type Identity struct {
	FirstName   string
	LastName    string
	InsuranceNo string
	PhNo        string
	Address     string
}

func (i Identity) cells() []string {
	return []string{i.FirstName, i.LastName, i.InsuranceNo, i.PhNo, i.Address}
}

// Record is a stored analysis as read back from the audit store.
type Record struct {
	CreatedAt time.Time
	Label     string
	Payload   []byte
}

type Row []string

type Table struct {
	Header []string
	Rows   iter.Seq[Row]
}

// FeatureColumns returns RequiredFeatures followed by the schema columns not
// already listed.
func FeatureColumns(schemaCols []string) []string {
	seen := make(map[string]struct{}, len(RequiredFeatures)+len(schemaCols))
	cols := make([]string, 0, len(RequiredFeatures)+len(schemaCols))
	for _, group := range [][]string{RequiredFeatures, schemaCols} {
		for _, c := range group {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			cols = append(cols, c)
		}
	}
	return cols
}

// Flatten builds one row per record, in the order the records are given. Rows
// are produced lazily and every range over Rows walks the records again.
func Flatten(identity Identity, records []Record, schemaCols []string) Table {
	features := FeatureColumns(schemaCols)

	header := make([]string, 0, len(PatientColumns)+len(BaseColumns)+len(features))
	header = append(header, PatientColumns...)
	header = append(header, BaseColumns...)
	header = append(header, features...)

	rows := func(yield func(Row) bool) {
		for _, record := range records {
			if !yield(flattenRecord(identity, record, features)) {
				return
			}
		}
	}

	return Table{Header: header, Rows: rows}
}

func flattenRecord(identity Identity, record Record, features []string) Row {
	values := make(map[string]any, len(features))
	for _, c := range features {
		if d, ok := core.FlagDefault(c); ok {
			values[c] = d
		} else {
			values[c] = ""
		}
	}

	for k, v := range decodePayload(record.Payload) {
		if _, ok := values[k]; ok {
			values[k] = v
		}
	}

	row := make(Row, 0, len(PatientColumns)+len(BaseColumns)+len(features))
	row = append(row, identity.cells()...)
	row = append(row, formatTime(record.CreatedAt), record.Label)
	for _, c := range features {
		row = append(row, FormatCell(values[c]))
	}
	return row
}

func decodePayload(data []byte) map[string]any {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		slog.Warn("undecodable analysis payload in export", "error", err)
		return nil
	}
	return payload
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(createdAtLayout)
}

// FormatCell renders a value as a csv cell: nil is empty, floats use the
// shortest decimal form, bools are True/False, maps and slices are JSON.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case json.Number:
		return x.String()
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(x); err != nil {
			return ""
		}
		return string(bytes.TrimRight(buf.Bytes(), "\n"))
	}
}
