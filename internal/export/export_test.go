package export

import (
	"bytes"
	"encoding/csv"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var identity = Identity{
	FirstName:   "Ada",
	LastName:    "Lovelace",
	InsuranceNo: "INS-1",
	PhNo:        "555-0100",
	Address:     "12 St James's Square",
}

func cell(t *testing.T, table Table, row Row, column string) string {
	i := slices.Index(table.Header, column)
	require.GreaterOrEqual(t, i, 0, column)
	return row[i]
}

func collect(table Table) []Row {
	var rows []Row
	for row := range table.Rows {
		rows = append(rows, row)
	}
	return rows
}

func TestFeatureColumns(t *testing.T) {
	cols := FeatureColumns([]string{"patient_age", "extra_signal", "extra_signal"})
	assert.Equal(t, RequiredFeatures, cols[:len(RequiredFeatures)])
	assert.Equal(t, []string{"extra_signal"}, cols[len(RequiredFeatures):])

	assert.Equal(t, RequiredFeatures, FeatureColumns(nil))
}

func TestFlattenHeader(t *testing.T) {
	table := Flatten(identity, nil, []string{"extra_signal"})

	assert.Equal(t, PatientColumns, table.Header[:5])
	assert.Equal(t, []string{"created_at", "label"}, table.Header[5:7])
	assert.Equal(t, "month_visit", table.Header[7])
	assert.Equal(t, "extra_signal", table.Header[len(table.Header)-1])
	assert.Empty(t, collect(table))
}

func TestFlattenRecord(t *testing.T) {
	createdAt := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	records := []Record{{
		CreatedAt: createdAt,
		Label:     "Urgent",
		Payload: []byte(`{
			"patient_age": 42,
			"temperature_signal": 98.6,
			"patient_sexe": "F",
			"is_patient_suffer_obesity": "Yes",
			"patient_pain_category": null,
			"is_arrival_ambulance": true,
			"extra_signal": {"a": [1, 2]},
			"not_exported": 1
		}`),
	}}

	table := Flatten(identity, records, []string{"patient_age", "extra_signal"})
	rows := collect(table)
	require.Len(t, rows, 1)
	row := rows[0]
	require.Len(t, row, len(table.Header))

	assert.Equal(t, "Ada", cell(t, table, row, "pat_first_name"))
	assert.Equal(t, "12 St James's Square", cell(t, table, row, "pat_address"))
	assert.Equal(t, "2024-05-01 10:30:00", cell(t, table, row, "created_at"))
	assert.Equal(t, "Urgent", cell(t, table, row, "label"))

	assert.Equal(t, "42", cell(t, table, row, "patient_age"))
	assert.Equal(t, "98.6", cell(t, table, row, "temperature_signal"))
	assert.Equal(t, "F", cell(t, table, row, "patient_sexe"))
	assert.Equal(t, "Yes", cell(t, table, row, "is_patient_suffer_obesity"))
	assert.Equal(t, "True", cell(t, table, row, "is_arrival_ambulance"))
	assert.Equal(t, `{"a":[1,2]}`, cell(t, table, row, "extra_signal"))
	assert.Equal(t, "", cell(t, table, row, "patient_pain_category"))
	assert.NotContains(t, table.Header, "not_exported")

	assert.Equal(t, "No", cell(t, table, row, "is_patient_suffer_cancer"))
	assert.Equal(t, "No", cell(t, table, row, "is_patient_seen_before_72h"))
	assert.Equal(t, "No", cell(t, table, row, "patient_alchol_level"))
	assert.Equal(t, "", cell(t, table, row, "heart_rate_signal"))
	assert.Equal(t, "", cell(t, table, row, "month_visit"))
}

func TestFlattenUndecodablePayload(t *testing.T) {
	records := []Record{
		{Label: "Emergent", Payload: []byte("not json")},
		{Label: "Urgent", Payload: nil},
	}
	table := Flatten(identity, records, nil)
	rows := collect(table)
	require.Len(t, rows, 2)

	for _, row := range rows {
		assert.Equal(t, "", cell(t, table, row, "created_at"))
		assert.Equal(t, "No", cell(t, table, row, "is_patient_suffer_apnea"))
		assert.Equal(t, "", cell(t, table, row, "patient_age"))
	}
	assert.Equal(t, "Emergent", cell(t, table, rows[0], "label"))
}

func TestFlattenIsRestartable(t *testing.T) {
	records := []Record{
		{Label: "Urgent", Payload: []byte(`{"patient_age": 1}`)},
		{Label: "Emergent", Payload: []byte(`{"patient_age": 2}`)},
	}
	table := Flatten(identity, records, nil)

	first := collect(table)
	second := collect(table)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)

	for row := range table.Rows {
		assert.Equal(t, "Urgent", cell(t, table, row, "label"))
		break
	}
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "", FormatCell(nil))
	assert.Equal(t, "42", FormatCell(42.0))
	assert.Equal(t, "0.1", FormatCell(0.1))
	assert.Equal(t, "120.5", FormatCell(120.5))
	assert.Equal(t, "7", FormatCell(7))
	assert.Equal(t, "False", FormatCell(false))
	assert.Equal(t, `["a","b"]`, FormatCell([]any{"a", "b"}))
	assert.Equal(t, `{"x":"<y>"}`, FormatCell(map[string]any{"x": "<y>"}))
}

func TestWriteCSVRoundTrip(t *testing.T) {
	records := []Record{{
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Label:     "Semi-urgent",
		Payload:   []byte(`{"patient_age": 42, "patient_sexe": "M, with comma"}`),
	}}
	table := Flatten(identity, records, nil)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))
	assert.Contains(t, buf.String(), "\r\n")

	parsed, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	assert.Equal(t, table.Header, parsed[0])

	row := Row(parsed[1])
	assert.Equal(t, "42", cell(t, table, row, "patient_age"))
	assert.Equal(t, "M, with comma", cell(t, table, row, "patient_sexe"))
	assert.Equal(t, "Semi-urgent", cell(t, table, row, "label"))
	assert.Equal(t, "No", cell(t, table, row, "is_patient_suffer_osteoporosis"))
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "patient_12_triage_export_flat.csv", ExportFilename(12))
}
