package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

func ExportFilename(patId int64) string {
	return fmt.Sprintf("patient_%d_triage_export_flat.csv", patId)
}

func WriteCSV(w io.Writer, table Table) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true

	if err := writer.Write(table.Header); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}
	for row := range table.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("error writing csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("error flushing csv: %w", err)
	}
	return nil
}
