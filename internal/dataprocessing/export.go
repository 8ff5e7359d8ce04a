package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"glycoimpute/internal/impute"
)

// WriteResultCSV writes an imputation result as a two-column CSV: the
// sample index and the imputed concentration. Missing values are written
// as the NA sentinel so the output round-trips through ParsePanelCSV.
func WriteResultCSV(w io.Writer, result *impute.Result) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"sample", result.Analyte.String()}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, m := range result.Values {
		record := []string{strconv.Itoa(i + 1), formatMeasurement(m)}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	// Flush before reading the error so buffered write failures surface.
	writer.Flush()
	return writer.Error()
}

func formatMeasurement(m impute.Measurement) string {
	if !m.Valid {
		return "NA"
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}
