// Package dataprocessing loads measurement panels from Excel and CSV
// files. A panel file has a header row of measurement names followed by one
// row per sample; blank or "NA" cells are missing values.
package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"glycoimpute/internal/impute"
)

// ParsePanelFile reads a measurement panel, dispatching on the file
// extension (.xlsx or .csv).
func ParsePanelFile(path string) (impute.Panel, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open panel file: %w", err)
		}
		defer f.Close()
		return panelFromWorkbook(f)
	case ".csv":
		return parseCSVPath(path)
	}
	return nil, fmt.Errorf("unsupported panel format %q", filepath.Ext(path))
}

// ParsePanelXLSX reads an Excel panel from a stream. The first sheet is
// used.
func ParsePanelXLSX(r io.Reader) (impute.Panel, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open panel workbook: %w", err)
	}
	defer f.Close()
	return panelFromWorkbook(f)
}

func panelFromWorkbook(f *excelize.File) (impute.Panel, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return panelFromRows(rows)
}

// ParsePanelCSV reads a CSV panel from a stream.
func ParsePanelCSV(r io.Reader) (impute.Panel, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read panel csv: %w", err)
	}
	return panelFromRows(records)
}

func parseCSVPath(path string) (impute.Panel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open panel file: %w", err)
	}
	defer f.Close()
	return ParsePanelCSV(f)
}

func panelFromRows(rows [][]string) (impute.Panel, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("panel has no header row")
	}

	header := rows[0]
	names := make([]string, 0, len(header))
	for col, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty measurement name", col+1)
		}
		names = append(names, name)
	}

	panel := make(impute.Panel, len(names))
	for _, name := range names {
		if _, dup := panel[name]; dup {
			return nil, fmt.Errorf("duplicate measurement column %q", name)
		}
		panel[name] = make(impute.Vector, 0, len(rows)-1)
	}

	for rowIdx, row := range rows[1:] {
		for col, name := range names {
			// Trailing cells absent from short rows are missing.
			cell := ""
			if col < len(row) {
				cell = strings.TrimSpace(row[col])
			}

			m, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", rowIdx+2, name, err)
			}
			panel[name] = append(panel[name], m)
		}
	}
	return panel, nil
}

// parseCell interprets a cell as a measurement. Blank and the conventional
// NA spellings are missing.
func parseCell(cell string) (impute.Measurement, error) {
	switch strings.ToUpper(cell) {
	case "", "NA", "N/A", "NAN", "NULL":
		return impute.Missing(), nil
	}

	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return impute.Measurement{}, fmt.Errorf("parse %q as number: %w", cell, err)
	}
	return impute.Some(v), nil
}
