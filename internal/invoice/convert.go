package invoice

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// ReportSheetName is the sheet the converted invoice report lands on.
const ReportSheetName = "Invoice_Report"

// ConvertCSVToWorkbook rewrites the report CSV as an xlsx next to it, same
// base name, on the Invoice_Report sheet, and returns the new path. Cells
// that read as plain numbers are written as numbers so the workbook behaves
// like a normal report export; everything else stays text.
func ConvertCSVToWorkbook(csvPath string) (string, error) {
	log.Debug().Str("csv", csvPath).Msg("Converting invoice CSV to workbook")

	in, err := os.Open(csvPath)
	if err != nil {
		return "", fmt.Errorf("failed to open CSV: %w", err)
	}
	defer in.Close()

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return "", fmt.Errorf("CSV %s is empty", csvPath)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", ReportSheetName); err != nil {
		return "", fmt.Errorf("failed to name report sheet: %w", err)
	}

	for r, record := range records {
		for c, value := range record {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return "", fmt.Errorf("failed to address cell (%d,%d): %w", r+1, c+1, err)
			}
			if err := f.SetCellValue(ReportSheetName, cell, cellValue(r, value)); err != nil {
				return "", fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	base := strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
	xlsxPath := filepath.Join(filepath.Dir(csvPath), base+".xlsx")
	if err := f.SaveAs(xlsxPath); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	log.Info().
		Str("workbook", xlsxPath).
		Int("rows", len(records)).
		Msg("Invoice workbook created")
	return xlsxPath, nil
}

// cellValue keeps the header row textual and promotes clean numeric data
// cells to numbers. Values with thousands separators stay text; ingestion
// normalizes them either way.
func cellValue(row int, value string) interface{} {
	if row == 0 {
		return value
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || trimmed != value {
		return value
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return n
	}
	return value
}
