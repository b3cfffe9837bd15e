package invoice

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Line is one work order on the invoice report after normalization. Money
// fields are missing (not zero) when the source cell did not parse; a line
// without a usable location ID keeps HasLocationID false and ends up in
// review downstream.
type Line struct {
	LocationID    int
	HasLocationID bool
	WorkOrder     string
	Category      string
	Trade         string
	InvoiceNumber string
	Status        string
	Total         decimal.NullDecimal
	LaborAmount   decimal.NullDecimal
	SalesTax      decimal.NullDecimal
}

// ReadLines resolves the schema from the header row and normalizes every data
// row. Order is preserved and no rows are dropped.
func ReadLines(rows [][]string) ([]Line, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("report has no header row")
	}

	schema, err := ResolveSchema(rows[0])
	if err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(rows)-1)
	for _, row := range rows[1:] {
		lines = append(lines, lineFromRow(schema, row))
	}

	log.Debug().Int("lines", len(lines)).Msg("Normalized invoice report rows")
	return lines, nil
}

func lineFromRow(schema Schema, row []string) Line {
	cell := func(field string) string {
		return cellAt(row, schema.Column(field))
	}

	line := Line{
		WorkOrder:     strings.TrimSpace(cell(FieldWorkOrder)),
		Category:      strings.TrimSpace(cell(FieldCategory)),
		Trade:         strings.TrimSpace(cell(FieldTrade)),
		InvoiceNumber: strings.TrimSpace(cell(FieldInvoiceNumber)),
		Status:        strings.TrimSpace(cell(FieldStatus)),
		Total:         ParseNumber(cell(FieldTotal)),
		LaborAmount:   ParseNumber(cell(FieldLaborAmount)),
	}
	line.LocationID, line.HasLocationID = ParseLocationID(cell(FieldLocationID))
	line.SalesTax = salesTax(schema, row)
	return line
}

// salesTax resolves the tax amount. When the report splits tax across two
// columns the parts are summed, treating a missing part as zero, and rounded
// to cents; a single unparsable tax column stays missing.
func salesTax(schema Schema, row []string) decimal.NullDecimal {
	primary := ParseNumber(cellAt(row, schema.Column(FieldSalesTax)))
	if !schema.HasSecondaryTax() {
		return primary
	}

	secondary := ParseNumber(cellAt(row, schema.secondaryTax))
	if !primary.Valid && !secondary.Valid {
		return decimal.NullDecimal{}
	}

	total := decimal.Zero
	if primary.Valid {
		total = total.Add(primary.Decimal)
	}
	if secondary.Valid {
		total = total.Add(secondary.Decimal)
	}
	return decimal.NullDecimal{Decimal: total.Round(2), Valid: true}
}

// ReadWorkbookLines reads the first sheet of an open invoice workbook and
// normalizes it. The converter writes that sheet, but any workbook whose
// first sheet matches the report schema works.
func ReadWorkbookLines(wb *excelize.File) ([]Line, error) {
	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("invoice workbook has no sheets")
	}

	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	lines, err := ReadLines(rows)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sheet", sheets[0]).
		Int("lines", len(lines)).
		Msg("Loaded invoice report")
	return lines, nil
}

func cellAt(row []string, idx int) string {
	if idx >= 0 && idx < len(row) {
		return row[idx]
	}
	return ""
}
