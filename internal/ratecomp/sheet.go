package ratecomp

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"landscaping_invoices/internal/invoice"
)

// SheetName is the workbook sheet holding the comparison results.
const SheetName = "Rate_Comps"

const (
	colContractedRate = "Contracted Rate"
	colRateDifference = "Rate Difference"
	colApprovalStatus = "Approval.Status"
)

var sheetColumns = []string{
	invoice.FieldLocationID,
	invoice.FieldWorkOrder,
	invoice.FieldCategory,
	invoice.FieldTrade,
	invoice.FieldInvoiceNumber,
	invoice.FieldStatus,
	invoice.FieldTotal,
	invoice.FieldLaborAmount,
	invoice.FieldSalesTax,
	colContractedRate,
	colRateDifference,
	colApprovalStatus,
}

// WriteSheet writes the comparisons into the workbook, replacing any
// existing results sheet.
func WriteSheet(wb *excelize.File, comps []Comparison) error {
	if idx, err := wb.GetSheetIndex(SheetName); err == nil && idx != -1 {
		if err := wb.DeleteSheet(SheetName); err != nil {
			return fmt.Errorf("replacing %s sheet: %w", SheetName, err)
		}
	}
	if _, err := wb.NewSheet(SheetName); err != nil {
		return fmt.Errorf("creating %s sheet: %w", SheetName, err)
	}

	for col, name := range sheetColumns {
		if err := setCell(wb, col, 1, name); err != nil {
			return err
		}
	}
	for i, comp := range comps {
		for col, v := range rowValues(comp) {
			if v == nil {
				continue
			}
			if err := setCell(wb, col, i+2, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadSheet loads previously written comparisons back out of the workbook.
// All result columns must be present.
func ReadSheet(wb *excelize.File) ([]Comparison, error) {
	rows, err := wb.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("reading %s sheet: %w", SheetName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s sheet has no header row", SheetName)
	}

	cols, err := resolveSheetColumns(rows[0])
	if err != nil {
		return nil, err
	}

	comps := make([]Comparison, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cell := func(name string) string {
			return cellAt(row, cols[name])
		}

		var line invoice.Line
		line.LocationID, line.HasLocationID = invoice.ParseLocationID(cell(invoice.FieldLocationID))
		line.WorkOrder = strings.TrimSpace(cell(invoice.FieldWorkOrder))
		line.Category = strings.TrimSpace(cell(invoice.FieldCategory))
		line.Trade = strings.TrimSpace(cell(invoice.FieldTrade))
		line.InvoiceNumber = strings.TrimSpace(cell(invoice.FieldInvoiceNumber))
		line.Status = strings.TrimSpace(cell(invoice.FieldStatus))
		line.Total = invoice.ParseNumber(cell(invoice.FieldTotal))
		line.LaborAmount = invoice.ParseNumber(cell(invoice.FieldLaborAmount))
		line.SalesTax = invoice.ParseNumber(cell(invoice.FieldSalesTax))

		comps = append(comps, Comparison{
			Line:           line,
			ContractedRate: invoice.ParseNumber(cell(colContractedRate)),
			RateDifference: invoice.ParseNumber(cell(colRateDifference)),
			Decision:       Decision(strings.TrimSpace(cell(colApprovalStatus))),
		})
	}
	return comps, nil
}

func resolveSheetColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		trimmed := strings.TrimSpace(name)
		if _, seen := index[trimmed]; !seen {
			index[trimmed] = i
		}
	}

	var missing []string
	for _, name := range sheetColumns {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s sheet is missing columns %v", SheetName, missing)
	}
	return index, nil
}

func rowValues(c Comparison) []any {
	values := []any{
		nil,
		c.Line.WorkOrder,
		c.Line.Category,
		c.Line.Trade,
		c.Line.InvoiceNumber,
		c.Line.Status,
		numberCell(c.Line.Total),
		numberCell(c.Line.LaborAmount),
		numberCell(c.Line.SalesTax),
		numberCell(c.ContractedRate),
		numberCell(c.RateDifference),
		string(c.Decision),
	}
	if c.Line.HasLocationID {
		values[0] = c.Line.LocationID
	}
	return values
}

// numberCell keeps missing values as blank cells instead of zeros.
func numberCell(n decimal.NullDecimal) any {
	if !n.Valid {
		return nil
	}
	return n.Decimal.InexactFloat64()
}

func setCell(wb *excelize.File, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return fmt.Errorf("addressing %s cell: %w", SheetName, err)
	}
	if err := wb.SetCellValue(SheetName, cell, v); err != nil {
		return fmt.Errorf("writing %s cell %s: %w", SheetName, cell, err)
	}
	return nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
