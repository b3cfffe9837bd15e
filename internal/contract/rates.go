package contract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	// SheetName is the tab inside the contract workbook that carries the
	// landscaping rates.
	SheetName = "Contracted Rates - Land"

	// DefaultWorkbookName is the file the download stage produces and the
	// analyze stage looks for when no contract path is given.
	DefaultWorkbookName = "Contracted_Rates_-_Land.xlsx"

	colCenter        = "Center #"
	colMonthlyRate   = "Land Maintenance Monthly w/Fall & Spring Cleanup"
	colSeasonalRate  = "Land Maintenance Seasonal w/Fall & Spring Cleanup"
	colBillingMonths = "Billing Months"
)

// RateTable maps a location ID to its monthly contracted rate. Locations
// whose rate could not be derived are absent.
type RateTable map[int]decimal.Decimal

// Row is one contract line as read from the workbook, before rate derivation.
type Row struct {
	Center        string
	MonthlyRate   decimal.NullDecimal
	SeasonalRate  decimal.NullDecimal
	BillingMonths decimal.NullDecimal
}

var digitRun = regexp.MustCompile(`\d+`)

// LocationID extracts the first run of digits from a center label.
// Labels without digits report ok=false and exclude the row, not the run.
func LocationID(center string) (id int, ok bool) {
	match := digitRun.FindString(center)
	if match == "" {
		return 0, false
	}
	id, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return id, true
}

// DeriveRate resolves the contracted monthly rate for one row: the monthly
// rate when present, else seasonal divided by billing months when both are
// present and months is non-zero, else missing.
func DeriveRate(monthly, seasonal, billingMonths decimal.NullDecimal) decimal.NullDecimal {
	if monthly.Valid {
		return monthly
	}
	if seasonal.Valid && billingMonths.Valid && !billingMonths.Decimal.IsZero() {
		return decimal.NullDecimal{Decimal: seasonal.Decimal.Div(billingMonths.Decimal), Valid: true}
	}
	return decimal.NullDecimal{}
}

// BuildRateTable derives rates for every row and indexes them by location ID.
// Rows without a digit in the center label or without a derivable rate are
// skipped. Duplicate locations log a warning and keep the last row's rate.
func BuildRateTable(rows []Row) RateTable {
	table := make(RateTable, len(rows))
	for i, row := range rows {
		id, ok := LocationID(row.Center)
		if !ok {
			log.Warn().
				Int("row", i+1).
				Str("center", row.Center).
				Msg("No location ID in center label, skipping contract row")
			continue
		}

		rate := DeriveRate(row.MonthlyRate, row.SeasonalRate, row.BillingMonths)
		if !rate.Valid {
			log.Debug().
				Int("location_id", id).
				Msg("No derivable contracted rate for location, skipping contract row")
			continue
		}

		if prev, exists := table[id]; exists {
			log.Warn().
				Int("location_id", id).
				Str("previous_rate", prev.String()).
				Str("new_rate", rate.Decimal.String()).
				Msg("Duplicate location ID in contract sheet, keeping the later row")
		}
		table[id] = rate.Decimal
	}
	return table
}

// LoadRateTable reads the contract workbook and builds the rate table.
// A missing sheet or missing required column is an error; the caller treats
// it as fatal for the run.
func LoadRateTable(path string) (RateTable, error) {
	log.Debug().Str("path", path).Msg("Loading contract rates workbook")

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open contract workbook: %w", err)
	}
	defer f.Close()

	cells, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", SheetName, err)
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", SheetName)
	}

	columns, err := resolveColumns(cells[0])
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(cells)-1)
	for _, cell := range cells[1:] {
		rows = append(rows, Row{
			Center:        cellAt(cell, columns.center),
			MonthlyRate:   parseRate(cellAt(cell, columns.monthly)),
			SeasonalRate:  parseRate(cellAt(cell, columns.seasonal)),
			BillingMonths: parseRate(cellAt(cell, columns.billingMonths)),
		})
	}

	table := BuildRateTable(rows)
	log.Info().
		Int("contract_rows", len(rows)).
		Int("locations", len(table)).
		Msg("Built contract rate table")
	return table, nil
}

type columnIndexes struct {
	center        int
	monthly       int
	seasonal      int
	billingMonths int
}

func resolveColumns(header []string) (columnIndexes, error) {
	byName := make(map[string]int, len(header))
	for i, name := range header {
		byName[strings.TrimSpace(name)] = i
	}

	idx := columnIndexes{}
	var missing []string
	assign := func(dst *int, name string) {
		i, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			return
		}
		*dst = i
	}
	assign(&idx.center, colCenter)
	assign(&idx.monthly, colMonthlyRate)
	assign(&idx.seasonal, colSeasonalRate)
	assign(&idx.billingMonths, colBillingMonths)

	if len(missing) > 0 {
		return idx, fmt.Errorf("contract sheet is missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// cellAt reads a cell by index, tolerating the short rows excelize returns
// when trailing cells are empty.
func cellAt(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

// parseRate turns a worksheet cell into an optional decimal. Thousands
// separators are stripped; anything unparsable is missing, never zero.
func parseRate(cell string) decimal.NullDecimal {
	s := strings.TrimSpace(strings.ReplaceAll(cell, ",", ""))
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
