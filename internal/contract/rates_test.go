package contract

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func dec(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func missing() decimal.NullDecimal {
	return decimal.NullDecimal{}
}

func TestLocationID(t *testing.T) {
	tests := []struct {
		name   string
		center string
		wantID int
		wantOK bool
	}{
		{"plain number", "1042", 1042, true},
		{"number with label", "Center 0881 - Maple Grove", 881, true},
		{"digits embedded", "KC#207 North", 207, true},
		{"first run wins", "12 and 34", 12, true},
		{"no digits", "Headquarters", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := LocationID(tt.center)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestDeriveRate(t *testing.T) {
	tests := []struct {
		name     string
		monthly  decimal.NullDecimal
		seasonal decimal.NullDecimal
		months   decimal.NullDecimal
		want     decimal.NullDecimal
	}{
		{"monthly present", dec("1000"), missing(), missing(), dec("1000")},
		{"monthly wins over seasonal", dec("1000"), dec("6000"), dec("12"), dec("1000")},
		{"seasonal divided by months", missing(), dec("6000"), dec("12"), dec("500")},
		{"seasonal without months", missing(), dec("6000"), missing(), missing()},
		{"months without seasonal", missing(), missing(), dec("12"), missing()},
		{"zero months", missing(), dec("6000"), dec("0"), missing()},
		{"both missing", missing(), missing(), missing(), missing()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveRate(tt.monthly, tt.seasonal, tt.months)
			assert.Equal(t, tt.want.Valid, got.Valid)
			if tt.want.Valid {
				assert.True(t, got.Decimal.Equal(tt.want.Decimal),
					"want %s, got %s", tt.want.Decimal, got.Decimal)
			}
		})
	}
}

func TestBuildRateTable(t *testing.T) {
	rows := []Row{
		{Center: "Center 100", MonthlyRate: dec("1000")},
		{Center: "Center 200", SeasonalRate: dec("6000"), BillingMonths: dec("12")},
		{Center: "no digits here", MonthlyRate: dec("999")},
		{Center: "Center 300"}, // no derivable rate
	}

	table := BuildRateTable(rows)
	require.Len(t, table, 2)
	assert.True(t, table[100].Equal(decimal.RequireFromString("1000")))
	assert.True(t, table[200].Equal(decimal.RequireFromString("500")))
	_, found := table[300]
	assert.False(t, found)
}

func TestBuildRateTableDuplicateKeepsLastRow(t *testing.T) {
	rows := []Row{
		{Center: "Center 100", MonthlyRate: dec("1000")},
		{Center: "100 again", MonthlyRate: dec("1200")},
	}

	table := BuildRateTable(rows)
	require.Len(t, table, 1)
	assert.True(t, table[100].Equal(decimal.RequireFromString("1200")))
}

func writeContractWorkbook(t *testing.T, path string, header []string, rows [][]interface{}) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", SheetName))
	for i, name := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(SheetName, cell, name))
	}
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(SheetName, cell, v))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func TestLoadRateTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultWorkbookName)
	header := []string{colCenter, colMonthlyRate, colSeasonalRate, colBillingMonths}
	writeContractWorkbook(t, path, header, [][]interface{}{
		{"Center 100 - Elm", "1,250.00", "", ""},
		{"Center 200", "", 6000, 12},
		{"Center 300", "", "", ""},
	})

	table, err := LoadRateTable(path)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.True(t, table[100].Equal(decimal.RequireFromString("1250.00")))
	assert.True(t, table[200].Equal(decimal.RequireFromString("500")))
}

func TestLoadRateTableMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultWorkbookName)
	header := []string{colCenter, colSeasonalRate, colBillingMonths}
	writeContractWorkbook(t, path, header, nil)

	_, err := LoadRateTable(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), colMonthlyRate)
}

func TestParseRate(t *testing.T) {
	assert.False(t, parseRate("").Valid)
	assert.False(t, parseRate("n/a").Valid)

	got := parseRate("1,234.56")
	require.True(t, got.Valid)
	assert.True(t, got.Decimal.Equal(decimal.RequireFromString("1234.56")))
}
