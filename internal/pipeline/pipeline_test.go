package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"landscaping_invoices/internal/contract"
	"landscaping_invoices/internal/ratecomp"
)

func writeContractWorkbook(t *testing.T, path string) {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	require.NoError(t, wb.SetSheetName("Sheet1", contract.SheetName))

	rows := [][]any{
		{"Center #", "Land Maintenance Monthly w/Fall & Spring Cleanup",
			"Land Maintenance Seasonal w/Fall & Spring Cleanup", "Billing Months"},
		{"Center 0100", 1000.00, nil, nil},
		{"Center 0200", nil, 5400.00, 12},
	}
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, wb.SetCellValue(contract.SheetName, cell, v))
		}
	}
	require.NoError(t, wb.SaveAs(path))
}

func writeInvoiceCSV(t *testing.T, path string) {
	t.Helper()
	body := strings.Join([]string{
		"Location ID,W.O.#,Category,Trade,Invoice Number,Inv.Status,Inv.Total,Invoice Labor Amount,Sales Tax",
		"100,500,Landscaping,LANDSCAPING,INV-1,Open,1000.00,800.00,50.00",
		"100,501,Landscaping,LANDSCAPING,INV-2,Open,1090.00,800.00,50.00",
		"200,502,Landscaping,LANDSCAPING,INV-3,Open,448.00,400.00,20.00",
		"300,503,Landscaping,LANDSCAPING,INV-4,Open,100.00,80.00,5.00",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestAnalyze(t *testing.T) {
	dir := t.TempDir()
	contractPath := filepath.Join(dir, contract.DefaultWorkbookName)
	writeContractWorkbook(t, contractPath)
	csvPath := filepath.Join(dir, "invoice_report_-_financial_details.csv")
	writeInvoiceCSV(t, csvPath)

	workbookPath, err := Analyze(csvPath, contractPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "invoice_report_-_financial_details.xlsx"), workbookPath)

	wb, err := excelize.OpenFile(workbookPath)
	require.NoError(t, err)
	defer wb.Close()
	assert.Contains(t, wb.GetSheetList(), ratecomp.SheetName)

	comps, err := ratecomp.ReadSheet(wb)
	require.NoError(t, err)
	require.Len(t, comps, 4)

	assert.Equal(t, ratecomp.DecisionApproved, comps[0].Decision, "billed at contract")
	assert.Equal(t, ratecomp.DecisionReview, comps[1].Decision, "overbilled")
	assert.Equal(t, ratecomp.DecisionApproved, comps[2].Decision, "underbilled within the floor against the seasonal rate")
	assert.Equal(t, ratecomp.DecisionReview, comps[3].Decision, "no contracted rate")

	require.True(t, comps[1].RateDifference.Valid)
	assert.Equal(t, "90", comps[1].RateDifference.Decimal.String())
}

func TestAnalyzeFindsContractNextToInvoices(t *testing.T) {
	dir := t.TempDir()
	writeContractWorkbook(t, filepath.Join(dir, contract.DefaultWorkbookName))
	csvPath := filepath.Join(dir, "invoice_report_-_financial_details.csv")
	writeInvoiceCSV(t, csvPath)

	workbookPath, err := Analyze(csvPath, "")
	require.NoError(t, err)
	assert.FileExists(t, workbookPath)
}

func TestAnalyzeMissingContract(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "invoice_report_-_financial_details.csv")
	writeInvoiceCSV(t, csvPath)

	_, err := Analyze(csvPath, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), contract.DefaultWorkbookName)
}

func TestFindContractWorkbook(t *testing.T) {
	dir := t.TempDir()
	writeContractWorkbook(t, filepath.Join(dir, contract.DefaultWorkbookName))

	path, err := FindContractWorkbook(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, contract.DefaultWorkbookName), path)
}

// chdir switches the working directory for the duration of the test,
// restoring the original directory during cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}

func TestFindContractWorkbookPrefersWorkingDirectory(t *testing.T) {
	cwd := t.TempDir()
	chdir(t, cwd)
	writeContractWorkbook(t, filepath.Join(cwd, contract.DefaultWorkbookName))

	other := t.TempDir()
	writeContractWorkbook(t, filepath.Join(other, contract.DefaultWorkbookName))

	path, err := FindContractWorkbook(other)
	require.NoError(t, err)
	assert.Equal(t, contract.DefaultWorkbookName, path, "working directory copy wins")
}

func TestFindContractWorkbookMissing(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := FindContractWorkbook(t.TempDir())
	require.Error(t, err)
}
