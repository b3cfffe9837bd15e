// Package pipeline wires the stages of an approval run together: contract
// download, invoice mail fetch, reconciliation, approval submission, and
// the summary email.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"landscaping_invoices/internal/billing"
	"landscaping_invoices/internal/config"
	"landscaping_invoices/internal/contract"
	"landscaping_invoices/internal/invoice"
	"landscaping_invoices/internal/mailbox"
	"landscaping_invoices/internal/notify"
	"landscaping_invoices/internal/ratecomp"
	"landscaping_invoices/internal/retry"
	"landscaping_invoices/internal/sheetapi"
)

// DownloadContract fetches the contracted rates workbook into dir and
// returns its path. A failed name lookup falls back to a fixed name
// instead of failing the download.
func DownloadContract(ctx context.Context, dir string) (string, error) {
	cfg := sheetapi.LoadConfig()
	client := sheetapi.NewClient(cfg)
	res := config.DefaultResilienceConfig

	name, err := retry.WithRetry(ctx, res.SheetMetadata, func(ctx context.Context) (string, error) {
		return client.SheetName(ctx, cfg.SheetID)
	})
	if err != nil {
		log.Warn().Err(err).Str("sheet_id", cfg.SheetID).Msg("Could not fetch sheet name, using fallback")
		name = sheetapi.FallbackName
	}

	return retry.WithRetry(ctx, res.SheetDownload, func(ctx context.Context) (string, error) {
		return client.Download(ctx, cfg.SheetID, dir, name)
	})
}

// FetchInvoices pulls invoice mail attachments, expands zip archives, and
// returns the invoice files plus the directory they live under. A run
// with no invoice mail is an error.
func FetchInvoices() ([]string, string, error) {
	cfg := mailbox.LoadConfig()

	attachments, err := mailbox.FetchAttachments(cfg)
	if err != nil {
		return nil, "", err
	}
	if len(attachments) == 0 {
		return nil, "", fmt.Errorf("no invoice mail found in the last %d days", cfg.LookbackDays)
	}

	files, err := mailbox.ExtractZips(attachments, cfg.AttachmentDir)
	if err != nil {
		return nil, "", err
	}
	if len(files) == 0 {
		return nil, "", fmt.Errorf("invoice mail attachments contained no usable files")
	}
	return files, cfg.AttachmentDir, nil
}

// Analyze reads an invoice report (CSV or workbook), reconciles it against
// the contracted rates, and writes the comparison sheet back into the
// workbook. It returns the workbook path. An empty contractPath triggers a
// search for a previously downloaded contract workbook.
func Analyze(reportPath, contractPath string) (string, error) {
	workbookPath := reportPath
	if strings.EqualFold(filepath.Ext(reportPath), ".csv") {
		converted, err := invoice.ConvertCSVToWorkbook(reportPath)
		if err != nil {
			return "", err
		}
		workbookPath = converted
	}

	if contractPath == "" {
		found, err := FindContractWorkbook(filepath.Dir(workbookPath))
		if err != nil {
			return "", err
		}
		contractPath = found
	}

	rates, err := contract.LoadRateTable(contractPath)
	if err != nil {
		return "", err
	}

	wb, err := excelize.OpenFile(workbookPath)
	if err != nil {
		return "", fmt.Errorf("opening invoice workbook %s: %w", workbookPath, err)
	}
	defer wb.Close()

	lines, err := invoice.ReadWorkbookLines(wb)
	if err != nil {
		return "", err
	}

	comps := ratecomp.Reconcile(lines, rates)

	approved := 0
	for _, comp := range comps {
		if comp.Decision == ratecomp.DecisionApproved {
			approved++
		}
	}
	log.Info().
		Int("rows", len(comps)).
		Int("approved", approved).
		Int("review", len(comps)-approved).
		Msg("Reconciled invoices against contracted rates")

	if err := ratecomp.WriteSheet(wb, comps); err != nil {
		return "", err
	}
	if err := wb.Save(); err != nil {
		return "", fmt.Errorf("saving %s: %w", workbookPath, err)
	}

	log.Info().Str("path", workbookPath).Msg("Wrote comparison results")
	return workbookPath, nil
}

// Approve reads the comparison sheet out of a reconciled workbook and
// submits every approved row to ServiceChannel.
func Approve(ctx context.Context, workbookPath string) (billing.Summary, error) {
	wb, err := excelize.OpenFile(workbookPath)
	if err != nil {
		return billing.Summary{}, fmt.Errorf("opening workbook %s: %w", workbookPath, err)
	}
	defer wb.Close()

	comps, err := ratecomp.ReadSheet(wb)
	if err != nil {
		return billing.Summary{}, err
	}

	client := billing.NewClient(billing.LoadConfig())
	return billing.SubmitApprovals(ctx, client, comps), nil
}

// FindContractWorkbook looks for the contract workbook in the working
// directory first and next to the invoice files second.
func FindContractWorkbook(invoiceDir string) (string, error) {
	candidates := []string{
		contract.DefaultWorkbookName,
		filepath.Join(invoiceDir, contract.DefaultWorkbookName),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			log.Debug().Str("path", path).Msg("Found contract workbook")
			return path, nil
		}
	}
	return "", fmt.Errorf("contract workbook %s not found, run download-contract first", contract.DefaultWorkbookName)
}

// Run executes the whole pipeline. The summary email is attempted no
// matter how the run ends, carrying the counts so far and any error.
func Run(ctx context.Context) (err error) {
	runID := uuid.New().String()
	log.Info().Str("run_id", runID).Msg("Starting invoice approval run")

	notifier := notify.NewClient(notify.LoadConfig())

	var summary billing.Summary
	var workbookPath string

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panicked: %v", r)
		}

		report := notify.Report{
			Summary:        summary,
			AttachmentPath: workbookPath,
		}
		if err != nil {
			report.ErrorText = err.Error()
		}
		sendSummary(notifier, report)

		log.Info().
			Str("run_id", runID).
			Int("approved", summary.Approved).
			Int("failed", summary.Failed).
			Int("needs_review", summary.NeedsReview).
			Msg("Run finished")
	}()

	contractPath, err := DownloadContract(ctx, ".")
	if err != nil {
		return fmt.Errorf("downloading contract rates: %w", err)
	}

	files, attachmentDir, err := FetchInvoices()
	if err != nil {
		return fmt.Errorf("fetching invoice mail: %w", err)
	}
	log.Info().Int("files", len(files)).Msg("Invoice files ready")

	reportPath, err := invoice.SelectReportCSV(attachmentDir)
	if err != nil {
		return err
	}

	workbookPath, err = Analyze(reportPath, contractPath)
	if err != nil {
		return fmt.Errorf("reconciling invoices: %w", err)
	}

	summary, err = Approve(ctx, workbookPath)
	if err != nil {
		return err
	}
	return nil
}

// sendSummary emails the report under its own context so a canceled run
// still reports.
func sendSummary(notifier *notify.Client, report notify.Report) {
	res := config.DefaultResilienceConfig
	_, err := retry.WithRetry(context.Background(), res.SummaryEmail, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, notifier.Send(ctx, report)
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to send summary email")
	}
}
