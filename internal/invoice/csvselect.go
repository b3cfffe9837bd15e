package invoice

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// PreferredReportName is the exact CSV the billing platform ships the
// financial-details report under.
const PreferredReportName = "invoice_report_-_financial_details.csv"

// SelectReportCSV picks the invoice CSV out of the extraction directory.
// Preference order:
//  1. the exact preferred name at the extraction root
//  2. any CSV whose name contains "financial_details"
//  3. any CSV whose name contains "accounting_details" (warned: that report
//     usually lacks the location and total columns the analysis needs)
//  4. the first CSV found (last-resort warning)
//
// No CSV at all is an error; the run cannot proceed without a report.
func SelectReportCSV(root string) (string, error) {
	var candidates []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".csv") {
			candidates = append(candidates, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to scan %s for CSV files: %w", root, err)
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("no CSV invoice file found in extracted directory: %s", root)
	}

	for _, c := range candidates {
		log.Debug().Str("csv", filepath.Base(c)).Msg("Candidate invoice CSV")
	}

	preferred := filepath.Clean(filepath.Join(root, PreferredReportName))
	for _, c := range candidates {
		if filepath.Clean(c) == preferred {
			log.Info().Str("csv", c).Msg("Using preferred invoice CSV")
			return c, nil
		}
	}

	for _, c := range candidates {
		if strings.Contains(strings.ToLower(filepath.Base(c)), "financial_details") {
			log.Info().Str("csv", c).Msg("Using invoice CSV containing 'financial_details'")
			return c, nil
		}
	}

	for _, c := range candidates {
		if strings.Contains(strings.ToLower(filepath.Base(c)), "accounting_details") {
			log.Warn().
				Str("csv", c).
				Msg("Falling back to 'accounting_details' CSV; required columns may be missing")
			return c, nil
		}
	}

	log.Warn().Str("csv", candidates[0]).Msg("Using first CSV file as last-resort fallback")
	return candidates[0], nil
}
