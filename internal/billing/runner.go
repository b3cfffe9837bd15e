package billing

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"landscaping_invoices/internal/ratecomp"
)

// Summary counts how each comparison row ended up.
type Summary struct {
	Approved    int
	Failed      int
	NeedsReview int
}

// SubmitApprovals pushes every row marked approved to ServiceChannel and
// counts the rest for review. One bad row never stops the run.
func SubmitApprovals(ctx context.Context, client *Client, comps []ratecomp.Comparison) Summary {
	var summary Summary
	total := len(comps)

	for i, comp := range comps {
		if !comp.Decision.Approved() {
			log.Info().
				Int("row", i+1).
				Int("rows", total).
				Str("work_order", comp.Line.WorkOrder).
				Str("status", string(comp.Decision)).
				Msg("Skipping row not marked approved")
			summary.NeedsReview++
			continue
		}

		if comp.Line.WorkOrder == "" {
			log.Error().
				Int("row", i+1).
				Int("rows", total).
				Msg("Approved row has no work order number")
			summary.Failed++
			continue
		}

		inv, err := client.LookupInvoice(ctx, comp.Line.WorkOrder)
		if err != nil {
			log.Error().
				Err(err).
				Int("row", i+1).
				Int("rows", total).
				Str("work_order", comp.Line.WorkOrder).
				Msg("Invoice lookup failed")
			summary.Failed++
			continue
		}
		if inv == nil {
			log.Error().
				Int("row", i+1).
				Int("rows", total).
				Str("work_order", comp.Line.WorkOrder).
				Msg("No invoice found for work order")
			summary.Failed++
			continue
		}

		log.Debug().
			Int64("invoice_id", inv.ID).
			Str("invoice_number", inv.Number).
			Str("trade", inv.Trade).
			Msg("Resolved invoice metadata")

		outcome, err := client.ApproveInvoice(ctx, ApprovalRequest{
			InvoiceID:    inv.ID,
			ApprovalCode: approvalCode(inv.ApprovalCode),
			Comments:     DefaultApprovalComments,
			Category:     approvalCategory(comp.Line.Category),
		})
		if err != nil {
			log.Error().
				Err(err).
				Int("row", i+1).
				Int("rows", total).
				Str("work_order", comp.Line.WorkOrder).
				Int64("invoice_id", inv.ID).
				Msg("Invoice approval failed")
			summary.Failed++
			continue
		}

		summary.Approved++
		log.Info().
			Int("row", i+1).
			Int("rows", total).
			Str("work_order", comp.Line.WorkOrder).
			Int64("invoice_id", inv.ID).
			Str("invoice_number", inv.Number).
			Str("outcome", string(outcome)).
			Msg("Invoice approved")
	}

	log.Info().
		Int("approved", summary.Approved).
		Int("failed", summary.Failed).
		Int("needs_review", summary.NeedsReview).
		Int("api_requests", client.GetRequestCount()).
		Msg("Approval run complete")
	return summary
}

// approvalCategory normalizes the sheet category, falling back to the
// maintenance default when the row has none.
func approvalCategory(category string) string {
	c := strings.ToUpper(strings.TrimSpace(category))
	if c == "" {
		return DefaultCategory
	}
	return c
}

// approvalCode prefers the code the invoice lookup returned over the
// default GL code.
func approvalCode(code string) string {
	if c := strings.TrimSpace(code); c != "" {
		return c
	}
	return DefaultApprovalCode
}
