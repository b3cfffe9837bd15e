package billing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"landscaping_invoices/internal/invoice"
	"landscaping_invoices/internal/ratecomp"
)

func TestSubmitApprovals(t *testing.T) {
	var tokenCalls, lookupCalls, approveCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", tokenHandler(t, &tokenCalls))
	mux.HandleFunc("/odata/invoices", func(w http.ResponseWriter, r *http.Request) {
		lookupCalls.Add(1)
		switch r.URL.Query().Get("$filter") {
		case "WoTrackingNumber eq 100":
			fmt.Fprint(w, `{"value":[{"Id":1,"Number":"INV-1"}]}`)
		case "WoTrackingNumber eq 200":
			fmt.Fprint(w, `{"value":[]}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	mux.HandleFunc("/invoices/1/approve", func(w http.ResponseWriter, r *http.Request) {
		approveCalls.Add(1)
		assert.Equal(t, "MAINTENANCE", r.URL.Query().Get("category"),
			"blank category falls back to the default")
		assert.Equal(t, DefaultApprovalCode, r.URL.Query().Get("approvalCode"),
			"lookup without a code falls back to the default")
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	comps := []ratecomp.Comparison{
		{Line: invoice.Line{WorkOrder: "100"}, Decision: ratecomp.DecisionApproved},
		{Line: invoice.Line{WorkOrder: "200"}, Decision: ratecomp.DecisionApproved},
		{Line: invoice.Line{WorkOrder: "300"}, Decision: ratecomp.DecisionApproved},
		{Line: invoice.Line{WorkOrder: ""}, Decision: ratecomp.DecisionApproved},
		{Line: invoice.Line{WorkOrder: "400"}, Decision: ratecomp.DecisionReview},
		{Line: invoice.Line{WorkOrder: "500"}, Decision: ratecomp.Decision("")},
	}

	client := NewClient(testConfig(srv.URL))
	summary := SubmitApprovals(context.Background(), client, comps)

	assert.Equal(t, 1, summary.Approved)
	assert.Equal(t, 3, summary.Failed, "missing invoice, lookup error, and blank work order all fail")
	assert.Equal(t, 2, summary.NeedsReview)
	assert.Equal(t, int32(3), lookupCalls.Load(), "review rows never reach the API")
	assert.Equal(t, int32(1), approveCalls.Load())
}

func TestSubmitApprovalsNoApprovedRows(t *testing.T) {
	var tokenCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", tokenHandler(t, &tokenCalls))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	comps := []ratecomp.Comparison{
		{Line: invoice.Line{WorkOrder: "100"}, Decision: ratecomp.DecisionReview},
		{Line: invoice.Line{WorkOrder: "200"}, Decision: ratecomp.DecisionReview},
	}

	client := NewClient(testConfig(srv.URL))
	summary := SubmitApprovals(context.Background(), client, comps)

	assert.Equal(t, Summary{NeedsReview: 2}, summary)
	assert.Equal(t, int32(0), tokenCalls.Load(), "no token fetched when nothing is approved")
	assert.Equal(t, 0, client.GetRequestCount())
}

func TestSubmitApprovalsCountsAlreadyApproved(t *testing.T) {
	var tokenCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", tokenHandler(t, &tokenCalls))
	mux.HandleFunc("/odata/invoices", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[{"Id":5,"Number":"INV-5"}]}`)
	})
	mux.HandleFunc("/invoices/5/approve", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"Message":"Invoice 5 already had this status"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	comps := []ratecomp.Comparison{
		{Line: invoice.Line{WorkOrder: "100"}, Decision: ratecomp.DecisionApproved},
	}

	client := NewClient(testConfig(srv.URL))
	summary := SubmitApprovals(context.Background(), client, comps)
	assert.Equal(t, Summary{Approved: 1}, summary, "already approved counts as approved")
}

func TestSubmitApprovalsUsesLookupApprovalCode(t *testing.T) {
	var tokenCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", tokenHandler(t, &tokenCalls))
	mux.HandleFunc("/odata/invoices", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[{"Id":9,"Number":"INV-9","ApprovalCode":" 1234-555555 "}]}`)
	})
	mux.HandleFunc("/invoices/9/approve", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1234-555555", r.URL.Query().Get("approvalCode"),
			"code from the lookup wins over the default")
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	comps := []ratecomp.Comparison{
		{Line: invoice.Line{WorkOrder: "100"}, Decision: ratecomp.DecisionApproved},
	}

	client := NewClient(testConfig(srv.URL))
	summary := SubmitApprovals(context.Background(), client, comps)
	assert.Equal(t, Summary{Approved: 1}, summary)
}

func TestApprovalCategory(t *testing.T) {
	assert.Equal(t, "LANDSCAPING", approvalCategory("Landscaping"))
	assert.Equal(t, "SNOW REMOVAL", approvalCategory("  snow removal "))
	assert.Equal(t, "MAINTENANCE", approvalCategory(""))
	assert.Equal(t, "MAINTENANCE", approvalCategory("   "))
}

func TestApprovalCode(t *testing.T) {
	assert.Equal(t, "1234-555555", approvalCode("1234-555555"))
	assert.Equal(t, "1234-555555", approvalCode("  1234-555555  "))
	assert.Equal(t, DefaultApprovalCode, approvalCode(""))
	assert.Equal(t, DefaultApprovalCode, approvalCode("   "))
}
