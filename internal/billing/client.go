package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Invoice is the slice of the ServiceChannel invoice document the
// approval flow needs: the id to approve against, plus the approval code
// the lookup may carry for that invoice.
type Invoice struct {
	ID           int64  `json:"Id"`
	Number       string `json:"Number"`
	Trade        string `json:"Trade"`
	ApprovalCode string `json:"ApprovalCode"`
}

// cacheEntry remembers a lookup outcome so repeated work orders in one
// run never query twice. found is false for work orders with no invoice.
type cacheEntry struct {
	invoice *Invoice
	found   bool
}

// ApprovalOutcome describes how an approval call ended.
type ApprovalOutcome string

const (
	ApprovalSubmitted       ApprovalOutcome = "submitted"
	ApprovalAlreadyApproved ApprovalOutcome = "already_approved"
)

// ApprovalRequest carries the parameters of one approval call.
type ApprovalRequest struct {
	InvoiceID    int64
	ApprovalCode string
	Comments     string
	Category     string
}

// Client talks to the ServiceChannel invoice API.
type Client struct {
	baseURL      string
	subscriberID int
	session      *TokenSession
	httpClient   *http.Client

	cacheMutex  sync.RWMutex
	lookupCache map[string]cacheEntry

	countMutex   sync.Mutex
	requestCount int
}

func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		subscriberID: cfg.SubscriberID,
		session:      NewTokenSession(cfg),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		lookupCache: make(map[string]cacheEntry),
	}
}

// LookupInvoice finds the invoice filed against a work order tracking
// number. A nil invoice with a nil error means no invoice exists. Both
// outcomes are cached for the life of the client, and a failed lookup is
// cached as not found.
func (c *Client) LookupInvoice(ctx context.Context, workOrder string) (*Invoice, error) {
	c.cacheMutex.RLock()
	entry, ok := c.lookupCache[workOrder]
	c.cacheMutex.RUnlock()
	if ok {
		log.Debug().Str("work_order", workOrder).Msg("Invoice lookup cache hit")
		if !entry.found {
			return nil, nil
		}
		return entry.invoice, nil
	}

	inv, err := c.fetchInvoice(ctx, workOrder)
	if err != nil {
		c.storeLookup(workOrder, nil)
		return nil, err
	}
	c.storeLookup(workOrder, inv)
	return inv, nil
}

func (c *Client) storeLookup(workOrder string, inv *Invoice) {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.lookupCache[workOrder] = cacheEntry{invoice: inv, found: inv != nil}
}

func (c *Client) fetchInvoice(ctx context.Context, workOrder string) (*Invoice, error) {
	params := url.Values{}
	params.Set("$filter", "WoTrackingNumber eq "+odataLiteral(workOrder))
	params.Set("$top", "1")
	endpoint := c.baseURL + "/odata/invoices?" + params.Encode()

	resp, err := c.doAuthorized(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("looking up invoice for work order %s: %w", workOrder, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading invoice lookup response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("invoice lookup for work order %s returned status %d: %s",
			workOrder, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Value []Invoice `json:"value"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding invoice lookup response: %w", err)
	}
	if len(payload.Value) == 0 {
		log.Debug().Str("work_order", workOrder).Msg("No invoice filed for work order")
		return nil, nil
	}

	inv := payload.Value[0]
	if inv.ID == 0 {
		log.Warn().Str("work_order", workOrder).Msg("Invoice lookup result carries no id")
		return nil, nil
	}
	return &inv, nil
}

// ApproveInvoice submits one approval. An invoice that already carries the
// requested status counts as a success.
func (c *Client) ApproveInvoice(ctx context.Context, req ApprovalRequest) (ApprovalOutcome, error) {
	params := url.Values{}
	params.Set("approvalCode", req.ApprovalCode)
	params.Set("comments", req.Comments)
	params.Set("category", req.Category)
	endpoint := fmt.Sprintf("%s/invoices/%d/approve?%s", c.baseURL, req.InvoiceID, params.Encode())

	resp, err := c.doAuthorized(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	})
	if err != nil {
		return "", fmt.Errorf("approving invoice %d: %w", req.InvoiceID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading approval response for invoice %d: %w", req.InvoiceID, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
		return ApprovalSubmitted, nil
	case isAlreadyApproved(resp.StatusCode, string(body)):
		log.Warn().Int64("invoice_id", req.InvoiceID).Msg("Invoice already approved")
		return ApprovalAlreadyApproved, nil
	default:
		return "", fmt.Errorf("approval of invoice %d returned status %d: %s",
			req.InvoiceID, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// isAlreadyApproved recognizes the response ServiceChannel sends for an
// invoice that already carries the requested status.
func isAlreadyApproved(status int, body string) bool {
	return status == http.StatusForbidden && strings.Contains(body, "already had this status")
}

// doAuthorized sends a request built with the current token, refreshing
// the token and retrying exactly once on a 401. A second 401 is returned
// to the caller as-is.
func (c *Client) doAuthorized(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	token, err := c.session.Current(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(build, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	log.Warn().Msg("ServiceChannel rejected the access token, refreshing")
	token, err = c.session.Refresh(ctx, token)
	if err != nil {
		return nil, err
	}
	return c.send(build, token)
}

func (c *Client) send(build func() (*http.Request, error), token string) (*http.Response, error) {
	req, err := build()
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("sc-subscription-id", strconv.Itoa(c.subscriberID))

	c.incrementRequestCount()
	return c.httpClient.Do(req)
}

func (c *Client) incrementRequestCount() {
	c.countMutex.Lock()
	defer c.countMutex.Unlock()
	c.requestCount++
}

// GetRequestCount returns the number of API requests made so far.
func (c *Client) GetRequestCount() int {
	c.countMutex.Lock()
	defer c.countMutex.Unlock()
	return c.requestCount
}

// odataLiteral quotes non-numeric work order numbers for the filter.
func odataLiteral(workOrder string) string {
	if workOrder != "" && isDigits(workOrder) {
		return workOrder
	}
	return "'" + strings.ReplaceAll(workOrder, "'", "''") + "'"
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
