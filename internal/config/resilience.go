package config

import (
	"time"

	"landscaping_invoices/internal/retry"
)

// ResilienceConfig carries the retry budget for each network stage of the
// pipeline. Approval and lookup calls are absent on purpose: their only retry
// contract is the single token-refresh attempt inside the billing client.
type ResilienceConfig struct {
	SheetMetadata retry.Config
	SheetDownload retry.Config
	SummaryEmail  retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	SheetMetadata: retry.Config{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    60 * time.Second,
	},
	SheetDownload: retry.Config{
		MaxRetries: 2,
		BaseDelay:  5 * time.Second,
		MaxDelay:   60 * time.Second,
		Timeout:    120 * time.Second,
	},
	SummaryEmail: retry.Config{
		MaxRetries: 2,
		BaseDelay:  1 * time.Second,
		MaxDelay:   15 * time.Second,
		Timeout:    30 * time.Second,
	},
}
