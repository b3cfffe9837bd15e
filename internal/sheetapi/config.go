package sheetapi

import (
	"landscaping_invoices/internal/app"
)

const (
	DefaultSheetID = "6819980372823940"
	DefaultBaseURL = "https://api.smartsheet.com/2.0"

	// FallbackName is used when the sheet metadata is unavailable or the
	// sheet has no name.
	FallbackName = "Smartsheet_Download"
)

// Config carries the Smartsheet access settings.
type Config struct {
	Token   string
	SheetID string
	BaseURL string
}

// LoadConfig reads the Smartsheet settings from the environment. The API
// token is required.
func LoadConfig() Config {
	return Config{
		Token:   app.GetRequiredEnv("SMARTSHEET_TOKEN"),
		SheetID: app.GetEnvWithDefault("SMARTSHEET_SHEET_ID", DefaultSheetID),
		BaseURL: app.GetEnvWithDefault("SMARTSHEET_BASE_URL", DefaultBaseURL),
	}
}
