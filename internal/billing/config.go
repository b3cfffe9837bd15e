package billing

import (
	"landscaping_invoices/internal/app"
)

const (
	DefaultTokenURL     = "https://login.servicechannel.com/oauth/token"
	DefaultBaseURL      = "https://api.servicechannel.com/v3"
	DefaultSubscriberID = 2014917421

	// DefaultApprovalCode is the GL code recorded on every auto-approval.
	DefaultApprovalCode     = "5440-102100"
	DefaultApprovalComments = "Approved by Derek- All invoices compared to contracted rates."
	// DefaultCategory is used when the sheet row carries no category.
	DefaultCategory = "MAINTENANCE"
)

// Config carries ServiceChannel credentials and endpoints.
type Config struct {
	Username     string
	Password     string
	AuthCode     string
	SubscriberID int
	BaseURL      string
	TokenURL     string
}

// LoadConfig reads ServiceChannel settings from the environment.
// Credentials are required, endpoints fall back to production defaults.
func LoadConfig() Config {
	return Config{
		Username:     app.GetRequiredEnv("SC_USERNAME"),
		Password:     app.GetRequiredEnv("SC_PASSWORD"),
		AuthCode:     app.GetRequiredEnv("SC_AUTH_CODE"),
		SubscriberID: app.GetEnvIntWithDefault("SC_SUBSCRIBER_ID", DefaultSubscriberID),
		BaseURL:      app.GetEnvWithDefault("SC_BASE_URL", DefaultBaseURL),
		TokenURL:     app.GetEnvWithDefault("SC_TOKEN_URL", DefaultTokenURL),
	}
}
