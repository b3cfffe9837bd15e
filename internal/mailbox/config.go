package mailbox

import (
	"landscaping_invoices/internal/app"
)

const (
	DefaultSearchPhrase  = "Landscaping_Invoices"
	DefaultAttachmentDir = "invoice_attachments"
	DefaultLookbackDays  = 30

	imapAddr = "imap.gmail.com:993"
)

// Config carries the Gmail IMAP settings for fetching invoice mail.
type Config struct {
	Address       string
	AppPassword   string
	SearchPhrase  string
	AttachmentDir string
	LookbackDays  int
}

// LoadConfig reads the mailbox settings from the environment. The account
// address and app password are required.
func LoadConfig() Config {
	return Config{
		Address:       app.GetRequiredEnv("GMAIL_ADDRESS"),
		AppPassword:   app.GetRequiredEnv("GMAIL_APP_PASSWORD"),
		SearchPhrase:  app.GetEnvWithDefault("INVOICE_SEARCH_SUBJECT", DefaultSearchPhrase),
		AttachmentDir: app.GetEnvWithDefault("INVOICE_ATTACHMENT_DIR", DefaultAttachmentDir),
		LookbackDays:  app.GetEnvIntWithDefault("INVOICE_LOOKBACK_DAYS", DefaultLookbackDays),
	}
}
