package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"landscaping_invoices/internal/app"
	"landscaping_invoices/internal/billing"
)

// DefaultRecipient receives the summary email unless overridden.
const DefaultRecipient = "Dlambert@kc-education.com"

// Subject is the summary email subject line.
const Subject = "Landscaping Invoice Approvals Status"

// Config carries the Gmail API settings for the summary email. From is the
// authorized sending address; without it the summary is skipped.
type Config struct {
	From            string
	To              string
	CredentialsFile string
	TokenFile       string
}

// LoadConfig reads the summary email settings from the environment.
func LoadConfig() Config {
	return Config{
		From:            os.Getenv("GMAIL_ADDRESS"),
		To:              app.GetEnvWithDefault("SUMMARY_EMAIL_TO", DefaultRecipient),
		CredentialsFile: app.GetEnvWithDefault("GMAIL_CREDENTIALS_FILE", "credentials.json"),
		TokenFile:       app.GetEnvWithDefault("GMAIL_TOKEN_FILE", "token.json"),
	}
}

// Report is the content of one summary email.
type Report struct {
	Summary        billing.Summary
	ErrorText      string
	AttachmentPath string
}

// Client sends run summaries through the Gmail API. A client without
// credentials on disk is disabled and skips sending.
type Client struct {
	cfg     Config
	enabled bool
}

func NewClient(cfg Config) *Client {
	enabled := true
	if cfg.From == "" {
		log.Warn().Msg("GMAIL_ADDRESS not set, summary email disabled")
		enabled = false
	} else if _, err := os.Stat(cfg.CredentialsFile); err != nil {
		log.Warn().Str("file", cfg.CredentialsFile).Msg("Gmail credentials file missing, summary email disabled")
		enabled = false
	} else if _, err := os.Stat(cfg.TokenFile); err != nil {
		log.Warn().Str("file", cfg.TokenFile).Msg("Gmail token file missing, summary email disabled")
		enabled = false
	}
	return &Client{cfg: cfg, enabled: enabled}
}

// Enabled reports whether the client is configured to send.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Send emails the run summary. A disabled client logs and does nothing.
func (c *Client) Send(ctx context.Context, report Report) error {
	if !c.enabled {
		log.Warn().Msg("Summary email skipped, Gmail sending is not configured")
		return nil
	}

	srv, err := c.service(ctx)
	if err != nil {
		return err
	}

	raw, err := buildMessage(c.cfg.From, c.cfg.To, report)
	if err != nil {
		return err
	}

	if _, err := srv.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sending summary email: %w", err)
	}

	log.Info().
		Str("to", c.cfg.To).
		Int("approved", report.Summary.Approved).
		Int("failed", report.Summary.Failed).
		Int("needs_review", report.Summary.NeedsReview).
		Msg("Sent summary email")
	return nil
}

func (c *Client) service(ctx context.Context) (*gmail.Service, error) {
	oauthCfg, err := readOAuthConfig(c.cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	tok, err := tokenFromFile(c.cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("reading Gmail token: %w", err)
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("creating Gmail service: %w", err)
	}
	return srv, nil
}

func readOAuthConfig(path string) (*oauth2.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading Gmail credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("parsing Gmail credentials: %w", err)
	}
	return cfg, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	return tok, json.NewDecoder(f).Decode(tok)
}
