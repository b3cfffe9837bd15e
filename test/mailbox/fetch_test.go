package mailbox_test

import (
	"os"
	"testing"

	"landscaping_invoices/internal/mailbox"
)

func TestLiveFetchAttachments(t *testing.T) {
	if os.Getenv("GMAIL_ADDRESS") == "" || os.Getenv("GMAIL_APP_PASSWORD") == "" {
		t.Skip("Gmail credentials not set")
	}

	cfg := mailbox.LoadConfig()
	cfg.AttachmentDir = t.TempDir()

	paths, err := mailbox.FetchAttachments(cfg)
	if err != nil {
		t.Fatalf("Failed to fetch attachments: %v", err)
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("Saved attachment missing: %v", err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("Saved attachment %s is empty", path)
		}
	}
	t.Logf("Fetched %d attachments", len(paths))
}
