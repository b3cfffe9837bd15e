package mailbox

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog/log"
)

// FetchAttachments logs into the mailbox, finds recent invoice mail, and
// saves every attachment into the configured directory. It returns the
// saved file paths.
func FetchAttachments(cfg Config) ([]string, error) {
	c, err := client.DialTLS(imapAddr, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", imapAddr, err)
	}
	c.Timeout = 60 * time.Second
	defer c.Logout()

	if err := c.Login(cfg.Address, cfg.AppPassword); err != nil {
		return nil, fmt.Errorf("logging in as %s: %w", cfg.Address, err)
	}
	log.Debug().Str("address", cfg.Address).Msg("Logged into mailbox")

	return fetchAttachments(c, cfg)
}

func fetchAttachments(c *client.Client, cfg Config) ([]string, error) {
	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("selecting inbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = time.Now().UTC().AddDate(0, 0, -cfg.LookbackDays)
	criteria.Text = []string{cfg.SearchPhrase}

	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("searching mailbox: %w", err)
	}
	log.Info().
		Int("messages", len(ids)).
		Str("phrase", cfg.SearchPhrase).
		Int("lookback_days", cfg.LookbackDays).
		Msg("Searched mailbox for invoice mail")
	if len(ids) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(cfg.AttachmentDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating attachment directory: %w", err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var saved []string
	for msg := range messages {
		paths, err := saveMessageAttachments(msg, section, cfg.AttachmentDir)
		if err != nil {
			log.Error().Err(err).Uint32("seq_num", msg.SeqNum).Msg("Failed to read message attachments")
			continue
		}
		saved = append(saved, paths...)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	log.Info().Int("attachments", len(saved)).Str("dir", cfg.AttachmentDir).Msg("Saved invoice attachments")
	return saved, nil
}

func saveMessageAttachments(msg *imap.Message, section *imap.BodySectionName, dir string) ([]string, error) {
	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("message %d has no body", msg.SeqNum)
	}

	mr, err := mail.CreateReader(body)
	if err != nil {
		return nil, fmt.Errorf("opening message %d: %w", msg.SeqNum, err)
	}

	var saved []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return saved, fmt.Errorf("reading message %d part: %w", msg.SeqNum, err)
		}

		h, ok := p.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}

		filename, err := h.Filename()
		if err != nil || filename == "" {
			filename = fmt.Sprintf("attachment_%d.bin", msg.SeqNum)
		}

		path, err := saveAttachment(p.Body, dir, filename)
		if err != nil {
			log.Error().Err(err).Str("filename", filename).Msg("Failed to save attachment")
			continue
		}
		if path == "" {
			continue
		}
		saved = append(saved, path)
		log.Debug().Str("path", path).Msg("Saved attachment")
	}
	return saved, nil
}

// saveAttachment writes one attachment to dir, returning an empty path
// for empty parts. Attachment names are flattened to their base name.
func saveAttachment(r io.Reader, dir, filename string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading attachment %s: %w", filename, err)
	}
	if len(data) == 0 {
		return "", nil
	}

	path := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing attachment %s: %w", filename, err)
	}
	return path, nil
}
