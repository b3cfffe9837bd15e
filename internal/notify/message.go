package notify

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog/log"
)

// buildMessage assembles the raw base64url message the Gmail API expects.
func buildMessage(from, to string, report Report) (string, error) {
	var header mail.Header
	header.SetAddressList("From", []*mail.Address{{Address: from}})
	header.SetAddressList("To", []*mail.Address{{Address: to}})
	header.SetSubject(Subject)

	var msg bytes.Buffer
	mw, err := mail.CreateWriter(&msg, header)
	if err != nil {
		return "", fmt.Errorf("creating message: %w", err)
	}

	var bodyHeader mail.InlineHeader
	bodyHeader.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	body, err := mw.CreateSingleInline(bodyHeader)
	if err != nil {
		return "", fmt.Errorf("creating message body: %w", err)
	}
	if _, err := io.WriteString(body, buildBody(report)); err != nil {
		return "", fmt.Errorf("writing message body: %w", err)
	}
	if err := body.Close(); err != nil {
		return "", fmt.Errorf("closing message body: %w", err)
	}

	if report.AttachmentPath != "" {
		if err := attachFile(mw, report.AttachmentPath); err != nil {
			return "", err
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finishing message: %w", err)
	}
	return base64.URLEncoding.EncodeToString(msg.Bytes()), nil
}

// buildBody renders the HTML summary. A captured run error is escaped
// into a preformatted block.
func buildBody(report Report) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString("<p>Hi Derek,</p>")
	b.WriteString("<p>The landscaping invoices have been validated against the contracted rates. ")
	b.WriteString("Approvals have been sent for the rows marked as <b>Approved</b>.</p>")
	b.WriteString(`<table border="1" cellpadding="6" cellspacing="0">`)
	b.WriteString("<tr><th>Status</th><th>Count</th></tr>")
	fmt.Fprintf(&b, "<tr><td>Approved</td><td>%d</td></tr>", report.Summary.Approved)
	fmt.Fprintf(&b, "<tr><td>Not Approved (errors)</td><td>%d</td></tr>", report.Summary.Failed)
	fmt.Fprintf(&b, "<tr><td>Need Review (skipped)</td><td>%d</td></tr>", report.Summary.NeedsReview)
	b.WriteString("</table>")
	if report.ErrorText != "" {
		b.WriteString("<p><b>Unhandled error encountered:</b></p>")
		fmt.Fprintf(&b, "<pre>%s</pre>", html.EscapeString(report.ErrorText))
	}
	b.WriteString("<p>Regards,<br/>Invoice Auto-Approver Bot</p>")
	b.WriteString("</body></html>")
	return b.String()
}

// attachFile adds the workbook to the message. A path that no longer
// exists is skipped with a warning so the counts still go out.
func attachFile(mw *mail.Writer, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("Attachment missing, sending summary without it")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading attachment %s: %w", path, err)
	}

	var header mail.AttachmentHeader
	header.SetFilename(filepath.Base(path))
	header.SetContentType("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil)
	header.Set("Content-Transfer-Encoding", "base64")

	part, err := mw.CreateAttachment(header)
	if err != nil {
		return fmt.Errorf("creating attachment part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("writing attachment: %w", err)
	}
	if err := part.Close(); err != nil {
		return fmt.Errorf("writing attachment: %w", err)
	}
	return nil
}
