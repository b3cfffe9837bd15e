package sheetapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Client talks to the Smartsheet REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// SheetName fetches the sheet's display name. Sheets without a name get
// the fallback.
func (c *Client) SheetName(ctx context.Context, sheetID string) (string, error) {
	endpoint := fmt.Sprintf("%s/sheets/%s", c.baseURL, sheetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("building sheet metadata request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching sheet %s metadata: %w", sheetID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading sheet metadata response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sheet metadata returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decoding sheet metadata: %w", err)
	}
	if payload.Name == "" {
		return FallbackName, nil
	}
	return payload.Name, nil
}

// Download fetches the sheet as an Excel workbook and writes it into dir
// under the sanitized sheet name. It returns the written path.
func (c *Client) Download(ctx context.Context, sheetID, dir, name string) (string, error) {
	endpoint := fmt.Sprintf("%s/sheets/%s", c.baseURL, sheetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("building sheet download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.ms-excel")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading sheet %s: %w", sheetID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("sheet download returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if name == "" {
		name = FallbackName
	}
	path := filepath.Join(dir, SanitizeFilename(name)+".xlsx")
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	log.Info().Str("path", path).Int64("bytes", written).Msg("Downloaded sheet workbook")
	return path, nil
}

// SanitizeFilename strips characters that are invalid in file names and
// replaces spaces with underscores.
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\\', '/', '*', '?', ':', '"', '<', '>', '|':
			return -1
		case ' ':
			return '_'
		}
		return r
	}, name)
}
