package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// TokenSession holds the current OAuth bearer token and replaces it on
// demand. Refresh is single-flight: when several rows hit a 401 carrying
// the same stale token, only the first caller fetches a replacement.
type TokenSession struct {
	tokenURL string
	username string
	password string
	authCode string

	httpClient *http.Client

	mu    sync.Mutex
	token string
}

func NewTokenSession(cfg Config) *TokenSession {
	return &TokenSession{
		tokenURL: cfg.TokenURL,
		username: cfg.Username,
		password: cfg.Password,
		authCode: cfg.AuthCode,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Current returns the active token, fetching the first one lazily.
func (s *TokenSession) Current(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}
	token, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}
	s.token = token
	return s.token, nil
}

// Refresh replaces a stale token. When another caller already swapped it
// out, the existing replacement is returned without a second fetch.
func (s *TokenSession) Refresh(ctx context.Context, stale string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && s.token != stale {
		return s.token, nil
	}
	token, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}
	s.token = token
	return s.token, nil
}

func (s *TokenSession) fetch(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type": {"password"},
		"username":   {s.username},
		"password":   {s.password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", s.authCode)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting access token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response has no access_token")
	}

	log.Debug().Msg("Obtained ServiceChannel access token")
	return payload.AccessToken, nil
}
