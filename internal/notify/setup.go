package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// RunTokenSetup makes sure the saved Gmail token is usable. A token that is
// still valid is left alone, an expired one with a refresh token is renewed
// against the token endpoint, and only when neither works does it walk
// through the OAuth consent flow on the terminal.
func RunTokenSetup(ctx context.Context, cfg Config) error {
	oauthCfg, err := readOAuthConfig(cfg.CredentialsFile)
	if err != nil {
		return err
	}

	if tok, err := tokenFromFile(cfg.TokenFile); err == nil {
		if tok.Valid() {
			log.Info().Str("path", cfg.TokenFile).Msg("Gmail token still valid, nothing to do")
			return nil
		}
		if tok.RefreshToken != "" {
			log.Info().Msg("Refreshing existing Gmail token")
			fresh, err := oauthCfg.TokenSource(ctx, tok).Token()
			if err == nil {
				return saveToken(cfg.TokenFile, fresh)
			}
			log.Warn().Err(err).Msg("Token refresh failed, starting a new consent flow")
		}
	}

	authURL := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following link in your browser, authorize the app, and paste the code here:\n%v\n\nCode: ", authURL)

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return fmt.Errorf("reading authorization code: %w", err)
	}

	tok, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}

	return saveToken(cfg.TokenFile, tok)
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating token file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}

	log.Info().Str("path", path).Msg("Saved Gmail token")
	return nil
}
