package jobber

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"

	"s2j/internal/config"
)

const (
	authorizeURL = "https://api.getjobber.com/api/oauth/authorize"
	tokenURL     = "https://api.getjobber.com/api/oauth/token"
)

// Auth drives the authorization-code flow and keeps the resulting token
// on disk so the CLI and the listener can share one grant.
type Auth struct {
	oauth     *oauth2.Config
	tokenPath string
}

func NewAuth(cfg config.Config) (*Auth, error) {
	if err := cfg.Require("JOBBER_CLIENT_ID", cfg.JobberClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("JOBBER_CLIENT_SECRET", cfg.JobberClientSecret); err != nil {
		return nil, err
	}

	return &Auth{
		oauth: &oauth2.Config{
			ClientID:     cfg.JobberClientID,
			ClientSecret: cfg.JobberClientSecret,
			RedirectURL:  cfg.JobberRedirectURI,
			Scopes:       splitScopes(cfg.JobberScopes),
			Endpoint: oauth2.Endpoint{
				AuthURL:  authorizeURL,
				TokenURL: tokenURL,
			},
		},
		tokenPath: cfg.JobberTokenFile,
	}, nil
}

func splitScopes(raw string) []string {
	var scopes []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

// AuthorizationURL returns the URL the operator must visit plus the state
// value to verify on the redirect.
func (a *Auth) AuthorizationURL() (string, string) {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	state := hex.EncodeToString(buf)
	return a.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline), state
}

// Exchange trades an authorization code for a token and persists it.
func (a *Auth) Exchange(ctx context.Context, code string) error {
	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("jobber token exchange: %w", err)
	}
	if err := saveToken(a.tokenPath, tok); err != nil {
		return err
	}
	fmt.Printf("INFO: Jobber token saved to %s\n", a.tokenPath)
	return nil
}

// TokenSource returns a source that refreshes the stored token as needed
// and writes every rotation back to disk. Jobber rotates the refresh
// token on each use, so failing to persist would strand the grant.
func (a *Auth) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, err := loadToken(a.tokenPath)
	if err != nil {
		return nil, fmt.Errorf("no Jobber token at %s, run jobber:auth-url first: %w", a.tokenPath, err)
	}
	return &savingSource{
		path: a.tokenPath,
		src:  a.oauth.TokenSource(ctx, tok),
		last: tok,
	}, nil
}

type savingSource struct {
	path string
	src  oauth2.TokenSource
	last *oauth2.Token
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.last == nil || tok.AccessToken != s.last.AccessToken || tok.RefreshToken != s.last.RefreshToken {
		if err := saveToken(s.path, tok); err != nil {
			fmt.Printf("WARN: could not persist refreshed Jobber token: %v\n", err)
		}
		s.last = tok
	}
	return tok, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parsing token file %s: %w", path, err)
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing token file %s: %w", path, err)
	}
	return nil
}
