package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/mulchkit/mulch/internal/logging"
)

// ErrNoToken is returned when no cached token exists.
var ErrNoToken = errors.New("no cached Google OAuth token")

// Config describes where OAuth material lives and which scopes to request.
type Config struct {
	// CredentialsFile is the OAuth client JSON from the Cloud console (default: credentials.json)
	CredentialsFile string

	// TokenFile caches the user's token (default: token.json)
	TokenFile string

	// Scopes requested during authorization (default: gmail.readonly).
	// Changing the scopes requires deleting the token file.
	Scopes []string

	// CallbackAddr is the loopback listen address for the browser flow (default: localhost:0)
	CallbackAddr string
}

// DefaultConfig returns a Config populated from the environment.
func DefaultConfig() Config {
	return Config{
		CredentialsFile: getEnvOrDefault("MULCH_GOOGLE_CREDENTIALS", "credentials.json"),
		TokenFile:       getEnvOrDefault("MULCH_GOOGLE_TOKEN", "token.json"),
		Scopes:          []string{gmail.GmailReadonlyScope},
		CallbackAddr:    getEnvOrDefault("MULCH_GOOGLE_CALLBACK_ADDR", "localhost:0"),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.CredentialsFile == "" {
		return fmt.Errorf("credentials file is required")
	}
	if c.TokenFile == "" {
		return fmt.Errorf("token file is required")
	}
	if len(c.Scopes) == 0 {
		return fmt.Errorf("at least one OAuth scope is required")
	}
	return nil
}

// LoadOAuthConfig reads the OAuth client configuration from cfg.CredentialsFile.
func LoadOAuthConfig(cfg Config) (*oauth2.Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	conf, err := google.ConfigFromJSON(data, cfg.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return conf, nil
}

// TokenFromFile reads a cached token. It returns ErrNoToken if the file does not exist.
func TokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token file: %w", err)
	}
	return tok, nil
}

// SaveToken writes the token as JSON, readable only by the current user.
func SaveToken(path string, tok *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}

// NewHTTPClient returns an HTTP client authorized for cfg.Scopes.
// A cached token is used when present; otherwise auth is asked for a new one,
// which is then cached. Tokens refreshed during the client's lifetime are
// written back to cfg.TokenFile.
func NewHTTPClient(ctx context.Context, cfg Config, auth Authorizer, logger *slog.Logger) (*http.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithService(logger, "google.oauth")

	conf, err := LoadOAuthConfig(cfg)
	if err != nil {
		return nil, err
	}

	tok, err := TokenFromFile(cfg.TokenFile)
	switch {
	case errors.Is(err, ErrNoToken):
		if auth == nil {
			return nil, fmt.Errorf("%w at %s and no authorizer configured", ErrNoToken, cfg.TokenFile)
		}
		logger.Info("no cached token, starting authorization", logging.File(cfg.TokenFile))
		tok, err = auth.Authorize(ctx, conf)
		if err != nil {
			return nil, fmt.Errorf("authorization failed: %w", err)
		}
		if err := SaveToken(cfg.TokenFile, tok); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	ts := &savingTokenSource{
		base:   conf.TokenSource(ctx, tok),
		path:   cfg.TokenFile,
		last:   tok.AccessToken,
		logger: logger,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, ts)), nil
}

// savingTokenSource persists tokens whenever the access token changes.
type savingTokenSource struct {
	base   oauth2.TokenSource
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := SaveToken(s.path, tok); err != nil {
			s.logger.Warn("failed to cache refreshed token", logging.Err(err))
		} else {
			s.logger.Debug("cached refreshed token",
				logging.File(s.path),
				slog.String("token", logging.SanitizeToken(tok.AccessToken)))
		}
	}
	return tok, nil
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
