package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// newTokenServer returns a token endpoint that hands out access tokens
// numbered by request.
func newTokenServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"access-%d","token_type":"Bearer","refresh_token":"refresh","expires_in":3600}`, n)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func writeCredentials(t *testing.T, dir, tokenURL string) string {
	t.Helper()

	creds := map[string]any{
		"installed": map[string]any{
			"client_id":     "client-id.apps.googleusercontent.com",
			"client_secret": "secret",
			"auth_uri":      "https://accounts.example.com/o/oauth2/auth",
			"token_uri":     tokenURL,
			"redirect_uris": []string{"http://localhost"},
		},
	}
	data, err := json.Marshal(creds)
	require.NoError(t, err)

	path := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

type stubAuthorizer struct {
	tok   *oauth2.Token
	err   error
	calls int
}

func (s *stubAuthorizer) Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	s.calls++
	return s.tok, s.err
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("MULCH_GOOGLE_CREDENTIALS", "")
	t.Setenv("MULCH_GOOGLE_TOKEN", "/secure/token.json")

	cfg := DefaultConfig()
	assert.Equal(t, "credentials.json", cfg.CredentialsFile)
	assert.Equal(t, "/secure/token.json", cfg.TokenFile)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/gmail.readonly"}, cfg.Scopes)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no credentials", Config{TokenFile: "t", Scopes: []string{"s"}}},
		{"no token", Config{CredentialsFile: "c", Scopes: []string{"s"}}},
		{"no scopes", Config{CredentialsFile: "c", TokenFile: "t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestTokenFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	tok := &oauth2.Token{
		AccessToken:  "at",
		TokenType:    "Bearer",
		RefreshToken: "rt",
		Expiry:       time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	require.NoError(t, SaveToken(path, tok))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := TokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, tok.AccessToken, got.AccessToken)
	assert.Equal(t, tok.RefreshToken, got.RefreshToken)
	assert.True(t, tok.Expiry.Equal(got.Expiry))
}

func TestTokenFromFile_Missing(t *testing.T) {
	_, err := TokenFromFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestTokenFromFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	_, err := TokenFromFile(path)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoToken))
}

func TestLoadOAuthConfig(t *testing.T) {
	dir := t.TempDir()
	credsPath := writeCredentials(t, dir, "https://oauth2.example.com/token")

	conf, err := LoadOAuthConfig(Config{
		CredentialsFile: credsPath,
		TokenFile:       filepath.Join(dir, "token.json"),
		Scopes:          []string{"scope-a"},
	})
	require.NoError(t, err)
	assert.Equal(t, "client-id.apps.googleusercontent.com", conf.ClientID)
	assert.Equal(t, "https://oauth2.example.com/token", conf.Endpoint.TokenURL)
	assert.Equal(t, []string{"scope-a"}, conf.Scopes)
}

func TestLoadOAuthConfig_MissingFile(t *testing.T) {
	_, err := LoadOAuthConfig(Config{
		CredentialsFile: filepath.Join(t.TempDir(), "nope.json"),
		TokenFile:       "token.json",
		Scopes:          []string{"s"},
	})
	assert.Error(t, err)
}

func TestNewHTTPClient_AuthorizesAndCaches(t *testing.T) {
	dir := t.TempDir()
	tokenSrv, _ := newTokenServer(t)
	cfg := Config{
		CredentialsFile: writeCredentials(t, dir, tokenSrv.URL),
		TokenFile:       filepath.Join(dir, "token.json"),
		Scopes:          []string{"scope"},
	}
	auth := &stubAuthorizer{tok: &oauth2.Token{
		AccessToken:  "fresh",
		TokenType:    "Bearer",
		RefreshToken: "rt",
		Expiry:       time.Now().Add(time.Hour),
	}}

	client, err := NewHTTPClient(context.Background(), cfg, auth, nil)
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, 1, auth.calls)

	cached, err := TokenFromFile(cfg.TokenFile)
	require.NoError(t, err)
	assert.Equal(t, "fresh", cached.AccessToken)

	// The second client reuses the cache.
	_, err = NewHTTPClient(context.Background(), cfg, auth, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, auth.calls)
}

func TestNewHTTPClient_NoTokenNoAuthorizer(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		CredentialsFile: writeCredentials(t, dir, "https://oauth2.example.com/token"),
		TokenFile:       filepath.Join(dir, "token.json"),
		Scopes:          []string{"scope"},
	}

	_, err := NewHTTPClient(context.Background(), cfg, nil, nil)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestNewHTTPClient_RefreshIsPersisted(t *testing.T) {
	dir := t.TempDir()
	tokenSrv, calls := newTokenServer(t)

	var gotAuth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer api.Close()

	cfg := Config{
		CredentialsFile: writeCredentials(t, dir, tokenSrv.URL),
		TokenFile:       filepath.Join(dir, "token.json"),
		Scopes:          []string{"scope"},
	}
	expired := &oauth2.Token{
		AccessToken:  "stale",
		TokenType:    "Bearer",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(-time.Hour),
	}
	require.NoError(t, SaveToken(cfg.TokenFile, expired))

	client, err := NewHTTPClient(context.Background(), cfg, nil, nil)
	require.NoError(t, err)

	resp, err := client.Get(api.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "Bearer access-1", gotAuth)

	cached, err := TokenFromFile(cfg.TokenFile)
	require.NoError(t, err)
	assert.Equal(t, "access-1", cached.AccessToken)
}

func TestLoopbackAuthorizer(t *testing.T) {
	tokenSrv, _ := newTokenServer(t)
	conf := &oauth2.Config{
		ClientID: "id",
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.example.com/auth",
			TokenURL: tokenSrv.URL,
		},
		Scopes: []string{"scope"},
	}

	auth := &LoopbackAuthorizer{
		Addr:    "127.0.0.1:0",
		Timeout: 5 * time.Second,
		Open: func(consent string) error {
			u, err := url.Parse(consent)
			if err != nil {
				return err
			}
			q := u.Query()
			redirect := q.Get("redirect_uri") + "/?code=the-code&state=" + url.QueryEscape(q.Get("state"))
			resp, err := http.Get(redirect)
			if err != nil {
				return err
			}
			return resp.Body.Close()
		},
	}

	tok, err := auth.Authorize(context.Background(), conf)
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.Empty(t, conf.RedirectURL, "caller config must not be modified")
}

func TestLoopbackAuthorizer_StateMismatch(t *testing.T) {
	conf := &oauth2.Config{
		ClientID: "id",
		Endpoint: oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth", TokenURL: "http://unused"},
	}

	auth := &LoopbackAuthorizer{
		Addr:    "127.0.0.1:0",
		Timeout: 5 * time.Second,
		Open: func(consent string) error {
			u, _ := url.Parse(consent)
			resp, err := http.Get(u.Query().Get("redirect_uri") + "/?code=x&state=forged")
			if err != nil {
				return err
			}
			return resp.Body.Close()
		},
	}

	_, err := auth.Authorize(context.Background(), conf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state mismatch")
}

func TestLoopbackAuthorizer_ContextCancelled(t *testing.T) {
	conf := &oauth2.Config{Endpoint: oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	auth := &LoopbackAuthorizer{Addr: "127.0.0.1:0"}
	_, err := auth.Authorize(ctx, conf)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPromptAuthorizer(t *testing.T) {
	tokenSrv, _ := newTokenServer(t)
	conf := &oauth2.Config{
		ClientID: "id",
		Endpoint: oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth", TokenURL: tokenSrv.URL},
	}

	var out strings.Builder
	auth := &PromptAuthorizer{In: strings.NewReader("  pasted-code \n"), Out: &out}

	tok, err := auth.Authorize(context.Background(), conf)
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.Contains(t, out.String(), "https://accounts.example.com/auth")
}

func TestPromptAuthorizer_EmptyCode(t *testing.T) {
	conf := &oauth2.Config{Endpoint: oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth"}}
	auth := &PromptAuthorizer{In: strings.NewReader("\n"), Out: &strings.Builder{}}

	_, err := auth.Authorize(context.Background(), conf)
	assert.Error(t, err)
}
