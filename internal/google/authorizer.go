package google

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// DefaultAuthTimeout bounds how long the loopback flow waits for the browser.
const DefaultAuthTimeout = 5 * time.Minute

// Authorizer obtains a fresh token from the user.
type Authorizer interface {
	Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error)
}

// LoopbackAuthorizer runs the installed-app flow: it listens on a loopback
// address, sends the user to the consent page and exchanges the code that
// Google redirects back with.
type LoopbackAuthorizer struct {
	// Addr is the listen address (default: localhost:0)
	Addr string

	// Open is called with the consent URL. It should start a browser.
	Open func(url string) error

	// Out receives the consent URL in case the browser does not open.
	Out io.Writer

	// Timeout bounds the wait for the redirect (default: DefaultAuthTimeout)
	Timeout time.Duration
}

// Authorize implements Authorizer.
func (a *LoopbackAuthorizer) Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	addr := a.Addr
	if addr == "" {
		addr = "localhost:0"
	}
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultAuthTimeout
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}

	// Work on a copy so the caller's config keeps its redirect URL.
	local := *conf
	local.RedirectURL = "http://" + ln.Addr().String()
	state := uuid.NewString()

	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)

	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			var res result
			switch {
			case q.Get("state") != state:
				res.err = errors.New("state mismatch in OAuth callback")
			case q.Get("error") != "":
				res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
			case q.Get("code") == "":
				res.err = errors.New("no code in OAuth callback")
			default:
				res.code = q.Get("code")
			}

			if res.err != nil {
				http.Error(w, res.err.Error(), http.StatusBadRequest)
			} else {
				fmt.Fprint(w, "Authorization complete. You can close this window.")
			}

			select {
			case results <- res:
			default:
			}
		}),
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := local.AuthCodeURL(state, oauth2.AccessTypeOffline)
	if a.Out != nil {
		fmt.Fprintf(a.Out, "Open the following URL to authorize mulch:\n%s\n", authURL)
	}
	if a.Open != nil {
		if err := a.Open(authURL); err != nil && a.Out != nil {
			fmt.Fprintf(a.Out, "Could not open browser automatically: %v\n", err)
		}
	}

	var res result
	select {
	case res = <-results:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, fmt.Errorf("authorization timed out after %s", timeout)
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := local.Exchange(ctx, res.code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return tok, nil
}

// PromptAuthorizer prints the consent URL and reads the authorization code
// from In. It suits headless machines where no browser can reach a loopback
// address.
type PromptAuthorizer struct {
	In  io.Reader
	Out io.Writer
}

// Authorize implements Authorizer.
func (a *PromptAuthorizer) Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	authURL := conf.AuthCodeURL(uuid.NewString(), oauth2.AccessTypeOffline)
	fmt.Fprintf(a.Out, "Visit the following URL, then paste the authorization code:\n%s\n> ", authURL)

	line, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return nil, errors.New("no authorization code entered")
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return tok, nil
}
