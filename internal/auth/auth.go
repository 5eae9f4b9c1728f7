// Package auth runs the interactive OAuth grant used by the Google and
// Outlook providers and persists the resulting tokens.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
	"google.golang.org/api/calendar/v3"

	"github.com/theakshaypant/meetbar/internal/core"
)

const (
	RedirectPort = "8085"
	RedirectURL  = "http://localhost:" + RedirectPort + "/callback"

	// DefaultTimeout bounds how long the flow waits for the browser callback.
	DefaultTimeout = 5 * time.Minute
)

// ErrAccessDenied is returned when the user declines the consent screen.
var ErrAccessDenied = errors.New("authorization denied by user")

// Flow obtains a token for config interactively.
type Flow interface {
	Token(ctx context.Context, config *oauth2.Config, providerName string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// LocalServer is the browser + loopback-callback Flow.
type LocalServer struct {
	Addr    string
	Timeout time.Duration
	Opener  core.Opener
	// Out receives the human-readable prompts; nil discards them.
	Out io.Writer
	Log zerolog.Logger
}

// NewLocalServer returns a flow listening on the standard redirect port.
func NewLocalServer(opener core.Opener, out io.Writer, log zerolog.Logger) *LocalServer {
	if out == nil {
		out = io.Discard
	}
	return &LocalServer{
		Addr:    ":" + RedirectPort,
		Timeout: DefaultTimeout,
		Opener:  opener,
		Out:     out,
		Log:     log.With().Str("component", "auth").Logger(),
	}
}

type callbackResult struct {
	code string
	err  error
}

// callbackHandler serves the OAuth redirect and reports the first result.
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("state") != state:
			res.err = fmt.Errorf("authorization failed: state mismatch")
		case q.Get("error") == "access_denied":
			res.err = ErrAccessDenied
		case q.Get("code") == "":
			res.err = fmt.Errorf("authorization failed: %s", q.Get("error"))
		default:
			res.code = q.Get("code")
		}

		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, successPage)
		}

		select {
		case results <- res:
		default:
		}
	})
	return mux
}

// Token starts the callback server, opens the consent page and exchanges
// the returned code.
func (f *LocalServer) Token(ctx context.Context, config *oauth2.Config, providerName string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	state := uuid.NewString()
	results := make(chan callbackResult, 1)

	cfg := *config
	cfg.RedirectURL = RedirectURL

	server := &http.Server{
		Addr:              f.Addr,
		Handler:           callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case results <- callbackResult{err: fmt.Errorf("callback server: %w", err)}:
			default:
			}
		}
	}()
	defer server.Shutdown(context.Background())

	authURL := cfg.AuthCodeURL(state, opts...)
	fmt.Fprintf(f.Out, "🔐 Opening browser for %s authorization...\n\n", providerName)
	if f.Opener == nil || f.Opener.Open(authURL) != nil {
		fmt.Fprintln(f.Out, "⚠️  Couldn't open browser automatically.")
		fmt.Fprintln(f.Out, "   Please open this URL manually:")
		fmt.Fprintln(f.Out, authURL)
	}
	fmt.Fprintln(f.Out, "⏳ Waiting for authorization...")
	f.Log.Debug().Str("provider", providerName).Msg("waiting for oauth callback")

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var code string
	select {
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		code = res.code
	case <-timer.C:
		return nil, fmt.Errorf("timeout waiting for authorization")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tok, nil
}

// GoogleConfig reads an OAuth client file downloaded from the Google console.
func GoogleConfig(credsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", core.ErrNoCredentials, credsFile)
		}
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	config.RedirectURL = RedirectURL
	return config, nil
}

// OutlookConfig is the Microsoft identity platform config for an app
// registration. An empty tenant means "common".
func OutlookConfig(clientID, tenantID string) *oauth2.Config {
	if tenantID == "" {
		tenantID = "common"
	}
	return &oauth2.Config{
		ClientID:    clientID,
		Endpoint:    microsoft.AzureADEndpoint(tenantID),
		RedirectURL: RedirectURL,
		Scopes: []string{
			"https://graph.microsoft.com/Calendars.Read",
			"https://graph.microsoft.com/User.Read",
			"offline_access",
		},
	}
}

// TokenFromFile reads an OAuth token from a JSON file.
func TokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", path, err)
	}
	return tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

const successPage = `<!DOCTYPE html>
<html>
<head>
	<title>Authorization Successful</title>
	<style>
		body { font-family: -apple-system, sans-serif; display: flex;
		       justify-content: center; align-items: center; height: 100vh;
		       margin: 0; background: #1a1a1a; color: #fff; }
		.card { background: #2d2d2d; padding: 40px; border-radius: 12px;
		        box-shadow: 0 2px 10px rgba(0,0,0,0.3); text-align: center; }
		h1 { color: #4ade80; margin-bottom: 10px; }
		p { color: #a1a1aa; }
	</style>
</head>
<body>
	<div class="card">
		<h1>meetbar is connected</h1>
		<p>You can close this window.</p>
	</div>
</body>
</html>
`
