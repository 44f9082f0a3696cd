package gcal

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"coursecal/internal/apperr"
	appLog "coursecal/internal/log"
)

// ConsentFunc runs the interactive consent flow and returns the
// authorization code the user granted.
type ConsentFunc func(ctx context.Context, oc *oauth2.Config) (string, error)

// LoadOAuthConfig reads a Google "installed app" client secret file.
func LoadOAuthConfig(clientSecretPath string) (*oauth2.Config, error) {
	data, err := os.ReadFile(clientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read client secret: %v", apperr.ErrAuthenticationFailed, err)
	}
	oc, err := google.ConfigFromJSON(data, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("%w: parse client secret: %v", apperr.ErrAuthenticationFailed, err)
	}
	return oc, nil
}

// Authorize returns a cached token from store, or runs consent and caches
// the token it yields.
func Authorize(ctx context.Context, oc *oauth2.Config, store TokenStore, consent ConsentFunc) (*oauth2.Token, error) {
	tok, err := store.Load()
	if err == nil {
		appLog.Debug("calendar token loaded from cache")
		return tok, nil
	}
	if !errors.Is(err, ErrNoToken) {
		appLog.Error("calendar token cache unreadable, re-authorizing", err)
	}

	code, err := consent(ctx, oc)
	if err != nil {
		return nil, fmt.Errorf("%w: consent: %w", apperr.ErrAuthenticationFailed, err)
	}
	tok, err = oc.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange code: %v", apperr.ErrAuthenticationFailed, err)
	}
	if err := store.Save(tok); err != nil {
		// The token still works for this run.
		appLog.Error("failed to cache calendar token", err)
	}
	return tok, nil
}

// LoopbackConsent serves the OAuth redirect on listen (e.g.
// "127.0.0.1:8085"), prints the consent URL and waits for the browser to
// come back with a code.
func LoopbackConsent(listen string) ConsentFunc {
	return func(ctx context.Context, oc *oauth2.Config) (string, error) {
		ln, err := net.Listen("tcp", listen)
		if err != nil {
			return "", err
		}

		state, err := randomState()
		if err != nil {
			ln.Close()
			return "", err
		}

		cfg := *oc
		cfg.RedirectURL = "http://" + ln.Addr().String() + "/"

		type result struct {
			code string
			err  error
		}
		done := make(chan result, 1)

		srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			switch {
			case q.Get("state") != state:
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			case q.Get("error") != "":
				fmt.Fprintln(w, "Authorization denied. You can close this window.")
				select {
				case done <- result{err: errors.New(q.Get("error"))}:
				default:
				}
				return
			}
			fmt.Fprintln(w, "Authorization completed. You can close this window.")
			select {
			case done <- result{code: q.Get("code")}:
			default:
			}
		})}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				select {
				case done <- result{err: err}:
				default:
				}
			}
		}()
		defer srv.Shutdown(context.Background())

		// Exchange must send the same redirect URI.
		*oc = cfg
		authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
		fmt.Printf("Open the following link in your browser to authorize calendar access:\n%s\n", authURL)

		select {
		case res := <-done:
			if res.err == nil && res.code == "" {
				return "", errors.New("redirect carried no code")
			}
			return res.code, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
