// Package auth implements the Pocket OAuth flow: obtaining a request token,
// building the browser-facing authorization URL, and exchanging the request
// token for a long-lived access token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/deanhewson/obsidian-pocket/pkg/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestTokenEndpoint = "/v3/oauth/request"
	accessTokenEndpoint  = "/v3/oauth/authorize"

	authorizeURLFormat = "https://getpocket.com/auth/authorize?request_token=%s&redirect_uri=%s"
)

// ErrNoRequestToken is returned by AccessToken when no request token is
// pending: either RequestToken was never called, or a previous exchange
// already consumed it. This is a caller protocol violation, not retryable.
var ErrNoRequestToken = errors.New("no stored request token")

// Authorization is the credential pair returned by a completed exchange.
type Authorization struct {
	AccessToken string
	Username    string
}

// Session holds the transient state of one authorization flow: the pending
// request token between the RequestToken and AccessToken calls. The caller
// owns the Session and threads it through both calls. A Session is safe for
// concurrent use, though Pocket's flow is inherently sequential.
type Session struct {
	transport   api.Transport
	consumerKey string
	logger      zerolog.Logger

	mu           sync.Mutex
	requestToken string
}

// NewSession creates an authorization session for the given consumer key.
func NewSession(transport api.Transport, consumerKey string) *Session {
	return &Session{
		transport:   transport,
		consumerKey: consumerKey,
		logger:      log.With().Str("component", "pocket-auth").Logger(),
	}
}

// RequestToken obtains a short-lived request token and stores it as the
// session's pending token. Requesting a new token while one is outstanding
// is logged as a warning and overwrites the old one.
func (s *Session) RequestToken(ctx context.Context, redirectURI string) (string, error) {
	fields := url.Values{}
	fields.Set("consumer_key", s.consumerKey)
	fields.Set("redirect_uri", redirectURI)

	body, err := s.transport.PostForm(ctx, requestTokenEndpoint, fields)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return "", fmt.Errorf("parse request token response: %w", err)
	}

	code := values.Get("code")
	if code == "" {
		return "", fmt.Errorf("%w: code", api.ErrMissingField)
	}

	s.mu.Lock()
	if s.requestToken != "" {
		s.logger.Warn().Msg("Overwriting outstanding request token")
	}
	s.requestToken = code
	s.mu.Unlock()

	return code, nil
}

// AuthorizationURL formats the Pocket consent page URL the user must visit
// to authorize the application. Pure string interpolation, no validation.
func (s *Session) AuthorizationURL(requestToken, redirectURI string) string {
	return fmt.Sprintf(authorizeURLFormat, requestToken, redirectURI)
}

// AccessToken exchanges the pending request token for a long-lived access
// token. The pending token is consumed on success; transport failures leave
// it in place so the exchange can be retried.
func (s *Session) AccessToken(ctx context.Context) (Authorization, error) {
	s.mu.Lock()
	code := s.requestToken
	s.mu.Unlock()

	if code == "" {
		return Authorization{}, ErrNoRequestToken
	}

	fields := url.Values{}
	fields.Set("consumer_key", s.consumerKey)
	fields.Set("code", code)

	body, err := s.transport.PostForm(ctx, accessTokenEndpoint, fields)
	if err != nil {
		return Authorization{}, fmt.Errorf("access token: %w", err)
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return Authorization{}, fmt.Errorf("parse access token response: %w", err)
	}

	accessToken := values.Get("access_token")
	if accessToken == "" {
		return Authorization{}, fmt.Errorf("%w: access_token", api.ErrMissingField)
	}

	s.mu.Lock()
	s.requestToken = ""
	s.mu.Unlock()

	username := values.Get("username")
	s.logger.Info().Str("username", username).Msg("Access token acquired")

	return Authorization{
		AccessToken: accessToken,
		Username:    username,
	}, nil
}
