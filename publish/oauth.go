package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

// Token is the result of an authorization code exchange.
type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// LinkedInOAuth exchanges LinkedIn authorization codes for access tokens.
type LinkedInOAuth struct {
	config oauth2.Config
	client *http.Client
}

// OAuthOption configures a LinkedInOAuth.
type OAuthOption func(*LinkedInOAuth)

// WithTokenURL overrides the token endpoint.
func WithTokenURL(url string) OAuthOption {
	return func(o *LinkedInOAuth) {
		o.config.Endpoint = oauth2.Endpoint{TokenURL: url, AuthStyle: oauth2.AuthStyleInParams}
	}
}

// WithOAuthHTTPClient sets the client used to reach the token endpoint.
func WithOAuthHTTPClient(c *http.Client) OAuthOption {
	return func(o *LinkedInOAuth) { o.client = c }
}

// NewLinkedInOAuth creates an exchanger for the given app credentials.
func NewLinkedInOAuth(clientID, clientSecret, redirectURL string, opts ...OAuthOption) *LinkedInOAuth {
	o := &LinkedInOAuth{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     linkedin.Endpoint,
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Configured reports whether client credentials are present.
func (o *LinkedInOAuth) Configured() bool {
	return o.config.ClientID != "" && o.config.ClientSecret != ""
}

// Exchange trades an authorization code for an access token.
func (o *LinkedInOAuth) Exchange(ctx context.Context, code string) (Token, error) {
	if code == "" {
		return Token{}, errors.New("authorization code is required")
	}
	if !o.Configured() {
		return Token{}, fmt.Errorf("linkedin oauth: %w", ErrNoCredential)
	}
	if o.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.client)
	}

	tok, err := o.config.Exchange(ctx, code)
	if err != nil {
		return Token{}, fmt.Errorf("linkedin oauth exchange: %w", err)
	}
	return Token{AccessToken: tok.AccessToken, ExpiresIn: tok.ExpiresIn}, nil
}
