package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	defaultTwitterAPI    = "https://api.twitter.com"
	twitterStatusURLBase = "https://twitter.com/i/web/status/"
)

// Twitter publishes tweets through the v2 API with an OAuth 2.0 bearer
// token. The session credential takes precedence over the configured one.
//
// Images are not uploaded; the image URL is appended to the text so the
// platform renders a preview.
type Twitter struct {
	apiURL string
	token  string
	base   *http.Client
}

// TwitterOption configures a Twitter publisher.
type TwitterOption func(*Twitter)

// WithTwitterAPI points the publisher at a different API host.
func WithTwitterAPI(url string) TwitterOption {
	return func(t *Twitter) { t.apiURL = strings.TrimRight(url, "/") }
}

// WithTwitterHTTPClient sets the underlying HTTP client.
func WithTwitterHTTPClient(c *http.Client) TwitterOption {
	return func(t *Twitter) { t.base = c }
}

// NewTwitter creates a Twitter publisher. token is the fallback bearer
// token used when a session carries no credential of its own.
func NewTwitter(token string, opts ...TwitterOption) *Twitter {
	t := &Twitter{apiURL: defaultTwitterAPI, token: token, base: http.DefaultClient}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Publish implements Publisher.
func (t *Twitter) Publish(ctx context.Context, credential, content, imageURL string) (Result, error) {
	token := credential
	if token == "" {
		token = t.token
	}
	if token == "" {
		return Result{}, ErrNoCredential
	}

	text := content
	if imageURL != "" {
		text = strings.TrimRight(content, "\n") + "\n" + imageURL
	}
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Result{}, err
	}

	h := http.Header{}
	h.Set("Content-Type", "application/json")
	resp, err := send(ctx, bearerClient(t.base, token), http.MethodPost, t.apiURL+"/2/tweets", bytes.NewReader(body), h)
	if err != nil {
		return Result{}, fmt.Errorf("create tweet: %w", err)
	}

	id := gjson.GetBytes(resp.body, "data.id").String()
	if id == "" {
		return Result{}, errors.New("create tweet: response has no id")
	}
	return Result{Success: true, PostURL: twitterStatusURLBase + id}, nil
}
