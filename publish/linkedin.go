package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	defaultLinkedInAPI     = "https://api.linkedin.com"
	linkedInPostURLPrefix  = "https://www.linkedin.com/feed/update/"
	restliProtocolVersion  = "2.0.0"
	uploadMechanismURLPath = `value.uploadMechanism.com\.linkedin\.digitalmedia\.uploading\.MediaUploadHttpRequest.uploadUrl`
)

// ErrNoAuthor is returned when the access token does not resolve to a
// LinkedIn member.
var ErrNoAuthor = errors.New("linkedin: could not resolve author")

// LinkedIn publishes UGC posts on behalf of the member whose access token
// is passed as the credential.
type LinkedIn struct {
	apiURL string
	base   *http.Client
	logger *slog.Logger
}

// LinkedInOption configures a LinkedIn publisher.
type LinkedInOption func(*LinkedIn)

// WithLinkedInAPI points the publisher at a different API host.
func WithLinkedInAPI(url string) LinkedInOption {
	return func(l *LinkedIn) { l.apiURL = strings.TrimRight(url, "/") }
}

// WithLinkedInHTTPClient sets the underlying HTTP client.
func WithLinkedInHTTPClient(c *http.Client) LinkedInOption {
	return func(l *LinkedIn) { l.base = c }
}

// WithLinkedInLogger sets the publisher's logger.
func WithLinkedInLogger(log *slog.Logger) LinkedInOption {
	return func(l *LinkedIn) {
		if log != nil {
			l.logger = log
		}
	}
}

// NewLinkedIn creates a LinkedIn publisher.
func NewLinkedIn(opts ...LinkedInOption) *LinkedIn {
	l := &LinkedIn{
		apiURL: defaultLinkedInAPI,
		base:   http.DefaultClient,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Publish implements Publisher. When imageURL is set the image is uploaded
// as a feedshare asset first; if that fails the post goes out as text.
func (l *LinkedIn) Publish(ctx context.Context, credential, content, imageURL string) (Result, error) {
	if credential == "" {
		return Result{}, ErrNoCredential
	}
	client := bearerClient(l.base, credential)

	author, err := l.authorURN(ctx, client)
	if err != nil {
		return Result{}, err
	}

	var asset string
	if imageURL != "" {
		asset, err = l.uploadImage(ctx, client, author, imageURL)
		if err != nil {
			l.logger.WarnContext(ctx, "linkedin image upload failed, posting text only", "error", err)
			asset = ""
		}
	}

	id, err := l.createPost(ctx, client, author, content, asset)
	if err != nil {
		return Result{}, err
	}
	res := Result{Success: true}
	if id != "" {
		res.PostURL = linkedInPostURLPrefix + id
	}
	return res, nil
}

func restliHeader() http.Header {
	h := http.Header{}
	h.Set("X-Restli-Protocol-Version", restliProtocolVersion)
	return h
}

func jsonHeader() http.Header {
	h := restliHeader()
	h.Set("Content-Type", "application/json")
	return h
}

// authorURN resolves the member via OpenID userinfo, falling back to the
// classic profile endpoint.
func (l *LinkedIn) authorURN(ctx context.Context, client *http.Client) (string, error) {
	resp, err := send(ctx, client, http.MethodGet, l.apiURL+"/v2/userinfo", nil, restliHeader())
	if err == nil {
		if sub := gjson.GetBytes(resp.body, "sub").String(); sub != "" {
			return "urn:li:person:" + sub, nil
		}
	} else {
		l.logger.DebugContext(ctx, "linkedin userinfo failed", "error", err)
	}

	resp, err = send(ctx, client, http.MethodGet, l.apiURL+"/v2/me", nil, restliHeader())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoAuthor, err)
	}
	if id := gjson.GetBytes(resp.body, "id").String(); id != "" {
		return "urn:li:person:" + id, nil
	}
	return "", ErrNoAuthor
}

func (l *LinkedIn) uploadImage(ctx context.Context, client *http.Client, author, imageURL string) (string, error) {
	register := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{"urn:li:digitalmediaRecipe:feedshare-image"},
			"owner":   author,
			"serviceRelationships": []map[string]string{{
				"relationshipType": "OWNER",
				"identifier":       "urn:li:userGeneratedContent",
			}},
		},
	}
	body, err := json.Marshal(register)
	if err != nil {
		return "", err
	}

	resp, err := send(ctx, client, http.MethodPost, l.apiURL+"/v2/assets?action=registerUpload", bytes.NewReader(body), jsonHeader())
	if err != nil {
		return "", fmt.Errorf("register upload: %w", err)
	}
	uploadURL := gjson.GetBytes(resp.body, uploadMechanismURLPath).String()
	asset := gjson.GetBytes(resp.body, "value.asset").String()
	if uploadURL == "" || asset == "" {
		return "", errors.New("register upload: response missing upload url or asset")
	}

	img, err := send(ctx, l.base, http.MethodGet, imageURL, nil, nil)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}

	h := http.Header{}
	h.Set("Content-Type", "application/octet-stream")
	if _, err := send(ctx, client, http.MethodPut, uploadURL, bytes.NewReader(img.body), h); err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return asset, nil
}

func (l *LinkedIn) createPost(ctx context.Context, client *http.Client, author, content, asset string) (string, error) {
	share := map[string]any{
		"shareCommentary":    map[string]string{"text": content},
		"shareMediaCategory": "NONE",
		"media":              []any{},
	}
	if asset != "" {
		share["shareMediaCategory"] = "IMAGE"
		share["media"] = []any{map[string]any{
			"status":      "READY",
			"description": map[string]string{"text": "Image"},
			"media":       asset,
			"title":       map[string]string{"text": "Image"},
		}}
	}
	post := map[string]any{
		"author":          author,
		"lifecycleState":  "PUBLISHED",
		"specificContent": map[string]any{"com.linkedin.ugc.ShareContent": share},
		"visibility":      map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}
	body, err := json.Marshal(post)
	if err != nil {
		return "", err
	}

	resp, err := send(ctx, client, http.MethodPost, l.apiURL+"/v2/ugcPosts", bytes.NewReader(body), jsonHeader())
	if err != nil {
		return "", fmt.Errorf("create post: %w", err)
	}
	if id := resp.header.Get("X-Restli-Id"); id != "" {
		return id, nil
	}
	return gjson.GetBytes(resp.body, "id").String(), nil
}
