package tool

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/dshills/postgraph/graph/model"
)

const (
	// TavilySearchName is the tool name advertised to chat models.
	TavilySearchName = "tavily_search"

	defaultTavilyURL = "https://api.tavily.com"

	noContent        = "No content found."
	noContentFromURL = "No content found from URL."
)

// Tavily is a client for the Tavily search and extract APIs.
//
// As a Tool it answers {"query": ...}: an http(s) URL is extracted, any
// other text is searched. It is safe for concurrent use; requests share one
// rate limiter.
type Tavily struct {
	apiKey  string
	baseURL string
	base    *http.Client
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// TavilyOption configures a Tavily client.
type TavilyOption func(*Tavily)

// WithBaseURL points the client at a different API host.
func WithBaseURL(url string) TavilyOption {
	return func(t *Tavily) { t.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets the transport the bearer-token client is layered on.
func WithHTTPClient(c *http.Client) TavilyOption {
	return func(t *Tavily) { t.base = c }
}

// WithRateLimit caps outgoing requests to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) TavilyOption {
	return func(t *Tavily) { t.limiter = rate.NewLimiter(r, burst) }
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *slog.Logger) TavilyOption {
	return func(t *Tavily) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTavily creates a client authenticated with apiKey.
func NewTavily(apiKey string, opts ...TavilyOption) *Tavily {
	t := &Tavily{
		apiKey:  apiKey,
		baseURL: defaultTavilyURL,
		base:    http.DefaultClient,
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, t.base)
	t.client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: apiKey,
		TokenType:   "Bearer",
	}))
	return t
}

// Name implements Tool.
func (t *Tavily) Name() string { return TavilySearchName }

// Spec implements Describer.
func (t *Tavily) Spec() model.ToolSpec {
	return model.ToolSpec{
		Name:        TavilySearchName,
		Description: "Search the web for a topic or extract article from a URL using Tavily.",
		Schema:      querySchema(),
	}
}

func querySchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "A search query, or an http(s) URL to extract",
			},
		},
		"required": []interface{}{"query"},
	}
}

// Call implements Tool. The result is {"content": text}.
func (t *Tavily) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	query, _ := input["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%s: query parameter required (string)", TavilySearchName)
	}

	content, err := t.SearchOrExtract(ctx, query)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"content": content}, nil
}

// SearchOrExtract extracts the page when query is an http(s) URL and runs
// an advanced web search otherwise.
func (t *Tavily) SearchOrExtract(ctx context.Context, query string) (string, error) {
	if strings.HasPrefix(query, "http://") || strings.HasPrefix(query, "https://") {
		return t.Extract(ctx, query)
	}
	return t.Search(ctx, query)
}

// Search returns Tavily's synthesized answer, else the top two results
// formatted as text.
func (t *Tavily) Search(ctx context.Context, query string) (string, error) {
	body, _ := sjson.SetBytes(nil, "query", query)
	body, _ = sjson.SetBytes(body, "search_depth", "advanced")
	body, _ = sjson.SetBytes(body, "max_results", 2)

	payload, err := t.post(ctx, "/search", body)
	if err != nil {
		return "", err
	}

	if answer := gjson.GetBytes(payload, "answer").String(); answer != "" {
		return answer, nil
	}

	var parts []string
	gjson.GetBytes(payload, "results").ForEach(func(_, r gjson.Result) bool {
		var b strings.Builder
		for _, field := range []string{"title", "url", "content"} {
			if v := r.Get(field).String(); v != "" {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString(v)
			}
		}
		if b.Len() > 0 {
			parts = append(parts, b.String())
		}
		return true
	})
	if len(parts) == 0 {
		return noContent, nil
	}
	return strings.Join(parts, "\n\n"), nil
}

// Extract returns the raw content of the page at url.
func (t *Tavily) Extract(ctx context.Context, url string) (string, error) {
	body, _ := sjson.SetBytes(nil, "urls", []string{url})
	body, _ = sjson.SetBytes(body, "include_raw_content", true)

	payload, err := t.post(ctx, "/extract", body)
	if err != nil {
		return "", err
	}

	results := gjson.GetBytes(payload, "results").Array()
	if len(results) == 0 {
		return noContent, nil
	}
	if raw := results[0].Get("raw_content").String(); raw != "" {
		return raw, nil
	}
	return noContentFromURL, nil
}

// SearchImage returns the first image URL found for query, or "" when
// there is none.
func (t *Tavily) SearchImage(ctx context.Context, query string) (string, error) {
	body, _ := sjson.SetBytes(nil, "query", query)
	body, _ = sjson.SetBytes(body, "search_depth", "basic")
	body, _ = sjson.SetBytes(body, "include_images", true)

	payload, err := t.post(ctx, "/search", body)
	if err != nil {
		return "", err
	}

	first := gjson.GetBytes(payload, "images.0")
	if first.IsObject() {
		return first.Get("url").String(), nil
	}
	return first.String(), nil
}

func (t *Tavily) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	if t.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	t.logger.DebugContext(ctx, "tavily request", "path", path)
	payload, err := postJSON(ctx, t.client, t.baseURL+path, body)
	if err != nil {
		t.logger.WarnContext(ctx, "tavily request failed", "path", path, "error", err)
		return nil, err
	}
	return payload, nil
}
