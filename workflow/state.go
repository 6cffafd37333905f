// Package workflow defines the post-authoring workflow: its state, the
// seven nodes that research, draft, review and publish a post, and the
// graph that connects them.
package workflow

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dshills/postgraph/graph/model"
)

// Platform is a publishing destination.
type Platform string

// Supported platforms.
const (
	Twitter  Platform = "twitter"
	LinkedIn Platform = "linkedin"
)

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	return p == Twitter || p == LinkedIn
}

// State is the workflow state carried through a session and persisted in
// every checkpoint.
type State struct {
	// Messages is the append-only conversation with the chat model.
	Messages []model.Message `json:"messages"`

	Topic       string   `json:"topic,omitempty"`
	URL         string   `json:"url,omitempty"`
	Platform    Platform `json:"platform"`
	ImageWanted bool     `json:"image_wanted"`

	// Credential is the opaque per-session publishing credential, such as a
	// LinkedIn access token.
	Credential string `json:"credential,omitempty"`

	PostDraft     string  `json:"post_draft"`
	ImageURL      *string `json:"image_url"`
	FeedbackText  *string `json:"feedback_text"`
	UploadSuccess bool    `json:"upload_success"`
	PostURL       *string `json:"post_url"`
}

// Input is the caller's request to start a session.
type Input struct {
	Topic       string `json:"topic"`
	URL         string `json:"url"`
	Platform    string `json:"platform"`
	ImageWanted bool   `json:"image_wanted"`
	Credential  string `json:"linkedin_access_token"`
}

// ValidationError lists every problem with an Input.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Problems, "; ")
}

// NewState validates in and returns the initial State. At least one of
// topic and URL must be set, the URL must be absolute http(s) and the
// platform must be supported.
func NewState(in Input) (State, error) {
	var problems []string

	topic := strings.TrimSpace(in.Topic)
	rawURL := strings.TrimSpace(in.URL)
	if topic == "" && rawURL == "" {
		problems = append(problems, "either topic or url must be provided")
	}
	if rawURL != "" {
		u, err := url.Parse(rawURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			problems = append(problems, fmt.Sprintf("invalid url %q", rawURL))
		}
	}

	platform := Platform(strings.ToLower(strings.TrimSpace(in.Platform)))
	if !platform.Valid() {
		problems = append(problems, fmt.Sprintf("platform must be %q or %q, got %q", Twitter, LinkedIn, in.Platform))
	}

	if len(problems) > 0 {
		return State{}, &ValidationError{Problems: problems}
	}
	return State{
		Messages:    []model.Message{},
		Topic:       topic,
		URL:         rawURL,
		Platform:    platform,
		ImageWanted: in.ImageWanted,
		Credential:  in.Credential,
	}, nil
}

// Source is the research input: the URL when set, otherwise the topic.
func (s State) Source() string {
	if s.URL != "" {
		return s.URL
	}
	return s.Topic
}

// Completion is the externally visible result of a finished session.
type Completion struct {
	PostDraft     string  `json:"post_draft"`
	ImageURL      *string `json:"image_url"`
	UploadSuccess bool    `json:"upload_success"`
	PostURL       *string `json:"post_url"`
}

// Completion extracts the completion fields from s.
func (s State) Completion() Completion {
	return Completion{
		PostDraft:     s.PostDraft,
		ImageURL:      s.ImageURL,
		UploadSuccess: s.UploadSuccess,
		PostURL:       s.PostURL,
	}
}

func ptr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
