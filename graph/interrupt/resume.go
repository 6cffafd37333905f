package interrupt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Resume is the caller-supplied answer to an Interrupt.
//
// On the wire it is one of {userEdit: string}, {feedback: string},
// {satisfied: true} or {imageUrl: string}. When several keys are present the
// node that consumes the value applies its own precedence (see ForPost and
// ForImage).
type Resume struct {
	UserEdit  *string `json:"userEdit,omitempty" mapstructure:"userEdit"`
	Feedback  *string `json:"feedback,omitempty" mapstructure:"feedback"`
	Satisfied bool    `json:"satisfied,omitempty" mapstructure:"satisfied"`
	ImageURL  *string `json:"imageUrl,omitempty" mapstructure:"imageUrl"`
}

// Edit returns a Resume carrying a replacement draft.
func Edit(text string) Resume { return Resume{UserEdit: &text} }

// Feedback returns a Resume carrying revision feedback.
func Feedback(text string) Resume { return Resume{Feedback: &text} }

// Satisfied returns a Resume approving the current content.
func Satisfied() Resume { return Resume{Satisfied: true} }

// ReplaceImage returns a Resume carrying a replacement image URL.
func ReplaceImage(url string) Resume { return Resume{ImageURL: &url} }

// Empty reports whether no recognized key is set.
func (r Resume) Empty() bool {
	return r.UserEdit == nil && r.Feedback == nil && r.ImageURL == nil && !r.Satisfied
}

// Action is the resolved meaning of a Resume for a specific interrupt.
type Action int

const (
	// ActionEdit replaces the post draft with Choice.Value.
	ActionEdit Action = iota + 1

	// ActionFeedback requests a revision guided by Choice.Value.
	ActionFeedback

	// ActionReplaceImage replaces the image URL with Choice.Value.
	ActionReplaceImage

	// ActionApprove accepts the content as is.
	ActionApprove
)

// String returns a short label used in logs and events.
func (a Action) String() string {
	switch a {
	case ActionEdit:
		return "user_edit"
	case ActionFeedback:
		return "feedback"
	case ActionReplaceImage:
		return "image_url"
	case ActionApprove:
		return "satisfied"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Choice is a Resume resolved against a pending interrupt.
type Choice struct {
	Action Action
	Value  string
}

// ForPost resolves r for a post review. Precedence: userEdit, feedback,
// satisfied. Keys a post review does not understand are ignored when a
// recognized key is present.
func (r Resume) ForPost() (Choice, error) {
	switch {
	case r.UserEdit != nil:
		return Choice{Action: ActionEdit, Value: *r.UserEdit}, nil
	case r.Feedback != nil:
		return Choice{Action: ActionFeedback, Value: *r.Feedback}, nil
	case r.Satisfied:
		return Choice{Action: ActionApprove}, nil
	}
	return Choice{}, &ProtocolError{Kind: KindPost, Reason: "expected one of userEdit, feedback, satisfied"}
}

// ForImage resolves r for an image review. Precedence: imageUrl, satisfied.
func (r Resume) ForImage() (Choice, error) {
	switch {
	case r.ImageURL != nil:
		return Choice{Action: ActionReplaceImage, Value: *r.ImageURL}, nil
	case r.Satisfied:
		return Choice{Action: ActionApprove}, nil
	}
	return Choice{}, &ProtocolError{Kind: KindImage, Reason: "expected one of imageUrl, satisfied"}
}

// For resolves r against the given interrupt kind.
func (r Resume) For(kind Kind) (Choice, error) {
	switch kind {
	case KindPost:
		return r.ForPost()
	case KindImage:
		return r.ForImage()
	default:
		return Choice{}, &ProtocolError{Kind: kind, Reason: "unknown interrupt kind"}
	}
}

// Parse decodes a wire-level resume object. Unknown keys, wrongly typed
// values, a satisfied value other than true and an object with no recognized
// key are all rejected with a *ProtocolError.
func Parse(raw map[string]any) (Resume, error) {
	if len(raw) == 0 {
		return Resume{}, &ProtocolError{Reason: "empty resume value"}
	}
	if v, ok := raw["satisfied"]; ok {
		if b, isBool := v.(bool); !isBool || !b {
			return Resume{}, &ProtocolError{Reason: fmt.Sprintf("satisfied must be true, got %v", v)}
		}
	}

	var r Resume
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &r,
	})
	if err != nil {
		return Resume{}, fmt.Errorf("create resume decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return Resume{}, &ProtocolError{Reason: "unrecognized resume shape (keys: " + keyList(raw) + ")", Cause: err}
	}
	if r.Empty() {
		return Resume{}, &ProtocolError{Reason: "no recognized key (keys: " + keyList(raw) + ")"}
	}
	return r, nil
}

// ParseTagged maps the transport's {response_type, response_data} pair onto a
// Resume. Recognized types are user_edit, feedback, satisfied and image_url.
// A satisfied response accepts true or no data.
func ParseTagged(responseType string, data any) (Resume, error) {
	switch responseType {
	case "user_edit", "feedback", "image_url":
		s, ok := data.(string)
		if !ok {
			return Resume{}, &ProtocolError{Reason: fmt.Sprintf("%s requires a string, got %T", responseType, data)}
		}
		switch responseType {
		case "user_edit":
			return Edit(s), nil
		case "feedback":
			return Feedback(s), nil
		default:
			return ReplaceImage(s), nil
		}
	case "satisfied":
		if data == nil {
			return Satisfied(), nil
		}
		if b, ok := data.(bool); ok && b {
			return Satisfied(), nil
		}
		return Resume{}, &ProtocolError{Reason: fmt.Sprintf("satisfied must be true, got %v", data)}
	default:
		return Resume{}, &ProtocolError{Reason: fmt.Sprintf("invalid response type %q", responseType)}
	}
}

func keyList(raw map[string]any) string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
