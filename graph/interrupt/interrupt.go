// Package interrupt defines the payloads exchanged with the caller when a
// session suspends for human input and when it is later resumed.
//
// A suspended node hands the caller an Interrupt describing what needs
// review. The caller answers with a Resume, a tagged union carrying exactly
// one of: an edited draft, free-text feedback, a replacement image URL, or an
// approval. Nodes resolve a Resume into a Choice with ForPost or ForImage,
// which apply a fixed key precedence and reject shapes the pending interrupt
// does not understand with a ProtocolError.
package interrupt

import "fmt"

// Kind identifies which review step produced an Interrupt.
type Kind string

const (
	// KindPost asks the caller to review the generated post draft.
	KindPost Kind = "post"

	// KindImage asks the caller to review the selected image URL.
	KindImage Kind = "image"
)

// Valid reports whether k is a known interrupt kind.
func (k Kind) Valid() bool {
	return k == KindPost || k == KindImage
}

// Interrupt is the wire-level suspend payload: {content: string|null, kind}.
type Interrupt struct {
	// Content is the material under review. Nil when there is nothing to
	// show, e.g. an image search that found no image.
	Content *string `json:"content"`

	// Kind is the review step that suspended.
	Kind Kind `json:"kind"`
}

// New builds an Interrupt of the given kind. The content string is copied so
// the payload never aliases caller state.
func New(kind Kind, content *string) *Interrupt {
	in := &Interrupt{Kind: kind}
	if content != nil {
		c := *content
		in.Content = &c
	}
	return in
}

// Text returns the interrupt content, or "" when it is nil.
func (i *Interrupt) Text() string {
	if i == nil || i.Content == nil {
		return ""
	}
	return *i.Content
}

// Clone returns an independent copy of i.
func (i *Interrupt) Clone() *Interrupt {
	if i == nil {
		return nil
	}
	return New(i.Kind, i.Content)
}

// ProtocolError is returned when a resume value does not match any shape the
// pending interrupt recognizes.
type ProtocolError struct {
	// Kind is the interrupt kind the value was checked against. Empty when
	// the value was rejected before a kind was known (wire decoding).
	Kind Kind

	// Reason describes the mismatch.
	Reason string

	// Cause is the underlying decoding error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("protocol error: %s interrupt: %s", e.Kind, e.Reason)
	}
	return "protocol error: " + e.Reason
}

// Unwrap returns the underlying decoding error.
func (e *ProtocolError) Unwrap() error {
	return e.Cause
}
