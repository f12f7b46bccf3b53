package llm

import "strings"

// Role identifies the message sender.
type Role string

// Standard message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MediaTypePDF is the content type of pitch-deck documents.
const MediaTypePDF = "application/pdf"

// MediaTypeText is the content type of plain-text documents.
const MediaTypeText = "text/plain"

// PartKind discriminates the variants of Part.
type PartKind string

// Part kinds.
const (
	PartText     PartKind = "text"
	PartDocument PartKind = "document"
)

// Part is one element of a message: either text or a reference to a
// document held by a document store.
type Part struct {
	Kind PartKind `json:"kind"`

	// Text is set for PartText.
	Text string `json:"text,omitempty"`

	// Document is set for PartDocument.
	Document *DocumentRef `json:"document,omitempty"`
}

// DocumentRef points at a stored document. Ref is opaque to this package
// and resolved by a DocumentSource.
type DocumentRef struct {
	Ref       string `json:"ref"`
	MediaType string `json:"media_type"`
}

// TextPart returns a text part.
func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

// DocumentPart returns a part referring to a stored document.
func DocumentPart(ref, mediaType string) Part {
	return Part{Kind: PartDocument, Document: &DocumentRef{Ref: ref, MediaType: mediaType}}
}

// Message is a conversation turn.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// UserMessage returns a user turn made of parts.
func UserMessage(parts ...Part) Message {
	return Message{Role: RoleUser, Parts: parts}
}

// AssistantMessage returns an assistant turn holding text.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Parts: []Part{TextPart(text)}}
}

// Text concatenates the text parts of the message.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Kind == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// Documents returns the document references in the message, in order.
func (m Message) Documents() []DocumentRef {
	var refs []DocumentRef
	for _, p := range m.Parts {
		if p.Kind == PartDocument && p.Document != nil {
			refs = append(refs, *p.Document)
		}
	}
	return refs
}
