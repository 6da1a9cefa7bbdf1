// Package coap holds the message model shared by the client and the
// loopback server, together with a minimal wire codec. The client core
// depends on the Codec interface only; the shipped codec is the default
// collaborator, not part of the client contract.
package coap

import (
	"fmt"
	"strings"
)

var (
	ErrMissingCode = fmt.Errorf("message has no code")
	ErrEmptyPath   = fmt.Errorf("message has no path segments")
	ErrBadSegment  = fmt.Errorf("empty path segment")
)

// Message is one protocol unit, outbound or inbound. Requests are owned
// by the caller until submitted and must not be mutated afterwards.
type Message struct {
	// Type is the message type (Confirmable, NonConfirmable, ...)
	Type Type

	// Code is the method code of a request or the response code of a reply
	Code Code

	// MessageID identifies the datagram for deduplication and acks
	MessageID uint16

	// Token correlates a response with its request
	Token []byte

	// Path is the ordered list of Uri-Path segments
	Path []string

	// Payload is the opaque message body
	Payload []byte
}

// NewGET builds a confirmable GET request for the given path segments.
// Token and MessageID are assigned by the endpoint on submission.
func NewGET(path []string) *Message {
	return &Message{
		Type: Confirmable,
		Code: GET,
		Path: path,
	}
}

// PathString returns the path as a /-separated string.
func (m *Message) PathString() string {
	return strings.Join(m.Path, "/")
}

// Validate checks the submission invariants of a request: a method code
// and a non-empty path of non-empty segments. Violations are programmer
// errors, not transport outcomes.
func (m *Message) Validate() error {
	if m.Code == 0 {
		return ErrMissingCode
	}

	if len(m.Path) == 0 {
		return ErrEmptyPath
	}

	for _, segment := range m.Path {
		if segment == "" {
			return ErrBadSegment
		}
	}

	return nil
}
