package api

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed taxonomy from SPEC_FULL.md §7. Every user-visible
// REST/SSE error carries one of these.
type ErrorKind string

const (
	KindConfigInvalid        ErrorKind = "config_invalid"
	KindSpawnFailed          ErrorKind = "spawn_failed"
	KindHandshakeFailed      ErrorKind = "handshake_failed"
	KindTransportError       ErrorKind = "transport_error"
	KindTimeout              ErrorKind = "timeout"
	KindNotFound             ErrorKind = "not_found"
	KindUpstreamError        ErrorKind = "upstream_error"
	KindSessionClosed        ErrorKind = "session_closed"
	KindFatal                ErrorKind = "fatal"
	KindUpstreamUnavailable  ErrorKind = "upstream_unavailable"
)

// GatewayError is a classified error that can be rendered as
// {error:{kind,message}} at an API boundary without leaking internals.
type GatewayError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error { return e.Err }

// NewError builds a GatewayError, optionally wrapping a cause.
func NewError(kind ErrorKind, message string, cause error) *GatewayError {
	return &GatewayError{Kind: kind, Message: message, Err: cause}
}

// KindOf extracts the ErrorKind from err, defaulting to KindFatal for
// unclassified errors so nothing falls through without a taxonomy label.
func KindOf(err error) ErrorKind {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindFatal
}

// NotFoundError reports an unknown prefixed tool/resource/prompt id.
type NotFoundError struct {
	Kind string // "tool", "resource", "prompt", "server"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NewToolNotFoundError builds a not_found GatewayError, worded by
// NotFoundError, for an unresolved tool id.
func NewToolNotFoundError(id string) error {
	return NewError(KindNotFound, (&NotFoundError{Kind: "tool", ID: id}).Error(), nil)
}

// NewResourceNotFoundError builds a not_found GatewayError for an unresolved
// resource id.
func NewResourceNotFoundError(id string) error {
	return NewError(KindNotFound, (&NotFoundError{Kind: "resource", ID: id}).Error(), nil)
}

// NewPromptNotFoundError builds a not_found GatewayError for an unresolved
// prompt id.
func NewPromptNotFoundError(id string) error {
	return NewError(KindNotFound, (&NotFoundError{Kind: "prompt", ID: id}).Error(), nil)
}

// NewServerNotFoundError builds a not_found GatewayError for an unknown
// server name.
func NewServerNotFoundError(name string) error {
	return NewError(KindNotFound, (&NotFoundError{Kind: "server", ID: name}).Error(), nil)
}

// IsNotFound reports whether err (or anything it wraps) is a not_found
// GatewayError.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
