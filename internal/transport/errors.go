package transport

import (
	"errors"
	"fmt"
	"strings"
)

// ErrClosed is returned when a call is made on a closed Transport
var ErrClosed = errors.New("transport closed")

// ErrNoFileEndpoint is returned by Download when no file endpoint is configured
var ErrNoFileEndpoint = errors.New("file endpoint not configured")

// TransportError is a network level failure: connection refused, timeout, DNS and the like.
// Its message never contains the bot token; the wrapped error is left as is.
type TransportError struct {
	Op  string
	Err error

	secret string
}

// Error implements the error interface
func (e *TransportError) Error() string {
	msg := e.Err.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	return redact(msg, e.secret)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ResponseParameters describes why a request failed and how to recover
type ResponseParameters struct {
	MigrateToChatID int64 `json:"migrate_to_chat_id,omitempty"`
	RetryAfter      int   `json:"retry_after,omitempty"`
}

// ProtocolError is returned when the remote answers with a status outside the
// accepted set, or with an envelope that reports ok:false
type ProtocolError struct {
	StatusCode  int
	Description string
	Parameters  *ResponseParameters
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Description)
}

// DecodeError is returned when a response body could not be decoded
type DecodeError struct {
	Err error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return "failed to decode response: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// redact replaces every occurrence of secret in s
func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "<redacted>")
}

// IsTransportError reports whether err is, or wraps, a *TransportError
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
