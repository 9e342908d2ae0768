package transport

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrEmptyBody is returned when a response to decode has no content
var ErrEmptyBody = errors.New("empty response body")

// Envelope is the wrapper the Bot API puts around every method result
type Envelope struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Description string              `json:"description,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// ParseEnvelope parses an API envelope from bytes
func ParseEnvelope(data []byte) (*Envelope, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyBody
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// ResultIsNull returns true if the envelope result is missing or JSON null
func (e *Envelope) ResultIsNull() bool {
	if e == nil || len(e.Result) == 0 {
		return true
	}
	return bytes.Equal(e.Result, []byte("null"))
}

// Err converts an ok:false envelope into a *ProtocolError, nil otherwise
func (e *Envelope) Err(statusCode int) error {
	if e.OK {
		return nil
	}
	code := e.ErrorCode
	if code == 0 {
		code = statusCode
	}
	return &ProtocolError{
		StatusCode:  code,
		Description: e.Description,
		Parameters:  e.Parameters,
	}
}

// GetResultAs unmarshals the result into the provided type
func (e *Envelope) GetResultAs(v any) error {
	if e.ResultIsNull() {
		return nil
	}
	return json.Unmarshal(e.Result, v)
}
