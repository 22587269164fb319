package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("request rejected")
	ErrServer       = errors.New("server error")
)

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() []error { return []error{ErrUnavailable, e.Err} }

// AuthError means the session could not be (re)authenticated. When it comes
// from a failed refresh the session has already been cleared.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unauthorized: %s: %v", e.Reason, e.Err)
	}
	return "unauthorized: " + e.Reason
}

func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnauthorized}
	}
	return []error{ErrUnauthorized, e.Err}
}

// ValidationError is a 4xx response other than 401. Payload is the raw body.
type ValidationError struct {
	Status  int
	Payload []byte
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("request rejected (%d): %s", e.Status, payloadMessage(e.Payload))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Message extracts a human readable message from the payload.
func (e *ValidationError) Message() string { return payloadMessage(e.Payload) }

// ServerError is a 5xx response. Payload is the raw body.
type ServerError struct {
	Status  int
	Payload []byte
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, payloadMessage(e.Payload))
}

func (e *ServerError) Unwrap() error { return ErrServer }

func (e *ServerError) Message() string { return payloadMessage(e.Payload) }

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool { return errors.Is(err, ErrUnauthorized) }

// IsValidation reports whether err is a 4xx rejection.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err is a 404 rejection.
func IsNotFound(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Status == 404
}

func payloadMessage(p []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(p, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	s := strings.TrimSpace(string(p))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
