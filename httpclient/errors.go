package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a normalized request failure.
type Kind int

const (
	// KindTransport means the request never reached the server or the
	// response never arrived (connection refused, DNS failure, timeout).
	KindTransport Kind = iota

	// KindHTTP means the server answered with a non-2xx status. Status and
	// Data carry the response.
	KindHTTP

	// KindApplication means the failure happened on our side of the wire:
	// building the request, encoding the payload, or decoding the response.
	KindApplication
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTTP:
		return "http"
	case KindApplication:
		return "application"
	default:
		return "unknown"
	}
}

// Error is the normalized failure shape every request error resolves to
// before reaching a consumer. The cache engine stores it verbatim.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Status is the HTTP status code for KindHTTP errors, 0 otherwise.
	Status int

	// Data is the raw response body for KindHTTP errors.
	Data json.RawMessage

	// Message is a short human-readable summary.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Kind == KindHTTP {
		return fmt.Sprintf("httpclient: %s error: %d %s", e.Kind, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("httpclient: %s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("httpclient: %s error: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// AsError unwraps err into the normalized *Error, if it is one.
func AsError(err error) (*Error, bool) {
	var herr *Error
	if errors.As(err, &herr) {
		return herr, true
	}
	return nil, false
}

// IsStatus reports whether err is an HTTP error with the given status code.
func IsStatus(err error, status int) bool {
	herr, ok := AsError(err)
	return ok && herr.Kind == KindHTTP && herr.Status == status
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Message: "request failed", Err: err}
}

func httpError(status int, body []byte) *Error {
	return &Error{Kind: KindHTTP, Status: status, Data: body, Message: http.StatusText(status)}
}

func applicationError(message string, err error) *Error {
	return &Error{Kind: KindApplication, Message: message, Err: err}
}
