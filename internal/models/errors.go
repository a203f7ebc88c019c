package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies fetch failures at the adapter boundary.
type ErrorKind string

const (
	// ErrorTransport covers network unreachable / timeout failures.
	ErrorTransport ErrorKind = "transport"
	// ErrorProtocol covers non-2xx responses with a structured body.
	ErrorProtocol ErrorKind = "protocol"
	// ErrorPartialAggregation marks a failed sub-fetch inside a
	// multi-combination pass; the pass itself continues.
	ErrorPartialAggregation ErrorKind = "partial-aggregation"
	// ErrorMalformedResponse covers responses missing expected fields.
	ErrorMalformedResponse ErrorKind = "malformed-response"
)

// FetchError is the typed error surfaced by the data source layer.
type FetchError struct {
	Kind       ErrorKind
	Endpoint   string
	StatusCode int
	Detail     string
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s error on %s", e.Kind, e.Endpoint)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewTransportError wraps a network-level failure.
func NewTransportError(endpoint string, err error) *FetchError {
	return &FetchError{Kind: ErrorTransport, Endpoint: endpoint, Err: err}
}

// NewProtocolError wraps a non-2xx response.
func NewProtocolError(endpoint string, status int, detail string) *FetchError {
	return &FetchError{Kind: ErrorProtocol, Endpoint: endpoint, StatusCode: status, Detail: detail}
}

// NewMalformedError wraps a response that could not be decoded.
func NewMalformedError(endpoint string, err error) *FetchError {
	return &FetchError{Kind: ErrorMalformedResponse, Endpoint: endpoint, Err: err}
}

// IsFetchError reports whether err is a FetchError of the given kind.
func IsFetchError(err error, kind ErrorKind) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

// ErrSuperseded is returned when a resolution pass finished after a newer
// pass already rendered; its result must be discarded.
var ErrSuperseded = errors.New("resolution pass superseded by a newer selection")

// ErrBackendUnavailable is returned when every source failed and the
// previously rendered view is being retained.
var ErrBackendUnavailable = errors.New("backend unavailable, retaining last rendered view")
