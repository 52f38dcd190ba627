package igd

import (
	"errors"
	"fmt"
)

var errNoAvailableExternalPort = errors.New("failed to find available external port")
var errNoExternalAddress = errors.New("no external address")
var errNoInternalAddress = errors.New("no internal address")
var errNoNATFound = errors.New("no NAT found")
var errInvalidProtocol = errors.New("invalid port mapping protocol")
var errNoWANIPConnection = errors.New("no WANIPConnection:1 service in device description")

// ErrInvalidResponse is wrapped by every RequestError of kind InvalidResponse.
var ErrInvalidResponse = errors.New("invalid response from gateway")

// ErrorKind classifies a RequestError.
type ErrorKind int

const (
	// TransportFailure means the request never produced a response body:
	// connection, HTTP or I/O failure, including context cancellation.
	TransportFailure ErrorKind = iota + 1
	// InvalidResponse means the gateway answered but not with the expected
	// element, including SOAP faults.
	InvalidResponse
)

func (k ErrorKind) String() string {
	switch k {
	case TransportFailure:
		return "transport failure"
	case InvalidResponse:
		return "invalid response"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// RequestError is the only error returned by the Client operations.
type RequestError struct {
	Kind   ErrorKind
	Action string // SOAP action name, e.g. "AddPortMapping"
	Err    error
}

func (e *RequestError) Error() string {
	if e.Kind == InvalidResponse {
		return fmt.Sprintf("igd %s: %v", e.Action, e.Err)
	}
	return fmt.Sprintf("igd %s: %s: %v", e.Action, e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func transportFailure(action string, err error) error {
	return &RequestError{Kind: TransportFailure, Action: action, Err: err}
}

func invalidResponse(action string) error {
	return &RequestError{Kind: InvalidResponse, Action: action, Err: ErrInvalidResponse}
}

// IsInvalidResponse reports whether err is a RequestError of kind InvalidResponse.
func IsInvalidResponse(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Kind == InvalidResponse
}

// IsTransportFailure reports whether err is a RequestError of kind TransportFailure.
func IsTransportFailure(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Kind == TransportFailure
}

// StatusError is returned by HTTPTransport for unexpected HTTP statuses.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return "unexpected HTTP status: " + e.Status
}
