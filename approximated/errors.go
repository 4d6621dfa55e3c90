package approximated

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorKind classifies an Error.
type ErrorKind int

const (
	// ValidationFailure is a non-2xx response carrying field-keyed
	// validation messages.
	ValidationFailure ErrorKind = iota + 1
	// OpaqueFailure is a non-2xx response whose body is kept as raw text.
	OpaqueFailure
	// TransportFailure means no HTTP status was obtained, or the body
	// could not be read.
	TransportFailure
	// DecodeFailure is a 2xx response that does not match the expected shape.
	DecodeFailure
)

func (k ErrorKind) String() string {
	switch k {
	case ValidationFailure:
		return "validation"
	case OpaqueFailure:
		return "opaque"
	case TransportFailure:
		return "transport"
	case DecodeFailure:
		return "decode"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ValidationErrors maps a request field to the messages the API reported
// for it.
type ValidationErrors map[string][]string

func (v ValidationErrors) String() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(v[k], ", "))
	}
	return strings.Join(parts, "; ")
}

// Error is returned by every Client operation that fails after construction.
type Error struct {
	Kind       ErrorKind
	Op         string
	Method     string
	Path       string
	StatusCode int              // 0 when no response was received
	Fields     ValidationErrors // ValidationFailure only
	Body       string           // raw response text for OpaqueFailure and DecodeFailure
	Err        error            // cause for TransportFailure and DecodeFailure
}

func (e *Error) Error() string {
	switch e.Kind {
	case ValidationFailure:
		return fmt.Sprintf("approximated: %s: validation failed (%d): %s", e.Op, e.StatusCode, e.Fields)
	case OpaqueFailure:
		return fmt.Sprintf("approximated: %s: unexpected status %d: %s", e.Op, e.StatusCode, strings.TrimSpace(e.Body))
	case DecodeFailure:
		return fmt.Sprintf("approximated: %s: decode response: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("approximated: %s: %s %s: %v", e.Op, e.Method, e.Path, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsNotFound reports whether err is an API response with status 404.
func IsNotFound(err error) bool {
	e, ok := AsError(err)
	return ok && e.StatusCode == http.StatusNotFound &&
		(e.Kind == OpaqueFailure || e.Kind == ValidationFailure)
}
