package monitor

import "errors"

// ErrClass partitions fetch failures. Only transport failures feed the
// circuit breaker; parse and empty outcomes are content conditions, not
// evidence the source is down.
type ErrClass string

const (
	ErrClassTransport ErrClass = "transport"
	ErrClassParse     ErrClass = "parse"
	ErrClassEmpty     ErrClass = "empty"
)

// FetchError wraps a fetch failure with its class.
type FetchError struct {
	Class ErrClass
	Err   error
}

// NewFetchError builds a classified fetch error.
func NewFetchError(class ErrClass, err error) *FetchError {
	return &FetchError{Class: class, Err: err}
}

func (e *FetchError) Error() string {
	return string(e.Class) + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ClassOf extracts the class from an error chain. Unclassified errors are
// treated as transport failures.
func ClassOf(err error) ErrClass {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ErrClassTransport
}
