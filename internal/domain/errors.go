package domain

import (
	"errors"
	"fmt"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// ConnectionError represents a transport failure on the quote feed.
type ConnectionError struct {
	Op  string // "dial" or "read"
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return e.Op + " " + e.URL + ": " + e.Err.Error()
}

// IsRetriable reports true: a fresh dial may succeed where this one failed.
func (e *ConnectionError) IsRetriable() bool {
	return true
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewConnectionError creates a connection error for op against url.
func NewConnectionError(op, url string, err error) *ConnectionError {
	return &ConnectionError{Op: op, URL: url, Err: err}
}

// maxPayloadEcho bounds how much of a bad frame ends up in the error text.
const maxPayloadEcho = 64

// ProtocolError represents an inbound frame that could not be decoded.
type ProtocolError struct {
	Payload string
	Err     error
}

func (e *ProtocolError) Error() string {
	p := e.Payload
	if len(p) > maxPayloadEcho {
		p = p[:maxPayloadEcho] + "..."
	}
	return fmt.Sprintf("protocol error: %v (payload %q)", e.Err, p)
}

func (e *ProtocolError) IsRetriable() bool {
	return false
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewProtocolError creates a protocol error for the given raw frame.
func NewProtocolError(payload []byte, err error) *ProtocolError {
	return &ProtocolError{Payload: string(payload), Err: err}
}

// TerminalIOError represents a failure to draw or to read terminal input.
type TerminalIOError struct {
	Err error
}

func (e *TerminalIOError) Error() string {
	return "terminal: " + e.Err.Error()
}

func (e *TerminalIOError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrChannelClosed is returned to the feed when the dashboard stopped receiving.
	ErrChannelClosed = errors.New("tick channel closed by receiver")

	// ErrUserInterrupt marks a deliberate quit from the keyboard. It is not a failure.
	ErrUserInterrupt = errors.New("user interrupt")

	// ErrMissingData is wrapped by ProtocolError when an envelope has no data object.
	ErrMissingData = errors.New("envelope has no data")

	// ErrMissingField is wrapped by ProtocolError when a quote object lacks a tick field.
	ErrMissingField = errors.New("quote is missing a field")
)

// IsUserInterrupt reports whether err is (or wraps) ErrUserInterrupt.
func IsUserInterrupt(err error) bool {
	return errors.Is(err, ErrUserInterrupt)
}
