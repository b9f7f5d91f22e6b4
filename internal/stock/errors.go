package stock

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks an upstream answer that the symbol does not exist.
	// Errors wrapping it are never retried.
	ErrNotFound = errors.New("symbol not found")
	// ErrInvalidSymbol marks input that can never resolve. Never retried.
	ErrInvalidSymbol = errors.New("invalid symbol")
)

// SentimentError is the single error kind surfaced by the pipeline.
// Msg is safe to show to API callers; Err keeps the underlying cause.
type SentimentError struct {
	Symbol string
	Msg    string
	Err    error
}

func (e *SentimentError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "stock sentiment error"
}

func (e *SentimentError) Unwrap() error { return e.Err }

// Errorf builds a SentimentError with a formatted message and no cause.
func Errorf(symbol, format string, args ...any) *SentimentError {
	return &SentimentError{Symbol: symbol, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a SentimentError around cause.
func Wrap(symbol string, cause error, msg string) *SentimentError {
	return &SentimentError{Symbol: symbol, Msg: msg, Err: cause}
}

// AsSentimentError returns err unchanged when it already is (or wraps) a
// SentimentError, and wraps it into a generic one otherwise.
func AsSentimentError(symbol string, err error) error {
	if err == nil {
		return nil
	}
	var se *SentimentError
	if errors.As(err, &se) {
		return err
	}
	return Wrap(symbol, err, fmt.Sprintf("Failed to analyze sentiment for %s", symbol))
}

// IsSentimentError reports whether err carries a SentimentError.
func IsSentimentError(err error) bool {
	var se *SentimentError
	return errors.As(err, &se)
}
