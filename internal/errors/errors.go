// Package errors defines the error taxonomy shared by the sync pipeline.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the sync pipeline. Adapters wrap these so callers can
// classify failures with errors.Is without depending on SDK error types.
var (
	// ErrSourceUnavailable marks a transient secret-manager failure
	// (network, auth, timeout). Retried on the scheduler's backoff cadence.
	ErrSourceUnavailable = errors.New("secret source unavailable")

	// ErrSourceNotFound marks a missing secret or version. Not retried
	// within a cycle, but the scheduler keeps trying on its normal cadence
	// since the secret may be created later.
	ErrSourceNotFound = errors.New("secret not found in source")

	// ErrParse marks a payload that is not a flat JSON object of strings.
	ErrParse = errors.New("secret payload parse error")

	// ErrSinkUnavailable marks a transient Kubernetes API failure.
	ErrSinkUnavailable = errors.New("secret sink unavailable")

	// ErrSinkRejected marks a validation rejection from the Kubernetes API.
	ErrSinkRejected = errors.New("secret rejected by sink")

	// ErrAuthRejected marks a failed bearer-token check on the sync endpoint.
	ErrAuthRejected = errors.New("authorization rejected")
)

// SourceError wraps a secret-manager failure with operation context.
type SourceError struct {
	Op     string // "fetch", "probe"
	Secret string // resource name, no payload data
	Err    error
}

func (e *SourceError) Error() string {
	if e.Secret != "" {
		return fmt.Sprintf("source %s error for %s: %v", e.Op, e.Secret, e.Err)
	}
	return fmt.Sprintf("source %s error: %v", e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// SinkError wraps a Kubernetes API failure with operation context.
type SinkError struct {
	Op        string // "get", "create", "update"
	Namespace string
	Name      string
	Err       error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s error for %s/%s: %v", e.Op, e.Namespace, e.Name, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// ParseError describes why a fetched payload could not be decoded.
type ParseError struct {
	Reason string
	Key    string // offending key when known; values are never included
}

func (e *ParseError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%v: %s (key %q)", ErrParse, e.Reason, e.Key)
	}
	return fmt.Sprintf("%v: %s", ErrParse, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

// ConfigError represents a configuration error with helpful context.
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  Try: " + e.Suggestion
	}

	return msg
}

// IsTransient reports whether the error should be treated as retryable by the
// scheduler's short backoff rather than a data problem.
func IsTransient(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrSinkUnavailable)
}

// IsNotFound reports whether the error is a missing source secret.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSourceNotFound)
}

// Classify returns the taxonomy label for an error, used in logs and metrics.
func Classify(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrSourceNotFound):
		return "source_not_found"
	case errors.Is(err, ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, ErrParse):
		return "parse_error"
	case errors.Is(err, ErrSinkRejected):
		return "sink_rejected"
	case errors.Is(err, ErrSinkUnavailable):
		return "sink_unavailable"
	case errors.Is(err, ErrAuthRejected):
		return "auth_rejected"
	default:
		return "unknown"
	}
}

// MissingFields builds a single ConfigError for a set of absent required
// settings so startup can report them all at once.
func MissingFields(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return ConfigError{
		Field:      strings.Join(fields, ", "),
		Message:    "required setting(s) not provided",
		Suggestion: "Set the listed environment variables or provide them in the settings file",
	}
}
