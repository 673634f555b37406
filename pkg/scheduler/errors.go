package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError indicates required credentials or settings are missing.
// It is raised at construction time, before any record is touched.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing configuration: %s", strings.Join(e.Missing, ", "))
}

func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ValidationError indicates a malformed scheduling intent. No records are
// written when validation fails.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid scheduling intent: %s", e.Reason)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TransportError indicates the platform could not be reached at all.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error calling %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// PlatformError indicates the platform answered with a non-2xx status.
// Body is the response body verbatim, preserved for diagnosis.
type PlatformError struct {
	StatusCode int
	Body       string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform returned HTTP %d: %s", e.StatusCode, e.Body)
}

func IsPlatformError(err error) bool {
	var pe *PlatformError
	return errors.As(err, &pe)
}
