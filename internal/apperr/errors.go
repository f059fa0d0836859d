// Package apperr defines the error kinds that cross component boundaries.
//
// Adapters translate low-level transport failures into one of these types;
// callers inspect them with errors.As.
package apperr

import (
	"fmt"
	"strings"
)

// ConfigError reports a missing or invalid precondition (credential, directory).
// It is fatal for the command that hit it.
type ConfigError struct {
	Key     string // env var, flag or path the problem is about
	Problem string
	Remedy  string
	Err     error // underlying cause, if any
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	if e.Key != "" {
		fmt.Fprintf(&b, "%s: ", e.Key)
	}
	b.WriteString(e.Problem)
	if e.Remedy != "" {
		b.WriteString("\n  ")
		b.WriteString(strings.ReplaceAll(e.Remedy, "\n", "\n  "))
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ProviderError wraps a failed call to a remote model or photo service.
// No retry is attempted.
type ProviderError struct {
	Service    string // "openai", "unsplash"
	Op         string // "describe", "embed", "search", ...
	StatusCode int    // 0 when the failure happened before a response
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed: HTTP %d: %v", e.Service, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// AuthError is returned when the photo provider rejects the credential.
type AuthError struct {
	Service string
	Detail  string
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("%s rejected the access key (invalid or expired)", e.Service)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// RateLimitError is returned when the photo provider reports quota exhaustion.
type RateLimitError struct {
	Service string
	Detail  string
}

func (e *RateLimitError) Error() string {
	msg := fmt.Sprintf("%s request limit reached", e.Service)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// NetworkError is a timeout or connection failure talking to a provider.
type NetworkError struct {
	Service string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("timed out talking to %s: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("cannot connect to %s: %v", e.Service, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
