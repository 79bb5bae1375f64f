package errors

import (
	"errors"
	"fmt"
)

// Common error types for the authorization client
var (
	// Configuration errors
	ErrConfiguration = errors.New("configuration error")

	// Redirect errors
	ErrCsrfMismatch   = errors.New("state mismatch: possible cross-site request forgery")
	ErrMissingCode    = errors.New("authorization code missing from redirect")
	ErrProviderDenied = errors.New("provider returned an authorization error")

	// Token endpoint errors
	ErrExchange = errors.New("token exchange failed")

	// Listener errors
	ErrBind            = errors.New("unable to bind redirect listener")
	ErrListenerTimeout = errors.New("redirect listener timed out")
	ErrListenerClosed  = errors.New("redirect listener closed")
)

// ConfigurationError reports a missing or invalid configuration value.
// It is returned before any listener or network activity begins.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s is required", ErrConfiguration, e.Field)
	}
	return fmt.Sprintf("%s: %s %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// ExchangeError carries the token endpoint's response for diagnostics.
type ExchangeError struct {
	StatusCode  int    // HTTP status code, e.g. 400
	Status      string // HTTP status text, e.g. "400 Bad Request"
	Body        string // Raw response body
	ErrorCode   string // Provider "error" field, e.g. "invalid_grant"
	Description string // Provider "error_description" field
	Err         error  // Underlying transport or decode error, if any
}

func (e *ExchangeError) Error() string {
	msg := ErrExchange.Error()
	if e.Status != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Status)
	}
	if e.ErrorCode != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.ErrorCode)
		if e.Description != "" {
			msg = fmt.Sprintf("%s (%s)", msg, e.Description)
		}
	} else if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ExchangeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrExchange, e.Err}
	}
	return []error{ErrExchange}
}

// BindError is returned when the redirect listener cannot bind its port.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("%s on %s: %v", ErrBind, e.Addr, e.Err)
}

func (e *BindError) Unwrap() []error {
	return []error{ErrBind, e.Err}
}

// ProviderError is an error redirected back by the provider,
// e.g. access_denied when the user declines the authorization.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s: %s", ErrProviderDenied, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", ErrProviderDenied, e.Code, e.Description)
}

func (e *ProviderError) Unwrap() error {
	return ErrProviderDenied
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
