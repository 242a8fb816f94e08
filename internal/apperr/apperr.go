// Package apperr defines the error taxonomy shared by adapters, the dispatcher,
// the queue and the reconciliation engine.
//
// Every failure surfaced to a user is an *Error with a Kind. Callers match on
// kinds with errors.Is against the exported sentinels:
//
//	if errors.Is(err, apperr.ErrTimeout) { ... }
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an enhancement failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindUnsupportedProvider
	KindInvalidPrompt
	KindProviderProtocol
	KindProviderHTTP
	KindTimeout
	KindNoSelection
)

var kindNames = map[Kind]string{
	KindUnknown:             "unknown",
	KindConfiguration:       "configuration",
	KindUnsupportedProvider: "unsupported_provider",
	KindInvalidPrompt:       "invalid_prompt",
	KindProviderProtocol:    "provider_protocol",
	KindProviderHTTP:        "provider_http",
	KindTimeout:             "timeout",
	KindNoSelection:         "no_selection",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String. Unrecognised names map to
// KindUnknown.
func ParseKind(s string) Kind {
	for k, name := range kindNames {
		if name == s {
			return k
		}
	}
	return KindUnknown
}

// Error is the concrete error type for all classified failures.
type Error struct {
	Kind     Kind
	Provider string
	// Status is the HTTP status reported by the provider, 0 when not applicable.
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind so that errors.Is(err, ErrTimeout) holds for
// any timeout regardless of provider or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrConfiguration       = &Error{Kind: KindConfiguration}
	ErrUnsupportedProvider = &Error{Kind: KindUnsupportedProvider}
	ErrInvalidPrompt       = &Error{Kind: KindInvalidPrompt}
	ErrProviderProtocol    = &Error{Kind: KindProviderProtocol}
	ErrProviderHTTP        = &Error{Kind: KindProviderHTTP}
	ErrTimeout             = &Error{Kind: KindTimeout}
	ErrNoSelection         = &Error{Kind: KindNoSelection}
)

// KindOf returns the Kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Configuration reports a missing credential, model or provider setting.
// It is raised before any network call is made.
func Configuration(provider, msg string) *Error {
	return &Error{Kind: KindConfiguration, Provider: provider, Message: msg}
}

func UnsupportedProvider(name string) *Error {
	return &Error{
		Kind:     KindUnsupportedProvider,
		Provider: name,
		Message:  fmt.Sprintf("Unsupported provider: %s", name),
	}
}

func InvalidPrompt(id string) *Error {
	return &Error{
		Kind:    KindInvalidPrompt,
		Message: fmt.Sprintf("Invalid prompt selected: %q", id),
	}
}

// Protocol reports a successful HTTP exchange whose body lacks the expected
// text field.
func Protocol(provider string, status int, detail string) *Error {
	return &Error{
		Kind:     KindProviderProtocol,
		Provider: provider,
		Status:   status,
		Message:  fmt.Sprintf("Invalid response from %s API (%d): %s", provider, status, detail),
	}
}

// HTTP reports a non-success status. detail is the provider-supplied error
// text; when empty the status text is used instead.
func HTTP(provider string, status int, detail string) *Error {
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &Error{
		Kind:     KindProviderHTTP,
		Provider: provider,
		Status:   status,
		Message:  fmt.Sprintf("%s API error (%d): %s", provider, status, detail),
	}
}

func Timeout(provider string, err error) *Error {
	return &Error{
		Kind:     KindTimeout,
		Provider: provider,
		Message:  "Request timed out. The AI service took too long to respond; please try again.",
		Err:      err,
	}
}

func NoSelection() *Error {
	return &Error{Kind: KindNoSelection, Message: "Please select some text first."}
}
