package service

import "strings"

// ErrorKind classifies service failures. Kinds are transport-agnostic; the
// HTTP layer maps them to status codes.
type ErrorKind int

const (
	// KindInvalidInput marks malformed URLs, out-of-range validity windows
	// and malformed or reserved custom short codes.
	KindInvalidInput ErrorKind = iota
	// KindConflict marks a custom short code that is already in use.
	KindConflict
	// KindNotFound marks a short code absent from the store.
	KindNotFound
	// KindExpired marks a short code whose validity window has passed.
	KindExpired
	// KindInternal marks storage faults and unexpected failures. Details
	// stay generic; the full cause is logged internally.
	KindInternal
)

// Error is the tagged failure returned by all service operations. Validation
// failures carry the full list of violated rules in Details.
type Error struct {
	Kind    ErrorKind
	Message string
	Details []string
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, ", ")
}

func invalidInput(msg string, details []string) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg, Details: details}
}

func conflict(msg string, details ...string) *Error {
	return &Error{Kind: KindConflict, Message: msg, Details: details}
}

func notFound() *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: "Shortcode not found",
		Details: []string{"The requested shortcode does not exist"},
	}
}

func expired() *Error {
	return &Error{
		Kind:    KindExpired,
		Message: "URL has expired",
		Details: []string{"This shortened URL has expired and is no longer valid"},
	}
}

func internal() *Error {
	return &Error{
		Kind:    KindInternal,
		Message: "Internal server error",
		Details: []string{"An unexpected error occurred"},
	}
}
