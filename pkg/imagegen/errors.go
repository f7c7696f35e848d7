package imagegen

import (
	"errors"
	"fmt"
)

// Kind classifies generation failures so the UI can branch on them.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidCredential
	KindNetwork
	KindBrowserRestricted
	KindProvider
	KindTimeout
	KindEmptyResult
	KindProviderMisconfigured
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredential:
		return "invalid credential"
	case KindNetwork:
		return "network error"
	case KindBrowserRestricted:
		return "browser restricted"
	case KindProvider:
		return "provider error"
	case KindTimeout:
		return "timeout"
	case KindEmptyResult:
		return "empty result"
	case KindProviderMisconfigured:
		return "provider misconfigured"
	case KindValidation:
		return "validation error"
	default:
		return "unknown error"
	}
}

// Error is a classified generation failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when the target is a bare sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidCredential     = &Error{Kind: KindInvalidCredential}
	ErrNetwork               = &Error{Kind: KindNetwork}
	ErrBrowserRestricted     = &Error{Kind: KindBrowserRestricted}
	ErrProvider              = &Error{Kind: KindProvider}
	ErrTimeout               = &Error{Kind: KindTimeout}
	ErrEmptyResult           = &Error{Kind: KindEmptyResult}
	ErrProviderMisconfigured = &Error{Kind: KindProviderMisconfigured}
	ErrValidation            = &Error{Kind: KindValidation}
)

// Errorf builds a classified error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind with a leading message.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}
