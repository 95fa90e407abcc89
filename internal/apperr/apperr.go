// Package apperr classifies failures by kind so the request layer can map
// them to caller-visible responses without inspecting concrete types.
//
// Lower layers attach a kind where the failure is first understood:
//
//	return apperr.DependencyMissing("yt-dlp is not installed or not on PATH").WithCause(err)
//
// and handlers switch on it:
//
//	switch apperr.KindOf(err) {
//	case apperr.KindMediaNotAvailable:
//	    ...
//	}
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable failure class.
type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindDependencyMissing Kind = "DEPENDENCY_MISSING"
	KindMediaDownload     Kind = "MEDIA_DOWNLOAD"
	KindMediaNotAvailable Kind = "MEDIA_NOT_AVAILABLE"
	KindExtraction        Kind = "EXTRACTION"
	KindUpstream          Kind = "UPSTREAM"
	KindAlreadyExists     Kind = "ALREADY_EXISTS"
	KindNotFound          Kind = "NOT_FOUND"
	KindRateLimited       Kind = "RATE_LIMITED"
	KindInternal          Kind = "INTERNAL"
)

// HTTPStatus returns the status code a handler should answer with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindMediaNotAvailable:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Public reports whether messages of this kind are safe to show to callers.
// Infrastructure failures are logged in full and answered generically.
func (k Kind) Public() bool {
	switch k {
	case KindValidation, KindMediaNotAvailable, KindNotFound, KindAlreadyExists, KindRateLimited:
		return true
	default:
		return false
	}
}

// Error is a classified failure with an optional wrapped cause.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// WithCause returns a copy wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Details: e.Details, cause: err}
}

// WithDetails returns a copy carrying details for the response body.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Details: details, cause: e.cause}
}

var (
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation error"}
	ErrDependencyMissing = &Error{Kind: KindDependencyMissing, Message: "dependency missing"}
	ErrMediaDownload     = &Error{Kind: KindMediaDownload, Message: "media download failed"}
	ErrMediaNotAvailable = &Error{Kind: KindMediaNotAvailable, Message: "Audio path is required for analysis"}
	ErrExtraction        = &Error{Kind: KindExtraction, Message: "audio extraction failed"}
	ErrUpstream          = &Error{Kind: KindUpstream, Message: "upstream service failed"}
	ErrAlreadyExists     = &Error{Kind: KindAlreadyExists, Message: "already exists"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrRateLimited       = &Error{Kind: KindRateLimited, Message: "too many requests"}
	ErrInternal          = &Error{Kind: KindInternal, Message: "internal error"}
)

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func DependencyMissing(msg string) *Error {
	return &Error{Kind: KindDependencyMissing, Message: msg}
}

func MediaDownload(msg string) *Error {
	return &Error{Kind: KindMediaDownload, Message: msg}
}

func MediaDownloadf(format string, args ...any) *Error {
	return &Error{Kind: KindMediaDownload, Message: fmt.Sprintf(format, args...)}
}

// MediaNotAvailable uses the default message when msg is empty.
func MediaNotAvailable(msg string) *Error {
	if msg == "" {
		msg = ErrMediaNotAvailable.Message
	}
	return &Error{Kind: KindMediaNotAvailable, Message: msg}
}

func Extraction(msg string) *Error {
	return &Error{Kind: KindExtraction, Message: msg}
}

func Extractionf(format string, args ...any) *Error {
	return &Error{Kind: KindExtraction, Message: fmt.Sprintf(format, args...)}
}

func Upstream(msg string) *Error {
	return &Error{Kind: KindUpstream, Message: msg}
}

func Upstreamf(format string, args ...any) *Error {
	return &Error{Kind: KindUpstream, Message: fmt.Sprintf(format, args...)}
}

func AlreadyExists(msg string) *Error {
	return &Error{Kind: KindAlreadyExists, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Internal(msg string) *Error {
	return &Error{Kind: KindInternal, Message: msg}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
