// Package scanerr defines the stable error codes reported to hosts and the
// DetectionResult outcome type.
package scanerr

import (
	"errors"
	"fmt"
)

// Code is a stable, host-visible error identifier.
type Code string

const (
	NoWindow            Code = "ERR_NO_WINDOW"
	NoDocument          Code = "ERR_NO_DOCUMENT"
	NoTriggerButtons    Code = "ERR_NO_TRIGGER_BUTTONS"
	NoFileSelected      Code = "ERR_NO_FILE_SELECTED"
	InvalidMime         Code = "ERR_INVALID_MIME"
	InvalidVideoElement Code = "ERR_INVALID_VIDEO_ELEMENT_ID"
	NoMedia             Code = "ERR_NO_MEDIA"
	NoPermission        Code = "ERR_NO_PERMISSION"
	ImageTooSmall       Code = "ERR_IMAGE_TOO_SMALL"
	NotDetected         Code = "ERR_NOT_DETECTED"
	DecodeFailed        Code = "ERR_DECODE_FAILED"
	Internal            Code = "ERR_INTERNAL"
)

// Codes returns the exported name to code table.
func Codes() map[string]Code {
	return map[string]Code{
		"WindowNotFound":         NoWindow,
		"DocumentNotFound":       NoDocument,
		"TriggerButtonsNotFound": NoTriggerButtons,
		"NoFileSelected":         NoFileSelected,
		"InvalidMime":            InvalidMime,
		"InvalidVideoElementId":  InvalidVideoElement,
		"NoMedia":                NoMedia,
		"NoPermission":           NoPermission,
		"ImageTooSmall":          ImageTooSmall,
		"NotDetected":            NotDetected,
		"DecodeFailed":           DecodeFailed,
		"Internal":               Internal,
	}
}

// Error is a coded failure with an optional wrapped cause.
type Error struct {
	Code Code
	Err  error
}

// New returns a coded error without a cause.
func New(code Code) *Error { return &Error{Code: code} }

// Wrap returns a coded error wrapping cause.
func Wrap(code Code, cause error) *Error { return &Error{Code: code, Err: cause} }

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so errors.Is(err,
// scanerr.New(scanerr.NotDetected)) works regardless of the cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to Internal for foreign
// errors and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// Result is the outcome of one detection: either decoded text or a coded
// failure.
type Result struct {
	Value  string
	Format string
	Err    *Error
}

// Success builds a successful result.
func Success(value, format string) Result { return Result{Value: value, Format: format} }

// Failure builds a failed result.
func Failure(err *Error) Result { return Result{Err: err} }

// FailureCode builds a failed result without a cause.
func FailureCode(code Code) Result { return Result{Err: New(code)} }

// OK reports whether the result carries decoded text.
func (r Result) OK() bool { return r.Err == nil }

// Code returns the failure code, or "" on success.
func (r Result) Code() Code {
	if r.Err == nil {
		return ""
	}
	return r.Err.Code
}
