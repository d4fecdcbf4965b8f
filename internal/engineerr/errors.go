// Package engineerr defines the categorized errors the backtest core
// surfaces to callers.
package engineerr

import (
	"errors"
	"fmt"
	"time"
)

// Code identifies the failure class of an engine error.
type Code string

const (
	CodeInvalidArgument        Code = "INVALID_ARGUMENT"
	CodeSourceUnavailable      Code = "SOURCE_UNAVAILABLE"
	CodeInsufficientData       Code = "INSUFFICIENT_DATA"
	CodeQualityRejected        Code = "QUALITY_REJECTED"
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
	CodeRiskRejected           Code = "RISK_REJECTED"
	CodeCancelled              Code = "CANCELLED"
)

// Error is a categorized engine error carrying symbol and timestamp
// context where applicable.
type Error struct {
	Code       Code
	Component  string
	Message    string
	Symbol     string
	Timestamp  time.Time
	Underlying error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", e.Code, e.Component, e.Message)
	if e.Symbol != "" {
		msg += " symbol=" + e.Symbol
	}
	if !e.Timestamp.IsZero() {
		msg += " at=" + e.Timestamp.Format(time.RFC3339)
	}
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Underlying }

// Is lets errors.Is match on bare code sentinels created with New.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// Retryable reports whether the caller may retry the failed operation.
// Only source failures are retryable; everything else is deterministic.
func (e *Error) Retryable() bool {
	return e.Code == CodeSourceUnavailable
}

// New creates an engine error.
func New(code Code, component, message string) *Error {
	return &Error{Code: code, Component: component, Message: message}
}

// Wrap attaches engine error context to an underlying error. Returns nil
// for a nil cause.
func Wrap(err error, code Code, component, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Component: component, Message: message, Underlying: err}
}

// WithSymbol returns e annotated with symbol context.
func (e *Error) WithSymbol(symbol string) *Error {
	e.Symbol = symbol
	return e
}

// WithTimestamp returns e annotated with bar-time context.
func (e *Error) WithTimestamp(ts time.Time) *Error {
	e.Timestamp = ts
	return e
}

// CodeOf extracts the engine error code from err, or "" when err is not
// an engine error.
func CodeOf(err error) Code {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}
