// Package zerror carries a transport-neutral status and a stable code on an
// error value. Predefined errors are declared once and refined per call site
// with WrapParent and WithMsg.
package zerror

import (
	"errors"
	"log/slog"
)

type ZError struct {
	status Status
	code   string
	msg    string
	parent error
}

// New returns a predefined error. code is an UPPER_SNAKE identifier clients
// can match on, such as PRODUCT_NOT_FOUND.
func New(status Status, code, msg string) ZError {
	return ZError{status: status, code: code, msg: msg}
}

func NewNotFound(code, msg string) ZError { return New(StatusNotFound, code, msg) }

func NewConflict(code, msg string) ZError { return New(StatusConflict, code, msg) }

func NewValidationFailed(code, msg string) ZError { return New(StatusValidationFailed, code, msg) }

func NewInternalServerError(code, msg string) ZError {
	return New(StatusInternalServerError, code, msg)
}

func NewBadGateway(code, msg string) ZError { return New(StatusBadGateway, code, msg) }

func (e ZError) Error() string {
	s := e.code + ": " + e.msg
	if e.parent != nil {
		s += ": " + e.parent.Error()
	}
	return s
}

// WrapParent returns a copy of e caused by parent. A nil parent leaves e as is.
func (e ZError) WrapParent(parent error) ZError {
	if parent != nil {
		e.parent = parent
	}
	return e
}

// WithMsg returns a copy of e with a client-facing message for this occurrence.
func (e ZError) WithMsg(msg string) ZError {
	e.msg = msg
	return e
}

func (e ZError) Unwrap() error { return e.parent }

// Is matches on code alone, so errors.Is(err, apperr.ProductNotFoundErr)
// holds however the occurrence was refined.
func (e ZError) Is(target error) bool {
	var t ZError
	return errors.As(target, &t) && t.code == e.code
}

func (e ZError) Status() Status { return e.status }
func (e ZError) Code() string   { return e.code }
func (e ZError) Msg() string    { return e.msg }

// LogValue implements [slog.LogValuer].
func (e ZError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("code", e.code),
		slog.String("status", e.status.String()),
		slog.String("msg", e.msg),
	}
	if e.parent != nil {
		attrs = append(attrs, slog.String("cause", e.parent.Error()))
	}
	return slog.GroupValue(attrs...)
}
