package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Descriptor errors, raised before any image is touched
	ErrorTypeValidation ErrorType = "validation"

	// Per-image errors
	ErrorTypeDecode            ErrorType = "decode"
	ErrorTypeInvalidOperation  ErrorType = "invalid_operation"
	ErrorTypeUnsupportedFormat ErrorType = "unsupported_format"
	ErrorTypeCodec             ErrorType = "codec"
	ErrorTypeIO                ErrorType = "io"
	ErrorTypeCancelled         ErrorType = "cancelled"

	// System errors
	ErrorTypeInternal ErrorType = "internal"
	ErrorTypeUnknown  ErrorType = "unknown"
)

// Error codes for specific scenarios
const (
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeDecodeFailed      = "DECODE_FAILED"
	CodeInvalidOperation  = "INVALID_OPERATION"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeCodecFailure      = "CODEC_FAILURE"
	CodeIOFailure         = "IO_FAILURE"
	CodeCancelled         = "CANCELLED"
	CodeInternalError     = "INTERNAL_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType      `json:"type"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	InnerError error          `json:"-"`
	Stack      []string       `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}
	if e.InnerError != nil {
		return msg + ": " + e.InnerError.Error()
	}
	return msg
}

// Unwrap returns the inner error
func (e *AppError) Unwrap() error {
	return e.InnerError
}

// WithCode adds a code to the error
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithInnerError sets the inner error
func (e *AppError) WithInnerError(err error) *AppError {
	e.InnerError = err
	return e
}

// WithStack captures the call stack
func (e *AppError) WithStack() *AppError {
	e.Stack = captureStack(3)
	return e
}

// Is checks if this error is of a specific type
func (e *AppError) Is(target error) bool {
	if targetApp, ok := target.(*AppError); ok {
		return e.Type == targetApp.Type
	}
	return false
}

// New creates a new AppError
func New(errType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Code:    string(errType),
	}
}

// FromError converts a standard error to AppError. Wrapped AppErrors are
// found through the chain.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return &AppError{
		Type:       ErrorTypeUnknown,
		Code:       string(ErrorTypeUnknown),
		Message:    err.Error(),
		InnerError: err,
	}
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	return FromError(err).Type
}

// IsType reports whether err carries the given type anywhere in its chain.
func IsType(err error, errType ErrorType) bool {
	return errors.Is(err, &AppError{Type: errType})
}

// WrapWithType wraps an error with a specific type
func WrapWithType(err error, errType ErrorType, message string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		InnerError: err,
		Code:       string(errType),
	}
}

// NewValidation reports a structurally invalid pipeline descriptor.
func NewValidation(message string, violations ...string) *AppError {
	err := New(ErrorTypeValidation, message).WithCode(CodeValidationFailed)
	if len(violations) > 0 {
		err.WithDetail("violations", violations)
	}
	return err
}

func NewDecode(err error) *AppError {
	return WrapWithType(err, ErrorTypeDecode, "cannot decode image").WithCode(CodeDecodeFailed)
}

func NewInvalidOperation(op string, reason string) *AppError {
	return New(ErrorTypeInvalidOperation, fmt.Sprintf("invalid %s operation: %s", op, reason)).
		WithCode(CodeInvalidOperation).
		WithDetail("op", op)
}

func NewUnsupportedFormat(format string) *AppError {
	return New(ErrorTypeUnsupportedFormat, fmt.Sprintf("unsupported output format: %s", format)).
		WithCode(CodeUnsupportedFormat).
		WithDetail("format", format)
}

// NewCodec wraps a failure reported by the codec capability.
func NewCodec(stage string, err error) *AppError {
	return WrapWithType(err, ErrorTypeCodec, stage+" failed").
		WithCode(CodeCodecFailure).
		WithDetail("stage", stage)
}

func NewIO(message string, err error) *AppError {
	return WrapWithType(err, ErrorTypeIO, message).WithCode(CodeIOFailure)
}

func NewCancelled(err error) *AppError {
	return WrapWithType(err, ErrorTypeCancelled, "not started").WithCode(CodeCancelled)
}

func NewInternal(message string) *AppError {
	return New(ErrorTypeInternal, message).WithCode(CodeInternalError)
}

// Violations returns the violation list attached by NewValidation.
func Violations(err error) []string {
	appErr := FromError(err)
	if appErr == nil {
		return nil
	}
	v, _ := appErr.Details["violations"].([]string)
	return v
}

// ErrorFormatter formats errors for display
type ErrorFormatter struct {
	showStack bool
	showInner bool
}

// NewErrorFormatter creates a new error formatter
func NewErrorFormatter(showStack bool, showInner bool) *ErrorFormatter {
	return &ErrorFormatter{
		showStack: showStack,
		showInner: showInner,
	}
}

// Format formats an error as a single line. Details are emitted in key order.
func (f *ErrorFormatter) Format(err error) string {
	if err == nil {
		return ""
	}

	appErr := FromError(err)

	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", appErr.Type, appErr.Message))

	if appErr.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", appErr.Code))
	}

	if len(appErr.Details) > 0 {
		keys := make([]string, 0, len(appErr.Details))
		for k := range appErr.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, appErr.Details[k]))
		}
	}

	if f.showStack && len(appErr.Stack) > 0 {
		parts = append(parts, "stack:")
		for _, s := range appErr.Stack {
			parts = append(parts, "  "+s)
		}
	}

	if f.showInner && appErr.InnerError != nil {
		parts = append(parts, "caused_by: "+appErr.InnerError.Error())
	}

	return strings.Join(parts, " | ")
}

// Recover converts a recovered panic value into an internal AppError.
// Use as: defer func() { if r := recover(); r != nil { err = errors.Recover(r) } }()
func Recover(r any) *AppError {
	var appErr *AppError
	switch v := r.(type) {
	case error:
		appErr = WrapWithType(v, ErrorTypeInternal, "panic recovered")
	case string:
		appErr = New(ErrorTypeInternal, "panic recovered: "+v)
	default:
		appErr = New(ErrorTypeInternal, fmt.Sprintf("panic recovered: %v", v))
	}
	return appErr.WithCode(CodeInternalError).WithStack()
}

// captureStack captures the call stack
func captureStack(skip int) []string {
	var stack []string
	for i := skip; i < 10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		funcName := fn.Name()
		if idx := strings.LastIndex(funcName, "/"); idx >= 0 {
			funcName = funcName[idx+1:]
		}

		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, funcName))
	}
	return stack
}
