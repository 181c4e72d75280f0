package models

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error codes carried by AppError.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeInternal     = "INTERNAL_ERROR"
)

// FormErrors maps a form field name to its error messages.
// The empty key holds errors not tied to a single field.
type FormErrors map[string][]string

// Add appends a message for field.
func (f FormErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Has reports whether field has at least one error.
func (f FormErrors) Has(field string) bool {
	return len(f[field]) > 0
}

// Get returns the messages for field.
func (f FormErrors) Get(field string) []string {
	return f[field]
}

// NonField returns errors that are not bound to a field.
func (f FormErrors) NonField() []string {
	return f[""]
}

// Empty reports whether there are no errors at all.
func (f FormErrors) Empty() bool {
	for _, msgs := range f {
		if len(msgs) > 0 {
			return false
		}
	}
	return true
}

func (f FormErrors) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		name := k
		if name == "" {
			name = "__all__"
		}
		parts = append(parts, name+": "+strings.Join(f[k], "; "))
	}
	return strings.Join(parts, ", ")
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Fields  FormErrors
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError reports a missing record.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

// NewValidationError reports invalid input.
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewFormError reports invalid form input with per-field messages.
func NewFormError(fields FormErrors) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: "Invalid form data",
		Fields:  fields,
	}
}

// NewUnauthorizedError reports a missing or invalid identity.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewForbiddenError reports an authenticated actor lacking permission.
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// IsNotFound reports whether err is a NOT_FOUND AppError.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeNotFound
}

// IsForbidden reports whether err is a FORBIDDEN AppError.
func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeForbidden
}

// FormErrorsOf extracts field errors from err, if any.
func FormErrorsOf(err error) (FormErrors, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code == CodeValidation && appErr.Fields != nil {
		return appErr.Fields, true
	}
	return nil, false
}

// StatusFor maps err to the HTTP status it should surface as.
func StatusFor(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
