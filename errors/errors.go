package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode identifies the failure class independently of transport.
type ErrorCode string

const (
	ErrorCode_INTERNAL            ErrorCode = "INTERNAL"
	ErrorCode_INVALID_ARGUMENT    ErrorCode = "INVALID_ARGUMENT"
	ErrorCode_NOT_FOUND           ErrorCode = "NOT_FOUND"
	ErrorCode_ALREADY_EXISTS      ErrorCode = "ALREADY_EXISTS"
	ErrorCode_MIGRATION_CYCLE     ErrorCode = "STORAGE_MIGRATION_CYCLE"
	ErrorCode_VERSION_MISMATCH    ErrorCode = "STORAGE_VERSION_MISMATCH"
	ErrorCode_METADATA_INVALID    ErrorCode = "STORAGE_METADATA_INVALID"
	ErrorCode_FILTER_INVALID      ErrorCode = "FILTER_INVALID"
	ErrorCode_SEARCH_INCONSISTENT ErrorCode = "SEARCH_INDEX_INCONSISTENT"
	ErrorCode_EXTERNAL_API        ErrorCode = "EXTERNAL_API_FAILED"
	ErrorCode_CACHE_FAILED        ErrorCode = "CACHE_FAILED"
)

func (c ErrorCode) String() string { return string(c) }

// AppError is the application error type. Storage, search, and pipeline code
// return it so callers can distinguish usage errors from fatal store
// corruption, and so the HTTP layer can map failures to a status code.
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e AppError) Unwrap() error { return e.Raw }

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code ErrorCode) bool {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// General errors

func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal error",
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrNotFound(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_NOT_FOUND,
		Message:  fmt.Sprintf("%s not found", resource),
	}
}

func ErrAlreadyExists(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_ALREADY_EXISTS,
		Message:  fmt.Sprintf("%s already exists", resource),
	}
}

// Storage errors

func ErrMigrationCycle(version string) AppError {
	return AppError{
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_MIGRATION_CYCLE,
		Message:  "Storage migration visited the same version twice",
	}.WithDetail("version", version)
}

func ErrVersionMismatch(got, want string) AppError {
	return AppError{
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_VERSION_MISMATCH,
		Message:  "Storage was not migrated to the current version",
	}.WithDetail("got", got).WithDetail("want", want)
}

func ErrMetadataInvalid(path string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_METADATA_INVALID,
		Message:  "Metadata document is missing or does not parse",
	}.WithDetail("path", path)
}

// Filter errors

func ErrMalformedFilter(clause string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_FILTER_INVALID,
		Message:  "Filter clause must be in name:operator:value form",
	}.WithDetail("clause", clause)
}

func ErrNotFilterable(typeName, attribute string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_FILTER_INVALID,
		Message:  fmt.Sprintf("Attribute %q of %s is not filterable", attribute, typeName),
	}
}

func ErrBadFilterOperator(attribute, operator string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_FILTER_INVALID,
		Message:  fmt.Sprintf("Operator %q is not supported for attribute %q", operator, attribute),
	}
}

// Search errors

func ErrSearchIndexInconsistent(matchStart, matchEnd int) AppError {
	return AppError{
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_SEARCH_INCONSISTENT,
		Message:  "No indexed lines found for a match returned by the search itself",
	}.WithDetail("match_start", fmt.Sprintf("%d", matchStart)).
		WithDetail("match_end", fmt.Sprintf("%d", matchEnd))
}

// Integration errors

func ErrExternalAPIFailed(service string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_EXTERNAL_API,
		Message:  fmt.Sprintf("External API call failed: %s", service),
	}
}

func ErrCacheFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_CACHE_FAILED,
		Message:  fmt.Sprintf("Cache operation failed: %s", operation),
	}
}
