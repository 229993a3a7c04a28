// Package errors defines the error taxonomy shared by the corpus analytics
// pipeline and its services. Library consumers match sentinels with
// errors.Is; the HTTP layer maps them to status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidInput marks an empty or malformed token sequence.
	ErrInvalidInput = errors.New("invalid input")
	// ErrVocabularyMismatch marks a corpus comparison over two matrices
	// sharing zero terms. Not fatal: the comparison result carries the
	// same information as a flag for callers that prefer inspecting it.
	ErrVocabularyMismatch = errors.New("vocabulary mismatch")
	ErrCorpusNotFound     = errors.New("corpus not found")
	ErrCorpusExists       = errors.New("corpus already exists")
	ErrCorpusSealed       = errors.New("corpus is sealed")
	ErrSnapshotCorrupt    = errors.New("snapshot file corrupt")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrCorpusNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrCorpusExists), errors.Is(err, ErrCorpusSealed):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrVocabularyMismatch):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
