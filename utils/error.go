package utils

import "errors"

// ErrorKind classifies failures so the presentation layer can react without
// parsing messages: refresh on NotFound, retry/no-op on Conflict, show partial
// results on Partial, distinguish "your edit failed" from "we could not read
// context data" on Upstream. Internal covers our own faults (DB errors and the
// like) so they are never billed to the client.
type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "VALIDATION"
	ErrorKindNotFound   ErrorKind = "NOT_FOUND"
	ErrorKindConflict   ErrorKind = "CONFLICT"
	ErrorKindUpstream   ErrorKind = "UPSTREAM"
	ErrorKindPartial    ErrorKind = "PARTIAL"
	ErrorKindInternal   ErrorKind = "INTERNAL"
)

type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewValidationError(msg string) error {
	return &AppError{Kind: ErrorKindValidation, Message: msg}
}

func NewNotFoundError(msg string) error {
	return &AppError{Kind: ErrorKindNotFound, Message: msg}
}

func NewConflictError(msg string) error {
	return &AppError{Kind: ErrorKindConflict, Message: msg}
}

func NewUpstreamError(msg string, err error) error {
	return &AppError{Kind: ErrorKindUpstream, Message: msg, Err: err}
}

func NewPartialError(msg string) error {
	return &AppError{Kind: ErrorKindPartial, Message: msg}
}

// KindOf returns the error's kind. Plain errors are server faults (raw DB
// failures bubbling out of transactions) and classify as INTERNAL; client
// faults always carry an explicit AppError kind.
func KindOf(err error) ErrorKind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, ErrorRecordNotFound) {
		return ErrorKindNotFound
	}
	return ErrorKindInternal
}

var ErrorRecordNotFound = NewNotFoundError("record not found")
