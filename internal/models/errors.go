package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError for callers that map failures to
// HTTP statuses or operator messages.
type ErrorKind string

const (
	// KindSchemaMismatch: import file has too few columns. Fatal for the
	// operation, nothing mutated.
	KindSchemaMismatch ErrorKind = "schema_mismatch"
	// KindStorageError: a transactional failure. Rolled back, no partial
	// state observable.
	KindStorageError ErrorKind = "storage_error"
	// KindDuplicateUsername: user-store uniqueness violation.
	KindDuplicateUsername ErrorKind = "duplicate_username"
	// KindProtectedAccount: attempt to delete the bootstrap Admin.
	KindProtectedAccount ErrorKind = "protected_account"
	// KindValidation: a business-rule violation, reported with a
	// human-readable reason.
	KindValidation ErrorKind = "validation_error"
	// KindNotFound: the referenced entity does not exist.
	KindNotFound ErrorKind = "not_found"
)

// DomainError carries an error kind plus an operator-facing message.
// The wrapped cause, if any, is for logs only and must not be surfaced
// verbatim to callers.
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewSchemaMismatch reports an import file with too few columns.
func NewSchemaMismatch(required, found int) *DomainError {
	return &DomainError{
		Kind:    KindSchemaMismatch,
		Message: fmt.Sprintf("file must have at least %d columns, found %d", required, found),
	}
}

// NewStorageError wraps a storage-layer failure.
func NewStorageError(op string, err error) *DomainError {
	return &DomainError{Kind: KindStorageError, Message: op + " failed", Err: err}
}

// NewValidationError reports a business-rule violation.
func NewValidationError(msg string) *DomainError {
	return &DomainError{Kind: KindValidation, Message: msg}
}

// NewDuplicateUsername reports a username conflict.
func NewDuplicateUsername(username string) *DomainError {
	return &DomainError{
		Kind:    KindDuplicateUsername,
		Message: fmt.Sprintf("username %q already exists", username),
	}
}

// NewProtectedAccount reports a delete attempt on the bootstrap Admin.
func NewProtectedAccount() *DomainError {
	return &DomainError{
		Kind:    KindProtectedAccount,
		Message: "the primary administrator account cannot be deleted",
	}
}

// NewNotFound reports a missing entity.
func NewNotFound(what string) *DomainError {
	return &DomainError{Kind: KindNotFound, Message: what + " not found"}
}

// KindOf extracts the error kind, or empty when err is not a DomainError.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
