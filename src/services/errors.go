package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for explicit error handling
// These errors allow callers to distinguish between different failure modes
// using errors.Is() instead of string matching

var (
	// ErrPermissionDenied indicates the acting identity may not perform the operation
	ErrPermissionDenied = errors.New("permission denied")

	// ErrStatementFailed indicates the datastore reported an execution error
	ErrStatementFailed = errors.New("statement failed")

	// ErrNotAuthenticated indicates a self-service operation on an anonymous session
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrEmptyPassword indicates an empty password was supplied
	ErrEmptyPassword = errors.New("password must not be empty")

	// ErrPasswordTooLong indicates the password exceeds what the scheme can hash
	ErrPasswordTooLong = errors.New("password too long")

	// ErrUnknownScheme indicates an unsupported password hashing scheme
	ErrUnknownScheme = errors.New("unknown password scheme")

	// ErrMalformedHash indicates a stored hash or salt could not be parsed
	ErrMalformedHash = errors.New("malformed password hash")

	// ErrInvalidAttributes indicates profile attributes are not valid JSON
	ErrInvalidAttributes = errors.New("profile attributes must be valid JSON")

	// ErrAttributesSealed indicates stored attributes are encrypted and cannot be
	// opened, either because no key is configured or the key does not match
	ErrAttributesSealed = errors.New("profile attributes are sealed")

	// ErrSaltUnsupported indicates the scheme cannot recompute a hash from an explicit salt
	ErrSaltUnsupported = errors.New("scheme does not accept an explicit salt")
)

// unknownErrorMessage is used when the datastore supplies no message
const unknownErrorMessage = "Unknown error."

// StatementError carries the datastore's native code and message
type StatementError struct {
	Code    string
	Message string
	Err     error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement failed (%s): %s", e.Code, e.Message)
}

// Unwrap exposes both the sentinel and the underlying cause
func (e *StatementError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStatementFailed}
	}
	return []error{ErrStatementFailed, e.Err}
}

// newStatementError maps a collaborator error into a StatementError.
// Postgres errors contribute their SQLSTATE code.
func newStatementError(err error) *StatementError {
	se := &StatementError{Code: "0", Message: unknownErrorMessage, Err: err}
	if err == nil {
		return se
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "" {
			se.Code = pgErr.Code
		}
		if pgErr.Message != "" {
			se.Message = pgErr.Message
		}
		return se
	}

	if msg := err.Error(); msg != "" {
		se.Message = msg
	}
	return se
}
