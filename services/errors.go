package services

import (
	"errors"
	"fmt"

	"github.com/squadran/squadran-api/database"
)

// The façade classifies every failure into one of these kinds; the
// presentation layer owns all user-visible wording.
var (
	// ErrNotFound: the target entity does not exist. Reads treat this as a
	// valid empty outcome; writes that require an existing parent surface it.
	ErrNotFound = errors.New("not found")
	// ErrAccessDenied: role, institution or domain mismatch.
	ErrAccessDenied = errors.New("access denied")
	// ErrBlocked: the account is blocked; any live session must be torn down.
	ErrBlocked = errors.New("account blocked")
	// ErrValidation: a required input field is missing or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrConflict: a unique key (institution code, account email) is taken.
	ErrConflict = errors.New("conflict")
	// ErrTransport: the persistence layer is unreachable. Never retried here.
	ErrTransport = errors.New("storage unavailable")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

func accessDeniedf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrAccessDenied}, args...)...)
}

func conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrConflict}, args...)...)
}

func transportErrf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrTransport}, args...)...)
}

// storeErr maps adapter failures onto the façade taxonomy: document absence
// stays ErrNotFound, anything else is a transport failure.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}
