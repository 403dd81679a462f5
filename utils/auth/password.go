package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned when a password does not match the stored
// hash. Callers surface it as a generic bad-credentials failure so login
// responses never reveal whether the account exists.
var ErrPasswordMismatch = errors.New("password does not match")

// hashCost is the bcrypt work factor for account credentials.
const hashCost = 12

// MinPasswordLength is the shortest password the signup flow accepts. The
// policy check lives in the auth service; HashPassword assumes its input
// already passed it.
const MinPasswordLength = 8

// HashPassword derives the bcrypt hash stored on an account record.
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// VerifyPassword compares a candidate password against an account's hash.
func VerifyPassword(hashedPassword, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	}
	return nil
}
