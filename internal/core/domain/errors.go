package domain

import "errors"

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrConfig       = errors.New("server configuration error")
	ErrUpstream     = errors.New("upstream error")
)

var (
	ErrUserNotFound        = newError(ErrNotFound, "User not found")
	ErrNoLocalCredential   = newError(ErrUnauthorized, "Account has no password, sign in with its provider")
	ErrInvalidCredential   = newError(ErrUnauthorized, "Invalid password")
	ErrInvalidRefreshToken = newError(ErrUnauthorized, "Invalid or expired refresh token")
	ErrMissingRefreshToken = newError(ErrUnauthorized, "Refresh token not found")
	ErrInvalidSession      = newError(ErrUnauthorized, "Invalid session")
	ErrNotLoggedIn         = newError(ErrUnauthorized, "Not logged in")
	ErrEmailTaken          = newError(ErrConflict, "Email already in use")
	ErrMissingFields       = newError(ErrValidation, "Missing fields")
	ErrMissingSecret       = newError(ErrConfig, "Server configuration error")
	ErrUnsupportedProvider = newError(ErrNotFound, "Unsupported identity provider")
	ErrIncompleteProfile   = newError(ErrValidation, "Provider profile lacks an account id or email")
)

// Error is a classified failure with a message that is safe to show to
// clients. Its kind is one of the sentinel errors above.
type Error struct {
	kind error
	msg  string
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// PublicMessage returns the client-facing message of the first *Error in
// err's chain.
func PublicMessage(err error) (string, bool) {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.msg, true
	}
	return "", false
}
