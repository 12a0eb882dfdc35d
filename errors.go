package gotauth

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUserNotFound is returned (possibly wrapped) by CredentialStore
// implementations when no record matches the lookup key.  Any other store
// error is treated as an infrastructure failure.
var ErrUserNotFound = errors.New("user not found")

// ErrorKind classifies every failure surfaced by the auth flows.
type ErrorKind int

const (
	// KindInfrastructure covers storage or transport failures.  It carries no
	// status of its own and is reported as a 500 by convention.
	KindInfrastructure ErrorKind = iota
	KindNotFound
	KindUnauthorized
	KindConflict
	// KindHashing is raised when the slow hash primitive itself fails.
	KindHashing
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindHashing:
		return "hashing_failure"
	default:
		return "infrastructure_failure"
	}
}

// Status returns the HTTP status conventionally used for the kind.
func (k ErrorKind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// AuthError is the error value returned by every exported flow.
type AuthError struct {
	Kind    ErrorKind
	Message string
	Field   string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// Status returns the HTTP status for the error's kind.
func (e *AuthError) Status() int { return e.Kind.Status() }

// NewAuthError creates an AuthError of the given kind.
func NewAuthError(kind ErrorKind, message string) *AuthError {
	return &AuthError{Kind: kind, Message: message}
}

// Messages used by the flows.  Login deliberately has a single message for
// every credential failure.
const (
	MsgNotFound           = "Not Found!"
	MsgInvalidCredentials = "Invalid username/password!"
	MsgEmailTaken         = "User already exist! Try another email."
	MsgNotLoggedIn        = "User not logged in!"
	MsgInvalidPassword    = "Invalid password!"
)

func errNotFound() *AuthError {
	return &AuthError{Kind: KindNotFound, Message: MsgNotFound}
}

func errInfrastructure(op string, err error) *AuthError {
	return &AuthError{Kind: KindInfrastructure, Message: op, Err: err}
}

func errHashing(op string, err error) *AuthError {
	return &AuthError{Kind: KindHashing, Message: op, Err: err}
}

// KindOf reports the kind of err.  Errors that are not AuthErrors are
// infrastructure failures.
func KindOf(err error) ErrorKind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindInfrastructure
}

// StatusOf returns the HTTP status for err, 200 when err is nil.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return KindOf(err).Status()
}

// IsNotFound reports whether err is a NotFound AuthError.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}
