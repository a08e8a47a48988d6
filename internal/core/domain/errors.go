package domain

import (
	"errors"
	"fmt"
)

// Kind tags every failure the core can report. The set is closed: the API
// layer maps each kind to a transport status through a lookup table.
type Kind uint8

const (
	KindNotAuthenticated Kind = iota + 1
	KindNotValidCredentials
	KindInactiveUser
	KindForbidden
	KindUserAlreadyExists
	KindUserNotFound
	KindRoleNotFound
	KindInvalidPassword
	KindIncorrectPassword
	KindCannotDeleteSuperuser
	KindInvalidToken
	KindEmailDisabled
)

var kindNames = map[Kind]string{
	KindNotAuthenticated:      "not_authenticated",
	KindNotValidCredentials:   "not_valid_credentials",
	KindInactiveUser:          "inactive_user",
	KindForbidden:             "forbidden",
	KindUserAlreadyExists:     "user_already_exists",
	KindUserNotFound:          "user_not_found",
	KindRoleNotFound:          "role_not_found",
	KindInvalidPassword:       "invalid_password",
	KindIncorrectPassword:     "incorrect_password",
	KindCannotDeleteSuperuser: "cannot_delete_superuser",
	KindInvalidToken:          "invalid_token",
	KindEmailDisabled:         "email_disabled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is the single error type raised by the core.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrUserNotFound)
// holds for every user-not-found error regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotAuthenticated      = &Error{Kind: KindNotAuthenticated, Message: "incorrect username or password"}
	ErrNotValidCredentials   = &Error{Kind: KindNotValidCredentials, Message: "could not validate credentials"}
	ErrInactiveUser          = &Error{Kind: KindInactiveUser, Message: "inactive user"}
	ErrForbidden             = &Error{Kind: KindForbidden, Message: "the user doesn't have enough privileges"}
	ErrUserAlreadyExists     = &Error{Kind: KindUserAlreadyExists, Message: "user already exists"}
	ErrUserNotFound          = &Error{Kind: KindUserNotFound, Message: "user not found"}
	ErrRoleNotFound          = &Error{Kind: KindRoleNotFound, Message: "role not found"}
	ErrInvalidPassword       = &Error{Kind: KindInvalidPassword, Message: "incorrect password"}
	ErrIncorrectPassword     = &Error{Kind: KindIncorrectPassword, Message: "new password cannot be the same as the current one"}
	ErrCannotDeleteSuperuser = &Error{Kind: KindCannotDeleteSuperuser, Message: "super users are not allowed to delete themselves"}
	ErrInvalidToken          = &Error{Kind: KindInvalidToken, Message: "invalid token"}
	ErrEmailDisabled         = &Error{Kind: KindEmailDisabled, Message: "emails are disabled"}
)

// UserAlreadyExists names the field that collided.
func UserAlreadyExists(field string) *Error {
	return &Error{
		Kind:    KindUserAlreadyExists,
		Message: fmt.Sprintf("user with this %s already exists", field),
	}
}

// KindOf extracts the kind of err, or zero when err is not a core error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
