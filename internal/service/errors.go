package service

import "errors"

// Domain errors. Handlers map them to HTTP statuses.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account locked")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("Email already exists")
	ErrNicknameTaken      = errors.New("Nickname already exists")
	ErrRoleTransition     = errors.New("role transition not allowed")
	ErrRoleChangeDenied   = errors.New("role can only be changed by an administrator")
	ErrSelfDelete         = errors.New("cannot delete your own account")
	ErrInvalidTimeRange   = errors.New("invalid time range: from must be <= to")
)
