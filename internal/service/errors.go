package service

import "errors"

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("email or password does not match")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("email already registered")
	ErrOtpInvalid    = errors.New("otp invalid")
	ErrOtpExpired    = errors.New("otp expired")
	ErrNotFound      = errors.New("not found")
	ErrMisconfigured = errors.New("auth config invalid")
)
