package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMobile = errors.New("invalid mobile number")
	ErrInvalidOTP    = errors.New("invalid OTP format")

	ErrOTPNotFound     = errors.New("OTP not found")
	ErrOTPExpired      = errors.New("OTP expired")
	ErrTooManyAttempts = errors.New("too many wrong attempts")

	ErrUnauthorized  = errors.New("unauthorized")
	ErrMissingFields = errors.New("missing required fields")

	ErrSubmissionNotFound = errors.New("submission not found")
)

// WrongCodeError is returned when the submitted code does not match the
// stored one but the attempt limit has not been reached yet.
type WrongCodeError struct {
	Remaining int
}

func (e *WrongCodeError) Error() string {
	return fmt.Sprintf("wrong OTP, %d attempt(s) left", e.Remaining)
}
