package entity

import "errors"

// Domain errors
var (
	// Auth errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrTokenExpired     = errors.New("token expired")

	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrNoQuestions     = errors.New("session has no questions to populate")

	// Populate job errors
	ErrJobNotFound = errors.New("populate job not found")

	// Outreach errors
	ErrEmptySubject    = errors.New("email subject is empty")
	ErrEmptyBody       = errors.New("email body is empty")
	ErrUnknownTemplate = errors.New("unknown email template")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidParameter = errors.New("invalid parameter")
)
