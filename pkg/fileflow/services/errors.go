package services

import "errors"

var (
	ErrCodeGenerationExhausted = errors.New("could not generate unique code after multiple attempts")
	// ErrCodeTaken means the insert lost a race for the code; retry with a new one.
	ErrCodeTaken           = errors.New("code already registered")
	ErrRegistrationFailed  = errors.New("failed to register artifact")
	ErrNotFound            = errors.New("image not found")
	ErrInvalidCode         = errors.New("invalid verification code")
	ErrCodeRequired        = errors.New("verification code is required")
	ErrTooManyAttempts     = errors.New("too many verification attempts")
	ErrUpstreamUnavailable = errors.New("storage backend unavailable")

	ErrFileTooLarge     = errors.New("file too large")
	ErrEmptyFile        = errors.New("file is empty")
	ErrUnsupportedType  = errors.New("file is not an image")
	ErrInvalidURL       = errors.New("invalid URL format")
	ErrImageUnreachable = errors.New("unable to access image URL or URL does not point to a valid image")
)
