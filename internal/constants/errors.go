package constants

import "errors"

// Configuration errors.
var (
	ErrNoBaseURLConfigured = errors.New("no API endpoint configured, use 'ghe login', 'ghe config add-api' or --api")
	ErrUnknownConfigKey    = errors.New("unknown configuration key")
)

// Validation errors.
var (
	ErrInvalidEnforcement = errors.New("enforcement must be one of enabled, disabled, testing")
	ErrInvalidRepository  = errors.New("repository must be in OWNER/REPO form")
	ErrNothingToUpdate    = errors.New("no fields to update were given")
)

// Operation errors.
var (
	ErrDownloadFailed  = errors.New("pre-receive environment download failed")
	ErrDeleteCancelled = errors.New("delete cancelled")
)
