package services

import "errors"

// ErrValidation marks a request rejected for missing or malformed fields.
// Wrap it with the field detail: fmt.Errorf("%w: company is required", ErrValidation).
var ErrValidation = errors.New("validation failed")

// ErrStorageUnavailable is returned by file operations when no object
// storage backend is configured.
var ErrStorageUnavailable = errors.New("object storage not configured")
