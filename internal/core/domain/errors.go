package domain

import "errors"

// Sentinel errors for business-rule violations. Call sites wrap them with
// fmt.Errorf("...: %w", ...) so the message carries the offending field or
// identifier while errors.Is still matches the category.
var (
	// ErrNotFound marks a referenced entity (user, role, or the default-role
	// configuration) that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate marks a username or email uniqueness violation.
	ErrDuplicate = errors.New("already exists")

	// ErrValidation marks a payload that breaks a business rule independent
	// of storage state, e.g. updating a user to zero roles.
	ErrValidation = errors.New("validation failed")
)
