package document

import "errors"

var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrEntityNotFound     = errors.New("entity not found")
	ErrConstraintNotFound = errors.New("constraint not found")

	// ErrDependencyViolation is returned when a reorder would place a group
	// before one it depends on. The document is left unchanged.
	ErrDependencyViolation = errors.New("group would precede a dependency")

	ErrUnsupportedVersion = errors.New("unsupported document version")
	ErrMalformed          = errors.New("malformed document")
)
