// Package persistence provides standardized error types for persistence
// operations.
package persistence

import "errors"

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrSubmissionNotFound indicates a submission was not found by the given identifier.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrNodeOutputNotFound indicates no output record exists for the key.
	ErrNodeOutputNotFound = errors.New("node output not found")

	// ErrFrameworkNotFound indicates a framework was not found by the given identifier.
	ErrFrameworkNotFound = errors.New("framework not found")

	// ErrFieldValueNotFound indicates no value is stored for the field.
	ErrFieldValueNotFound = errors.New("field value not found")

	// ErrPendingChangeNotFound indicates a pending change was not found.
	ErrPendingChangeNotFound = errors.New("pending change not found")

	// ErrVersionConflict indicates a compare-and-swap upsert lost against a
	// concurrent write; callers re-read and retry.
	ErrVersionConflict = errors.New("version conflict")
)

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrSubmissionNotFound) ||
		errors.Is(err, ErrNodeOutputNotFound) ||
		errors.Is(err, ErrFrameworkNotFound) ||
		errors.Is(err, ErrFieldValueNotFound) ||
		errors.Is(err, ErrPendingChangeNotFound)
}

// IsVersionConflict reports whether err is a compare-and-swap rejection.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
