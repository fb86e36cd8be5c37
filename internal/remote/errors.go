package remote

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures from the remote resource source.
type ErrorKind string

const (
	// KindUnauthorized indicates a per-type 401/403-class failure. The
	// import engine disables the type for the tenant until an explicit
	// reset.
	KindUnauthorized ErrorKind = "UNAUTHORIZED"

	// KindNotEntitled indicates the tenant is not subscribed to the
	// product feature backing the type. Treated like KindUnauthorized.
	KindNotEntitled ErrorKind = "NOT_ENTITLED"

	// KindTransient indicates a network or rate-limit failure eligible for
	// retry on a later run or pass.
	KindTransient ErrorKind = "TRANSIENT"

	// KindConflict indicates a create hit an already-existing same-named
	// resource. The push engine falls back to a name lookup and update.
	KindConflict ErrorKind = "CONFLICT"

	// KindFatal indicates a tenant-level failure (auth, malformed input)
	// that aborts the entire run immediately.
	KindFatal ErrorKind = "FATAL"
)

// Error is a classified failure from a collaborator call.
type Error struct {
	// Kind identifies the failure category.
	Kind ErrorKind

	// ResourceType names the affected type, when the failure is per-type.
	ResourceType string

	// Message is a human-readable description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ResourceType != "" {
		return fmt.Sprintf("%s: %s (type=%s)", e.Kind, e.Message, e.ResourceType)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error.
func NewError(kind ErrorKind, resourceType, message string) *Error {
	return &Error{Kind: kind, ResourceType: resourceType, Message: message}
}

// WrapError wraps an underlying error with a classification.
func WrapError(kind ErrorKind, resourceType, message string, err error) *Error {
	return &Error{Kind: kind, ResourceType: resourceType, Message: message, Err: err}
}

// KindOf extracts the classification from an error chain.
// Unclassified errors are treated as transient.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindTransient
}

// IsAuthError reports whether the error is an entitlement or authorization
// failure that should disable the type.
func IsAuthError(err error) bool {
	k := KindOf(err)
	return k == KindUnauthorized || k == KindNotEntitled
}

// IsConflict reports whether the error is a create conflict.
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// IsFatal reports whether the error aborts the whole run.
func IsFatal(err error) bool {
	return KindOf(err) == KindFatal
}
