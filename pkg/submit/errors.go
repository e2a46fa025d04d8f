package submit

import (
	"errors"
	"fmt"
)

// Kind classifies a submission failure. Every failed submission resolves to
// exactly one kind, surfaced to the caller as the terminal Failed reason.
type Kind string

const (
	// KindValidation: caller input insufficient; nothing remote was touched.
	KindValidation Kind = "validation"
	// KindAuthentication: the supplied credential was rejected.
	KindAuthentication Kind = "authentication"
	// KindEncoding: optional pre-processing failed (normally degraded, not fatal).
	KindEncoding Kind = "encoding"
	// KindUpload: one or more file transfers failed; media may be partially uploaded.
	KindUpload Kind = "upload"
	// KindPersistence: the final write failed after media was uploaded.
	KindPersistence Kind = "persistence"
)

// Error wraps an underlying failure with its submission kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func failure(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func failuref(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
