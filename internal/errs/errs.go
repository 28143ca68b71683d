// Package errs classifies the failures the measurement pipeline reports to
// its callers.
//
// Three kinds are distinguished:
//   - Configuration: an unknown analyzer name, an invalid mapping mode or
//     an unusable preset.
//   - Metadata: a calibration field required by the chosen strategy is absent.
//   - Decode: a photon file is truncated or carries a zero sync rate.
//
// Geometry degeneracies (too few points to triangulate or cluster) are not
// errors and never surface here.
package errs

import (
	"errors"
	"fmt"
)

// Kind is the classification of an Error.
type Kind int

const (
	// Configuration covers caller mistakes in names, modes or presets.
	Configuration Kind = iota
	// Metadata covers calibration fields that are missing or unusable.
	Metadata
	// Decode covers malformed binary input.
	Decode
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Metadata:
		return "metadata"
	case Decode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with its Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error from a formatted message.
func New(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies an existing error. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether any error in err's chain is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
