package spectral

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures
type ErrorKind int

const (
	KindInvalidConfiguration ErrorKind = iota + 1
	KindInsufficientSignalLength
	KindAllocationFailure
	KindTransformFailure
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidConfiguration:
		return "InvalidConfiguration"
	case KindInsufficientSignalLength:
		return "InsufficientSignalLength"
	case KindAllocationFailure:
		return "AllocationFailure"
	case KindTransformFailure:
		return "TransformFailure"
	case KindCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// Sentinels matched with errors.Is against any *Error of the same kind
var (
	ErrInvalidConfiguration     = errors.New("invalid configuration")
	ErrInsufficientSignalLength = errors.New("insufficient signal length")
	ErrAllocationFailure        = errors.New("allocation failure")
	ErrTransformFailure         = errors.New("transform failure")
	ErrCanceled                 = errors.New("computation canceled")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidConfiguration:
		return ErrInvalidConfiguration
	case KindInsufficientSignalLength:
		return ErrInsufficientSignalLength
	case KindAllocationFailure:
		return ErrAllocationFailure
	case KindTransformFailure:
		return ErrTransformFailure
	case KindCanceled:
		return ErrCanceled
	default:
		return nil
	}
}

// Error is the typed failure returned by the engine. It never accompanies a
// non-nil Result.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes both the kind sentinel and the underlying cause
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
}

// KindOf returns the kind of an engine error, or 0 if err is not one
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
