package optimization

import (
	"errors"
	"fmt"
)

// Kind classifies an optimization error.
type Kind int

const (
	// KindInternal covers errors with no more specific classification.
	KindInternal Kind = iota
	// KindInvalidDomain marks an input point outside the parameter space.
	KindInvalidDomain
	// KindInvalidModelOutput marks a surrogate model reporting a negative
	// variance or a mean/variance shape mismatch.
	KindInvalidModelOutput
	// KindEvaluation marks a failed or malformed objective evaluation.
	KindEvaluation
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindInvalidDomain:
		return "invalid_domain"
	case KindInvalidModelOutput:
		return "invalid_model_output"
	case KindEvaluation:
		return "evaluation"
	default:
		return "internal"
	}
}

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Kind classifies the error.
	Kind Kind
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component
	} else if e.Op != "" {
		prefix = e.Op
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// NewError creates a new internal optimization error with the given message.
func NewError(message string) *Error {
	return &Error{Message: message}
}

// NewErrorf creates a new internal optimization error with formatted message.
func NewErrorf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// NewInvalidDomainf reports an input point outside the parameter space.
func NewInvalidDomainf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidDomain, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidModelOutputf reports an invalid surrogate model prediction.
func NewInvalidModelOutputf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidModelOutput, Message: fmt.Sprintf(format, args...)}
}

// NewEvaluationf reports a failed or malformed objective evaluation.
func NewEvaluationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindEvaluation, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an existing error with additional context, preserving
// its kind when it already is an optimization error.
// If err is nil, WrapError returns nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    KindOf(err),
		Message: message,
		Err:     err,
	}
}

// WrapErrorf wraps an existing error with additional formatted context.
// If err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    KindOf(err),
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// WrapEvaluation wraps an objective failure as an evaluation error.
func WrapEvaluation(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindEvaluation, Message: message, Err: err}
}

// KindOf returns the kind of the first optimization error in err's
// chain, or KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err's chain contains an optimization error of
// the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
