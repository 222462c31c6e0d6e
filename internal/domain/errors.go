package domain

import "errors"

// Error kinds. Match them with errors.Is.
var (
	// ErrConfiguration is fatal and aborts the whole run.
	ErrConfiguration = errors.New("configuration error")
	// ErrExtraction is scoped to one repository; the run continues without it.
	ErrExtraction = errors.New("extraction error")
	// ErrConsistency excludes one record from the aggregate.
	ErrConsistency = errors.New("aggregation consistency error")
	// ErrRender signals malformed unified statistics reaching the renderer.
	ErrRender = errors.New("render error")
)

// Error ties a cause to an error kind and the subject it concerns
// (a repository name, a config path).
type Error struct {
	Kind    error
	Subject string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Subject != "" {
		msg = e.Subject + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError creates a new Error of the given kind.
func NewError(kind error, subject string, err error) *Error {
	return &Error{
		Kind:    kind,
		Subject: subject,
		Err:     err,
	}
}
