package domain

import "errors"

// Error kinds. Concrete failures wrap one of these with Wrap so callers can
// classify them with errors.Is while the message stays the underlying one.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failure")
	ErrCredential = errors.New("credential unavailable")
	ErrGeneration = errors.New("generation failed")
)

// ErrPromptRequired is returned when a job is submitted without a prompt.
var ErrPromptRequired = Wrap(ErrValidation, errors.New("prompt is required"))

type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string   { return e.err.Error() }
func (e *kindError) Unwrap() []error { return []error{e.kind, e.err} }

// Wrap tags err with kind. Wrapping nil returns nil; an err that already
// carries kind is returned unchanged.
func Wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return &kindError{kind: kind, err: err}
}
