package cli

import (
	"errors"

	"github.com/bryanwahyu/forensic-lab/internal/domain/failure"
)

// operatorError shows only the operator message and keeps err for errors.Is.
type operatorError struct {
	msg string
	err error
}

func (e *operatorError) Error() string { return e.msg }
func (e *operatorError) Unwrap() error { return e.err }

func present(err error) error {
	if err == nil {
		return nil
	}
	var fe *failure.Error
	if !errors.As(err, &fe) {
		return err
	}
	return &operatorError{msg: failure.MessageOf(err), err: err}
}
