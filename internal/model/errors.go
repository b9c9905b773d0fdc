package model

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// ErrInvalidInput is returned when the request body is neither a JSON
// object nor a JSON array.
var ErrInvalidInput = errors.New("Invalid input format")

// ProcessingError is any failure after the input shape was accepted:
// numeric coercion, dimension checks, scaling or inference.
type ProcessingError struct {
	Err error
}

func processingErr(err error) error {
	if err == nil {
		return nil
	}
	var perr *ProcessingError
	if errors.As(err, &perr) {
		return err
	}
	return &ProcessingError{Err: err}
}

func (e *ProcessingError) Error() string {
	return e.Err.Error()
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

func (e *ProcessingError) Cause() error {
	return e.Err
}

// Format prints the wrapped stack trace for %+v.
func (e *ProcessingError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%+v", e.Err)
		return
	}
	io.WriteString(s, e.Error())
}
