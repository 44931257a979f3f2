// Package validate holds the pure parameter rules shared by the HTTP layer
// and the portfolio repository. Every rule returns nil or a *ParamError.
package validate

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingParameter marks a required field that was absent.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrInvalidParameter marks a field that was present but malformed.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ParamError names the offending field. It unwraps to ErrMissingParameter
// or ErrInvalidParameter.
type ParamError struct {
	Field string
	Kind  error
}

func (e *ParamError) Error() string {
	if errors.Is(e.Kind, ErrMissingParameter) {
		return fmt.Sprintf("missing required %q parameter", e.Field)
	}
	return fmt.Sprintf("invalid %q parameter", e.Field)
}

func (e *ParamError) Unwrap() error { return e.Kind }

// Missing reports that field was not supplied.
func Missing(field string) error {
	return &ParamError{Field: field, Kind: ErrMissingParameter}
}

// Invalid reports that field failed its format check.
func Invalid(field string) error {
	return &ParamError{Field: field, Kind: ErrInvalidParameter}
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
