// pkg/akerr/types.go

package akerr

import "errors"

// ErrSecretNotFound is returned when the vault has no item for the requested id.
var ErrSecretNotFound = errors.New("vault secret not found")

// UserError marks an error as expected and recoverable by the operator.
type UserError struct {
	cause error
}

func (e *UserError) Error() string {
	return e.cause.Error()
}

func (e *UserError) Unwrap() error {
	return e.cause
}
