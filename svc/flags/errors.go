package flags

import (
	"errors"

	"github.com/dmitrymomot/flagkit/svc/flagstore"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrValidation = errors.New("validation failed")
	// ErrPreconditionFailed is returned when an expected flag version does
	// not match the stored one.
	ErrPreconditionFailed = errors.New("precondition failed")
)

// storeError maps store sentinels to service sentinels, keeping the cause.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, flagstore.ErrNotFound):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, flagstore.ErrDuplicateKey):
		return errors.Join(ErrConflict, err)
	case errors.Is(err, flagstore.ErrVersionMismatch):
		return errors.Join(ErrPreconditionFailed, err)
	}
	return err
}

func validationError(err error) error {
	return errors.Join(ErrValidation, err)
}
