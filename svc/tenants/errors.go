package tenants

import (
	"errors"

	"github.com/dmitrymomot/flagkit/svc/flagstore"
)

var (
	ErrNotFound   = errors.New("tenant not found")
	ErrConflict   = errors.New("tenant slug already exists")
	ErrValidation = errors.New("validation failed")
)

func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, flagstore.ErrNotFound):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, flagstore.ErrDuplicateKey):
		return errors.Join(ErrConflict, err)
	}
	return err
}
