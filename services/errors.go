package services

import (
	"errors"

	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
)

// storeError translates store sentinels into application errors.
// notFound is the message used for database.ErrNotFound.
func storeError(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return apperr.NotFound(notFound)
	case errors.Is(err, database.ErrDuplicateEmail):
		return apperr.ErrDuplicateEmail
	case errors.Is(err, database.ErrAlreadyEnrolled):
		return apperr.ErrAlreadyEnrolled
	case errors.Is(err, database.ErrAlreadyPurchased):
		return apperr.ErrAlreadyPurchased
	case errors.Is(err, database.ErrInvalidTransition):
		return apperr.Conflict("Payment cannot move to the requested status").Wrap(err)
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(err)
}
