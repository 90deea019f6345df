package services

import (
	"errors"

	"github.com/jackc/pgx/v4"

	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

// storeErr classifies a repository error. Engine error kinds pass through,
// a vanished row becomes not-found and anything else is a store outage.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, utils.ErrValidation),
		errors.Is(err, utils.ErrPreconditionFailed),
		errors.Is(err, utils.ErrInvalidStateTransition),
		errors.Is(err, utils.ErrNotFound),
		errors.Is(err, utils.ErrRowVersionConflict),
		errors.Is(err, utils.ErrDependencyUnavailable):
		return err
	case errors.Is(err, pgx.ErrNoRows):
		return utils.NotFoundf("%s", op)
	default:
		return utils.Unavailable(op, err)
	}
}

// errNoChange aborts an update loop when the row is already in the target state.
var errNoChange = errors.New("no_change")
