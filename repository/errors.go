package repository

import (
	"errors"

	"scanndine/apperr"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// storeErr maps gorm errors onto ErrNotFound / ErrDuplicate and wraps every
// other fault as an upstream failure.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return apperr.Upstream(op, err)
	}
}
