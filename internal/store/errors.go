package store

import (
	"errors"

	"gorm.io/gorm"
)

// translate maps gorm errors onto the store sentinels. The database must be
// opened with TranslateError so unique violations surface as ErrDuplicatedKey.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
