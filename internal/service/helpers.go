package service

import (
	"errors"

	"github.com/andydwyer/flix/pkg/apperror"
	"gorm.io/gorm"
)

func notFoundIfMissing(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.ErrNotFound
	}
	return err
}
