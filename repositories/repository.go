package repositories

import (
	"context"
	"errors"

	"foodgram-api/apperrors"

	"gorm.io/gorm"
)

// Transactor runs fn inside one database transaction. Returning an error rolls everything back.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) Transactor {
	return &transactor{db: db}
}

func (t *transactor) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

// translate maps gorm sentinel errors onto domain errors. what names the entity for messages.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFoundf("%s not found", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Wrapf(err, apperrors.CodeConflict, "%s already exists", what)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperrors.Wrapf(err, apperrors.CodeNotFound, "%s references a missing record", what)
	default:
		return err
	}
}

func paginate(db *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		db = db.Limit(limit)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}
	return db
}
