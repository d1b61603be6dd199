package uow

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"safetrail/internal/errs"
	"safetrail/internal/ports"
)

// UnitOfWork implements ports.UnitOfWork with gorm transactions.
type UnitOfWork struct {
	db *gorm.DB
}

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// WithTx joins the transaction already in ctx, if any, so repository helpers
// that open their own unit of work compose with the caller's.
func (u *UnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if ports.TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ports.WithTxContext(ctx, tx))
	})
}
