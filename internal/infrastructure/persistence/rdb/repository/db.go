package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"trustscore/internal/ports"
)

const dialectPostgres = "postgres"

// dbFromContext returns the ambient transaction when ctx carries one and the
// base handle otherwise.
func dbFromContext(base *gorm.DB, ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return base.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

// inTx runs fn in the ambient transaction, or in a new one when ctx has none.
func inTx(base *gorm.DB, ctx context.Context, fn func(db *gorm.DB) error) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if ports.TxFromContext(ctx) != nil {
		db, err := dbFromContext(base, ctx)
		if err != nil {
			return err
		}
		return fn(db)
	}
	return base.WithContext(ctx).Transaction(fn)
}

func isPostgres(db *gorm.DB) bool {
	return db != nil && db.Dialector != nil && db.Dialector.Name() == dialectPostgres
}
