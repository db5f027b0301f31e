package ports

import "context"

// Tx is an opaque transaction handle; the persistence adapter decides the
// concrete type (*gorm.DB for the rdb adapter).
type Tx interface{}

// UnitOfWork runs fn inside one transaction. A non-nil error from fn rolls
// back every write made through ctx; nil commits.
//
// Nested calls join the outer transaction.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the handle stored by WithTxContext, or nil.
func TxFromContext(ctx context.Context) Tx {
	if ctx == nil {
		return nil
	}
	return ctx.Value(txKey{})
}
