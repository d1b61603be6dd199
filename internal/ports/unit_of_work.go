package ports

import "context"

// Tx is an opaque transaction handle for repositories/adapters.
// Infrastructure controls the concrete type (for example, *gorm.DB).
type Tx interface{}

// UnitOfWork defines a transaction boundary.
//
// Callback-style: returning an error asks for rollback, returning nil commits.
// Stores without rollback (the memory store) only serialize; callers detect
// half-applied work by re-reading.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

type lockKey struct{}

// WithTxContext stores a transaction handle in context.
func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext reads a transaction handle from context.
func TxFromContext(ctx context.Context) Tx {
	return ctx.Value(txKey{})
}

// WithLockKey names the aggregate a unit of work touches so lock-based
// implementations can serialize per key instead of globally.
func WithLockKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, lockKey{}, key)
}

func LockKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(lockKey{}).(string)
	return key
}
