package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"safetrail/internal/errs"
	"safetrail/internal/ports"
)

// numShards spreads per-event locks so unrelated events rarely contend.
const numShards = 128

const defaultTxTimeout = 5 * time.Second

// ShardedUnitOfWork serializes units of work per lock key (see
// ports.WithLockKey). Work without a key falls into shard 0.
type ShardedUnitOfWork struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

var _ ports.UnitOfWork = (*ShardedUnitOfWork)(nil)

func NewShardedUnitOfWork() *ShardedUnitOfWork {
	return &ShardedUnitOfWork{timeout: defaultTxTimeout}
}

type heldShardKey struct{}

func (u *ShardedUnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "unit of work aborted")
	}

	shard := selectShard(ports.LockKeyFromContext(ctx))
	if held, ok := ctx.Value(heldShardKey{}).(int); ok && held == shard {
		return fn(ctx)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	u.shards[shard].Lock()
	defer u.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "unit of work aborted")
	}
	return fn(context.WithValue(ctx, heldShardKey{}, shard))
}

func selectShard(key string) int {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % numShards)
}
