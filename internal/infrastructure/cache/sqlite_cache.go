package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"safetrail/internal/errs"
	"safetrail/internal/infrastructure/persistence/sqlite/model"
	"safetrail/internal/ports"
)

// SQLiteCache keeps entries in the cache_entries table of the event database.
type SQLiteCache struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.Cache = (*SQLiteCache)(nil)

func NewSQLiteCache(db *gorm.DB) *SQLiteCache {
	return &SQLiteCache{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (c *SQLiteCache) Get(ctx context.Context, key string) (string, bool, error) {
	db, trimmedKey, err := c.prepare(ctx, key)
	if err != nil {
		return "", false, err
	}

	var row model.CacheEntry
	if err := db.Where("key = ?", trimmedKey).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, errs.Wrap(err, "query cache by key")
	}
	if row.ExpiresAt != nil && c.now().UnixNano() >= *row.ExpiresAt {
		return "", false, nil
	}

	return row.Value, true, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	db, trimmedKey, err := c.prepare(ctx, key)
	if err != nil {
		return err
	}

	now := c.now()
	row := model.CacheEntry{
		Key:       trimmedKey,
		Value:     value,
		UpdatedAt: now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl).UnixNano()
		row.ExpiresAt = &expiresAt
	}

	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"expires_at": row.ExpiresAt,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert cache key")
	}

	return nil
}

// Purge drops every expired entry and reports how many were removed.
func (c *SQLiteCache) Purge(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, errs.Wrap(err, "check context")
	}
	db, err := c.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}
	res := db.Where("expires_at IS NOT NULL AND expires_at <= ?", c.now().UnixNano()).Delete(&model.CacheEntry{})
	if res.Error != nil {
		return 0, errs.Wrap(res.Error, "purge expired cache keys")
	}
	return res.RowsAffected, nil
}

func (c *SQLiteCache) prepare(ctx context.Context, key string) (*gorm.DB, string, error) {
	if ctx == nil {
		return nil, "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, "", errs.Wrap(err, "check context")
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return nil, "", errors.New("key is required")
	}

	db, err := c.dbFromContext(ctx)
	if err != nil {
		return nil, "", err
	}
	return db, trimmedKey, nil
}

func (c *SQLiteCache) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return c.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}
