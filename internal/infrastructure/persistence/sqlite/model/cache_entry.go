package model

import "time"

// CacheEntry.ExpiresAt is in unix nanoseconds so expiry compares numerically.
type CacheEntry struct {
	Key       string    `gorm:"column:key;type:text;primaryKey"`
	Value     string    `gorm:"column:value;type:text;not null"`
	ExpiresAt *int64    `gorm:"column:expires_at;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (CacheEntry) TableName() string {
	return "cache_entries"
}
