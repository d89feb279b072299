// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the storage functions behind the
// storefront cache: one row per namespaced key, overwritten on every write.
//
// Functions are thin: no envelope decoding or staleness logic lives here
// (see package cache). Missing rows are reported as ErrNotFound.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-shop-sync/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience.
var ErrNotFound = gorm.ErrRecordNotFound

// GetCacheEntry returns the entry stored under key, or ErrNotFound.
func GetCacheEntry(ctx context.Context, db *gorm.DB, key string) (*domain.CacheEntry, error) {
	var e domain.CacheEntry
	err := db.WithContext(ctx).Where("key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// PutCacheEntry inserts or overwrites the entry stored under key.
func PutCacheEntry(ctx context.Context, db *gorm.DB, key, value string, at time.Time) error {
	e := &domain.CacheEntry{Key: key, Value: value, WrittenAt: at.UTC()}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "written_at"}),
		}).
		Create(e).Error
}

// DeleteCacheEntries removes the given keys. Missing keys are not an error.
func DeleteCacheEntries(ctx context.Context, db *gorm.DB, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return db.WithContext(ctx).Where("key IN ?", keys).Delete(&domain.CacheEntry{}).Error
}

// DeleteCacheEntriesWithPrefix removes every entry whose key starts with
// prefix and returns the number of rows deleted. The comparison is a literal
// substring match, so "_" and "%" in prefix are not wildcards.
func DeleteCacheEntriesWithPrefix(ctx context.Context, db *gorm.DB, prefix string) (int64, error) {
	if prefix == "" {
		return 0, errors.New("empty prefix")
	}
	res := db.WithContext(ctx).
		Where("substr(key, 1, ?) = ?", len(prefix), prefix).
		Delete(&domain.CacheEntry{})
	return res.RowsAffected, res.Error
}

// CacheStats returns the number of entries under prefix and the most recent
// write time among them (nil when there are none).
func CacheStats(ctx context.Context, db *gorm.DB, prefix string) (count int64, lastWrite *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.CacheEntry{}).Where("substr(key, 1, ?) = ?", len(prefix), prefix)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest written_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		WrittenAt time.Time
	}
	if err = q.Select("written_at").Order("written_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.WrittenAt, nil
}
