package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-shop-sync/internal/repo"
)

// GormBackend stores entries in the cache_entries table.
type GormBackend struct {
	DB *gorm.DB
}

// NewGormBackend returns a Backend over db. The table must be migrated
// (repo.AutoMigrate).
func NewGormBackend(db *gorm.DB) *GormBackend {
	return &GormBackend{DB: db}
}

func (b *GormBackend) Load(ctx context.Context, key string) ([]byte, error) {
	e, err := repo.GetCacheEntry(ctx, b.DB, key)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return []byte(e.Value), nil
}

func (b *GormBackend) Store(ctx context.Context, key string, val []byte, at time.Time) error {
	return repo.PutCacheEntry(ctx, b.DB, key, string(val), at)
}

func (b *GormBackend) Delete(ctx context.Context, keys ...string) error {
	return repo.DeleteCacheEntries(ctx, b.DB, keys...)
}

func (b *GormBackend) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := repo.DeleteCacheEntriesWithPrefix(ctx, b.DB, prefix)
	return err
}
