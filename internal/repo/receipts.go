package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-shop-sync/internal/domain"
)

// ErrDuplicate is returned by SaveReceipt when the submit already has a
// receipt.
var ErrDuplicate = errors.New("repo: receipt already stored")

// FindReceipt returns the live receipt for (userID, draftID, key), or
// ErrNotFound when there is none or it expired before now.
func FindReceipt(ctx context.Context, db *gorm.DB, userID, draftID, key string, now time.Time) (*domain.SubmitReceipt, error) {
	if userID == "" || draftID == "" || key == "" {
		return nil, ErrNotFound
	}
	var r domain.SubmitReceipt
	err := db.WithContext(ctx).
		Where(&domain.SubmitReceipt{UserID: userID, DraftID: draftID, Key: key}).
		Where("expires_at > ?", now.UTC()).
		Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SaveReceipt stores r. The first receipt of a submit wins; later ones get
// ErrDuplicate and leave it untouched.
func SaveReceipt(ctx context.Context, db *gorm.DB, r *domain.SubmitReceipt) error {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(r)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

// PurgeReceipts deletes receipts that expired at or before now and returns
// how many went.
func PurgeReceipts(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&domain.SubmitReceipt{})
	return res.RowsAffected, res.Error
}
