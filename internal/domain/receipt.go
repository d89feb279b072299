package domain

import "time"

// SubmitReceipt remembers that a draft was added to the cart under a given
// Idempotency-Key. While it has not expired, a retried submit with the same
// (user, draft, key) is answered from it instead of reaching the cart again.
type SubmitReceipt struct {
	UserID    string    `gorm:"type:varchar(128);primaryKey"`
	DraftID   string    `gorm:"type:varchar(64);primaryKey"`
	Key       string    `gorm:"type:varchar(200);primaryKey"`
	ProductID string    `gorm:"type:varchar(128);not null"`
	Quantity  int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

func (SubmitReceipt) TableName() string { return "submit_receipts" }

// Live reports whether r may still be replayed at now.
func (r SubmitReceipt) Live(now time.Time) bool { return now.Before(r.ExpiresAt) }
