package models

import (
	"time"
)

// Subscriber is the per-phone-number consent record for SMS notifications.
// OptedOut is kept separately from OptedIn so a number that texted STOP is
// distinguishable from one we have simply never heard from.
type Subscriber struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Phone     string     `gorm:"size:32;not null;uniqueIndex"`
	OptedIn   bool       `gorm:"default:false;index"`
	OptedOut  bool       `gorm:"default:false"`
	OptInAt   *time.Time
	OptOutAt  *time.Time
}
