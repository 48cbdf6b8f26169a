package models

import (
	"time"
)

// FoundDisc is a disc turned in to the lost-and-found. Brand/Mold/Phone are
// whatever the image analysis (or the person at the counter) could read off
// the disc; any of them may be empty.
type FoundDisc struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Brand     string `gorm:"size:128"`
	Mold      string `gorm:"size:128"`
	// ColorFamily is Red/Blue/Yellow/Unknown per the color classifier.
	ColorFamily string `gorm:"size:32"`
	// Phone is the number written on the disc, digits only.
	Phone     string `gorm:"size:32;index"`
	Course    string `gorm:"size:255"`
	Claimed   bool   `gorm:"default:false;index"`
	ClaimedAt *time.Time
}
