package models

import "time"

// ShortLink maps a recipe to its short code. Assigned once and never reassigned.
type ShortLink struct {
	ID        uint      `gorm:"primarykey"`
	RecipeID  uint      `gorm:"not null;uniqueIndex"`
	Code      string    `gorm:"size:16;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Recipe Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}
