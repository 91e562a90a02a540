package models

import "time"

type Favorite struct {
	ID        uint      `gorm:"primarykey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorite_user_recipe"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_favorite_user_recipe;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Recipe Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

type ShoppingCartEntry struct {
	ID        uint      `gorm:"primarykey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_user_recipe"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_cart_user_recipe;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Recipe Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

// Subscription means UserID follows AuthorID. A user never follows themself.
type Subscription struct {
	ID        uint      `gorm:"primarykey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_subscription_user_author"`
	AuthorID  uint      `gorm:"not null;uniqueIndex:idx_subscription_user_author;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	User   User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Author User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}
