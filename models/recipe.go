package models

import "time"

type Recipe struct {
	ID          uint               `json:"id" gorm:"primarykey"`
	AuthorID    uint               `json:"author_id" gorm:"not null;index"`
	Author      User               `json:"author" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Name        string             `json:"name" gorm:"size:256;not null"`
	Image       string             `json:"image" gorm:"not null"`
	Text        string             `json:"text" gorm:"type:text;not null"`
	CookingTime int                `json:"cooking_time" gorm:"not null"`
	Tags        []Tag              `json:"tags" gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE"`
	Ingredients []RecipeIngredient `json:"ingredients" gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time          `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// RecipeIngredient carries the per-recipe amount. Rows are replaced wholesale on every update.
type RecipeIngredient struct {
	ID           uint       `json:"-" gorm:"primarykey"`
	RecipeID     uint       `json:"-" gorm:"not null;uniqueIndex:idx_recipe_ingredient"`
	IngredientID uint       `json:"ingredient_id" gorm:"not null;uniqueIndex:idx_recipe_ingredient;index"`
	Ingredient   Ingredient `json:"ingredient" gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE"`
	Amount       int        `json:"amount" gorm:"not null"`
}
