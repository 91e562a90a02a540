package testutil

import (
	"fmt"
	"testing"

	"foodgram-api/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: "Test",
		LastName:  username,
		Password:  "not-a-hash",
		Role:      models.RoleUser,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateTag(t testing.TB, db *gorm.DB, slug string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: fmt.Sprintf("Tag %s", slug), Slug: slug}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

func CreateIngredient(t testing.TB, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(ingredient).Error)
	return ingredient
}

// CreateRecipe inserts a recipe directly, bypassing catalog validation.
func CreateRecipe(t testing.TB, db *gorm.DB, author *models.User, name string, tags []*models.Tag, items map[*models.Ingredient]int) *models.Recipe {
	t.Helper()
	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        name,
		Image:       "/media/recipes/" + name + ".png",
		Text:        "Cook " + name,
		CookingTime: 10,
	}
	require.NoError(t, db.Omit("Author", "Tags", "Ingredients").Create(recipe).Error)

	for _, tag := range tags {
		require.NoError(t, db.Model(recipe).Association("Tags").Append(tag))
	}
	for ingredient, amount := range items {
		row := &models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: ingredient.ID, Amount: amount}
		require.NoError(t, db.Omit("Ingredient").Create(row).Error)
	}
	return recipe
}
