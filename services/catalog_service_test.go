package services

import (
	"context"
	"testing"

	"foodgram-api/apperrors"
	"foodgram-api/models"
	"foodgram-api/testutil"

	"github.com/stretchr/testify/suite"
)

type CatalogServiceSuite struct {
	suite.Suite
	env       *testEnv
	ctx       context.Context
	author    *models.User
	other     *models.User
	breakfast *models.Tag
	lunch     *models.Tag
	salt      *models.Ingredient
	flour     *models.Ingredient
	eggs      *models.Ingredient
}

func (s *CatalogServiceSuite) SetupTest() {
	t := s.T()
	s.env = newTestEnv(t)
	s.ctx = context.Background()
	s.author = testutil.CreateUser(t, s.env.db, "author")
	s.other = testutil.CreateUser(t, s.env.db, "other")
	s.breakfast = testutil.CreateTag(t, s.env.db, "breakfast")
	s.lunch = testutil.CreateTag(t, s.env.db, "lunch")
	s.salt = testutil.CreateIngredient(t, s.env.db, "Salt", "g")
	s.flour = testutil.CreateIngredient(t, s.env.db, "Flour", "g")
	s.eggs = testutil.CreateIngredient(t, s.env.db, "Eggs", "pcs")
}

func (s *CatalogServiceSuite) draft() models.RecipeDraft {
	return models.RecipeDraft{
		Ingredients: []models.RecipeIngredientInput{
			{ID: s.flour.ID, Amount: 200},
			{ID: s.salt.ID, Amount: 5},
		},
		Tags:        []uint{s.lunch.ID, s.breakfast.ID},
		Image:       "png-bytes",
		Name:        "Pancakes",
		Text:        "Mix and fry.",
		CookingTime: 20,
	}
}

func tagIDs(tags []models.Tag) []uint {
	ids := make([]uint, len(tags))
	for i, tag := range tags {
		ids[i] = tag.ID
	}
	return ids
}

func amounts(items []models.RecipeIngredient) map[uint]int {
	out := make(map[uint]int, len(items))
	for _, item := range items {
		out[item.IngredientID] = item.Amount
	}
	return out
}

func (s *CatalogServiceSuite) countRecipes() int64 {
	var n int64
	s.Require().NoError(s.env.db.Model(&models.Recipe{}).Count(&n).Error)
	return n
}

func (s *CatalogServiceSuite) TestCreateThenGetMatchesDraft() {
	created, err := s.env.catalog.CreateRecipe(s.ctx, s.author.ID, s.draft())
	s.Require().NoError(err)

	got, err := s.env.catalog.GetRecipe(s.ctx, created.ID)
	s.Require().NoError(err)

	s.ElementsMatch([]uint{s.breakfast.ID, s.lunch.ID}, tagIDs(got.Tags))
	s.Equal(map[uint]int{s.flour.ID: 200, s.salt.ID: 5}, amounts(got.Ingredients))
	s.Equal(s.author.ID, got.AuthorID)
	s.Equal("author", got.Author.Username)
	s.Equal("Pancakes", got.Name)
	s.Equal(20, got.CookingTime)
	s.Equal("/media/recipes/1.png", got.Image)
	s.Equal("Salt", got.Ingredients[1].Ingredient.Name)
}

func (s *CatalogServiceSuite) TestCreateRejectsInvalidDrafts() {
	tests := []struct {
		name   string
		mutate func(d *models.RecipeDraft)
		field  string
	}{
		{"empty tags", func(d *models.RecipeDraft) { d.Tags = nil }, "tags"},
		{"unknown tag", func(d *models.RecipeDraft) { d.Tags = []uint{s.lunch.ID, 9999} }, "tags"},
		{"duplicate tag", func(d *models.RecipeDraft) { d.Tags = []uint{s.lunch.ID, s.lunch.ID} }, "tags"},
		{"empty ingredients", func(d *models.RecipeDraft) { d.Ingredients = nil }, "ingredients"},
		{"zero amount", func(d *models.RecipeDraft) { d.Ingredients[0].Amount = 0 }, "ingredients"},
		{"negative amount", func(d *models.RecipeDraft) { d.Ingredients[1].Amount = -3 }, "ingredients"},
		{"duplicate ingredient", func(d *models.RecipeDraft) {
			d.Ingredients = append(d.Ingredients, models.RecipeIngredientInput{ID: s.salt.ID, Amount: 1})
		}, "ingredients"},
		{"unknown ingredient", func(d *models.RecipeDraft) {
			d.Ingredients = append(d.Ingredients, models.RecipeIngredientInput{ID: 9999, Amount: 1})
		}, "ingredients"},
		{"zero cooking time", func(d *models.RecipeDraft) { d.CookingTime = 0 }, "cooking_time"},
		{"blank name", func(d *models.RecipeDraft) { d.Name = "   " }, "name"},
		{"blank text", func(d *models.RecipeDraft) { d.Text = "" }, "text"},
		{"missing image", func(d *models.RecipeDraft) { d.Image = "" }, "image"},
		{"undecodable image", func(d *models.RecipeDraft) { d.Image = "not-an-image" }, "image"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			d := s.draft()
			tt.mutate(&d)

			_, err := s.env.catalog.CreateRecipe(s.ctx, s.author.ID, d)
			requireField(s.T(), err, tt.field)
			s.Zero(s.countRecipes())
			s.Empty(s.env.images.saved)
		})
	}
}

func (s *CatalogServiceSuite) TestUpdateByNonAuthorIsForbidden() {
	created, err := s.env.catalog.CreateRecipe(s.ctx, s.author.ID, s.draft())
	s.Require().NoError(err)

	name := "Stolen"
	_, err = s.env.catalog.UpdateRecipe(s.ctx, created.ID, s.other.ID, models.RecipePatch{
		Ingredients: []models.RecipeIngredientInput{{ID: s.eggs.ID, Amount: 2}},
		Name:        &name,
	})
	requireCode(s.T(), err, apperrors.CodeForbidden)

	got, err := s.env.catalog.GetRecipe(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("Pancakes", got.Name)
	s.Len(got.Ingredients, 2)
}

func (s *CatalogServiceSuite) TestUpdateUnknownRecipe() {
	_, err := s.env.catalog.UpdateRecipe(s.ctx, 4242, s.author.ID, models.RecipePatch{})
	requireCode(s.T(), err, apperrors.CodeNotFound)
}

func (s *CatalogServiceSuite) TestUpdateReplacesIngredientsAndTags() {
	created, err := s.env.catalog.CreateRecipe(s.ctx, s.author.ID, s.draft())
	s.Require().NoError(err)

	minutes := 5
	updated, err := s.env.catalog.UpdateRecipe(s.ctx, created.ID, s.author.ID, models.RecipePatch{
		Ingredients: []models.RecipeIngredientInput{{ID: s.eggs.ID, Amount: 3}},
		Tags:        []uint{s.breakfast.ID},
		CookingTime: &minutes,
	})
	s.Require().NoError(err)

	s.Equal([]uint{s.breakfast.ID}, tagIDs(updated.Tags))
	s.Equal(map[uint]int{s.eggs.ID: 3}, amounts(updated.Ingredients))
	s.Equal(5, updated.CookingTime)
	s.Equal("Pancakes", updated.Name)

	var rows int64
	s.Require().NoError(s.env.db.Model(&models.RecipeIngredient{}).Where("recipe_id = ?", created.ID).Count(&rows).Error)
	s.EqualValues(1, rows)
}

func (s *CatalogServiceSuite) TestUpdateWithoutTagsKeepsTags() {
	created, err := s.env.catalog.CreateRecipe(s.ctx, s.author.ID, s.draft())
	s.Require().NoError(err)

	updated, err := s.env.catalog.UpdateRecipe(s.ctx, created.ID, s.author.ID, models.RecipePatch{
		Ingredients: []models.RecipeIngredientInput{{ID: s.salt.ID, Amount: 1}},
	})
	s.Require().NoError(err)
	s.ElementsMatch([]uint{s.breakfast.ID, s.lunch.ID}, tagIDs(updated.Tags))
}

func (s *CatalogServiceSuite) TestUpdateValidatesBeforeWriting() {
	created, err := s.env.catalog.CreateRecipe(s.ctx, s.author.ID, s.draft())
	s.Require().NoError(err)

	name := "Renamed"
	_, err = s.env.catalog.UpdateRecipe(s.ctx, created.ID, s.author.ID, models.RecipePatch{
		Ingredients: []models.RecipeIngredientInput{{ID: s.salt.ID, Amount: 1}},
		Tags:        []uint{},
		Name:        &name,
	})
	requireField(s.T(), err, "tags")

	_, err = s.env.catalog.UpdateRecipe(s.ctx, created.ID, s.author.ID, models.RecipePatch{Name: &name})
	requireField(s.T(), err, "ingredients")

	got, err := s.env.catalog.GetRecipe(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("Pancakes", got.Name)
	s.Len(got.Tags, 2)
}

func (s *CatalogServiceSuite) TestUpdateImageRemovesPreviousFile() {
	created, err := s.env.catalog.CreateRecipe(s.ctx, s.author.ID, s.draft())
	s.Require().NoError(err)

	image := "new-png"
	updated, err := s.env.catalog.UpdateRecipe(s.ctx, created.ID, s.author.ID, models.RecipePatch{
		Ingredients: []models.RecipeIngredientInput{{ID: s.salt.ID, Amount: 1}},
		Image:       &image,
	})
	s.Require().NoError(err)
	s.Equal("/media/recipes/2.png", updated.Image)
	s.Equal([]string{"/media/recipes/1.png"}, s.env.images.removed)
}

func (s *CatalogServiceSuite) TestDeleteRecipe() {
	created, err := s.env.catalog.CreateRecipe(s.ctx, s.author.ID, s.draft())
	s.Require().NoError(err)
	s.Require().NoError(s.env.favorites.Add(s.ctx, s.other.ID, created.ID))
	s.Require().NoError(s.env.cart.Add(s.ctx, s.other.ID, created.ID))
	_, err = s.env.links.GetOrCreate(s.ctx, created.ID)
	s.Require().NoError(err)

	err = s.env.catalog.DeleteRecipe(s.ctx, created.ID, s.other.ID)
	requireCode(s.T(), err, apperrors.CodeForbidden)

	s.Require().NoError(s.env.catalog.DeleteRecipe(s.ctx, created.ID, s.author.ID))

	_, err = s.env.catalog.GetRecipe(s.ctx, created.ID)
	requireCode(s.T(), err, apperrors.CodeNotFound)

	for _, model := range []any{&models.RecipeIngredient{}, &models.Favorite{}, &models.ShoppingCartEntry{}, &models.ShortLink{}} {
		var n int64
		s.Require().NoError(s.env.db.Model(model).Count(&n).Error)
		s.Zero(n, "%T rows left behind", model)
	}
	var tagRows int64
	s.Require().NoError(s.env.db.Table("recipe_tags").Count(&tagRows).Error)
	s.Zero(tagRows)
	s.Equal([]string{"/media/recipes/1.png"}, s.env.images.removed)
}

func (s *CatalogServiceSuite) TestListByTagsIsUnionWithoutDuplicates() {
	dinner := testutil.CreateTag(s.T(), s.env.db, "dinner")
	onlyBreakfast := testutil.CreateRecipe(s.T(), s.env.db, s.author, "porridge", []*models.Tag{s.breakfast}, nil)
	onlyLunch := testutil.CreateRecipe(s.T(), s.env.db, s.author, "soup", []*models.Tag{s.lunch}, nil)
	both := testutil.CreateRecipe(s.T(), s.env.db, s.author, "brunch", []*models.Tag{s.breakfast, s.lunch}, nil)
	testutil.CreateRecipe(s.T(), s.env.db, s.author, "steak", []*models.Tag{dinner}, nil)

	recipes, total, err := s.env.catalog.ListRecipes(s.ctx, models.RecipeListParams{Tags: []string{"breakfast", "lunch"}}, 0)
	s.Require().NoError(err)

	ids := make([]uint, len(recipes))
	for i := range recipes {
		ids[i] = recipes[i].ID
	}
	s.EqualValues(3, total)
	s.ElementsMatch([]uint{onlyBreakfast.ID, onlyLunch.ID, both.ID}, ids)
}

func (s *CatalogServiceSuite) TestListFiltersCompose() {
	mine := testutil.CreateRecipe(s.T(), s.env.db, s.author, "mine", []*models.Tag{s.breakfast}, nil)
	theirs := testutil.CreateRecipe(s.T(), s.env.db, s.other, "theirs", []*models.Tag{s.breakfast}, nil)
	testutil.CreateRecipe(s.T(), s.env.db, s.other, "unmarked", []*models.Tag{s.lunch}, nil)

	viewer := testutil.CreateUser(s.T(), s.env.db, "viewer")
	s.Require().NoError(s.env.favorites.Add(s.ctx, viewer.ID, mine.ID))
	s.Require().NoError(s.env.favorites.Add(s.ctx, viewer.ID, theirs.ID))
	s.Require().NoError(s.env.cart.Add(s.ctx, viewer.ID, theirs.ID))

	recipes, total, err := s.env.catalog.ListRecipes(s.ctx, models.RecipeListParams{IsFavorited: "1"}, viewer.ID)
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Len(recipes, 2)
	s.Equal(theirs.ID, recipes[0].ID, "newest first")

	recipes, _, err = s.env.catalog.ListRecipes(s.ctx, models.RecipeListParams{IsFavorited: "true", IsInShoppingCart: "1"}, viewer.ID)
	s.Require().NoError(err)
	s.Require().Len(recipes, 1)
	s.Equal(theirs.ID, recipes[0].ID)

	recipes, _, err = s.env.catalog.ListRecipes(s.ctx, models.RecipeListParams{Author: s.author.ID, IsFavorited: "1"}, viewer.ID)
	s.Require().NoError(err)
	s.Require().Len(recipes, 1)
	s.Equal(mine.ID, recipes[0].ID)
}

func (s *CatalogServiceSuite) TestListFavoritedIsNoopForAnonymous() {
	testutil.CreateRecipe(s.T(), s.env.db, s.author, "one", []*models.Tag{s.breakfast}, nil)
	testutil.CreateRecipe(s.T(), s.env.db, s.author, "two", []*models.Tag{s.breakfast}, nil)

	recipes, total, err := s.env.catalog.ListRecipes(s.ctx, models.RecipeListParams{IsFavorited: "1", IsInShoppingCart: "1"}, 0)
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Len(recipes, 2)
}

func (s *CatalogServiceSuite) TestListRejectsNonBooleanFlag() {
	_, _, err := s.env.catalog.ListRecipes(s.ctx, models.RecipeListParams{IsFavorited: "maybe"}, s.author.ID)
	requireField(s.T(), err, "is_favorited")
}

func (s *CatalogServiceSuite) TestListPaginates() {
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		testutil.CreateRecipe(s.T(), s.env.db, s.author, name, []*models.Tag{s.breakfast}, nil)
	}

	recipes, total, err := s.env.catalog.ListRecipes(s.ctx, models.RecipeListParams{}, 0)
	s.Require().NoError(err)
	s.EqualValues(7, total)
	s.Len(recipes, DefaultPageSize)

	recipes, _, err = s.env.catalog.ListRecipes(s.ctx, models.RecipeListParams{Limit: 3, Offset: 6}, 0)
	s.Require().NoError(err)
	s.Require().Len(recipes, 1)
	s.Equal("a", recipes[0].Name)
}

func (s *CatalogServiceSuite) TestPresentComputesViewerFlags() {
	recipe := testutil.CreateRecipe(s.T(), s.env.db, s.author, "stew", []*models.Tag{s.lunch}, map[*models.Ingredient]int{s.salt: 3})
	s.Require().NoError(s.env.favorites.Add(s.ctx, s.other.ID, recipe.ID))
	s.Require().NoError(s.env.subscriptions.Add(s.ctx, s.other.ID, s.author.ID))

	loaded, err := s.env.catalog.GetRecipe(s.ctx, recipe.ID)
	s.Require().NoError(err)

	views, err := s.env.catalog.Present(s.ctx, []models.Recipe{*loaded}, s.other.ID)
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.True(views[0].IsFavorited)
	s.False(views[0].IsInShoppingCart)
	s.True(views[0].Author.IsSubscribed)
	s.Equal([]models.RecipeIngredientResponse{{ID: s.salt.ID, Name: "Salt", MeasurementUnit: "g", Amount: 3}}, views[0].Ingredients)

	anonymous, err := s.env.catalog.Present(s.ctx, []models.Recipe{*loaded}, 0)
	s.Require().NoError(err)
	s.False(anonymous[0].IsFavorited)
	s.False(anonymous[0].Author.IsSubscribed)
}

func TestCatalogServiceSuite(t *testing.T) {
	suite.Run(t, new(CatalogServiceSuite))
}
