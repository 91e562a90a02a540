package repositories

import (
	"context"

	"foodgram-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RecipeRepository interface {
	Create(ctx context.Context, recipe *models.Recipe) error
	UpdateFields(ctx context.Context, recipe *models.Recipe) error
	ReplaceTags(ctx context.Context, recipe *models.Recipe, tags []models.Tag) error
	ReplaceIngredients(ctx context.Context, recipeID uint, items []models.RecipeIngredient) error
	GetByID(ctx context.Context, id uint) (*models.Recipe, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Recipe, error)
	Exists(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, filter models.RecipeFilter) ([]models.Recipe, int64, error)
	ListByAuthor(ctx context.Context, authorID uint, limit int) ([]models.Recipe, error)
	CountByAuthors(ctx context.Context, authorIDs []uint) (map[uint]int64, error)
	IngredientsForRecipes(ctx context.Context, recipeIDs []uint) ([]models.RecipeIngredient, error)
	Delete(ctx context.Context, recipe *models.Recipe) error
	WithTx(tx *gorm.DB) RecipeRepository
}

type recipeRepository struct {
	db *gorm.DB
}

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) WithTx(tx *gorm.DB) RecipeRepository {
	return &recipeRepository{db: tx}
}

func preloadRecipe(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Ingredients.Ingredient")
}

// Create inserts the recipe row and its tag and ingredient associations.
func (r *recipeRepository) Create(ctx context.Context, recipe *models.Recipe) error {
	db := r.db.WithContext(ctx)
	tags := recipe.Tags
	items := recipe.Ingredients

	if err := db.Omit(clause.Associations).Create(recipe).Error; err != nil {
		return translate(err, "recipe")
	}
	if err := r.ReplaceTags(ctx, recipe, tags); err != nil {
		return err
	}
	return r.ReplaceIngredients(ctx, recipe.ID, items)
}

func (r *recipeRepository) UpdateFields(ctx context.Context, recipe *models.Recipe) error {
	err := r.db.WithContext(ctx).
		Model(&models.Recipe{ID: recipe.ID}).
		Select("name", "text", "image", "cooking_time").
		Updates(map[string]any{
			"name":         recipe.Name,
			"text":         recipe.Text,
			"image":        recipe.Image,
			"cooking_time": recipe.CookingTime,
		}).Error
	return translate(err, "recipe")
}

func (r *recipeRepository) ReplaceTags(ctx context.Context, recipe *models.Recipe, tags []models.Tag) error {
	if err := r.db.WithContext(ctx).Model(recipe).Association("Tags").Replace(tags); err != nil {
		return translate(err, "recipe tag")
	}
	recipe.Tags = tags
	return nil
}

// ReplaceIngredients deletes every association row of the recipe and inserts items as the new set.
func (r *recipeRepository) ReplaceIngredients(ctx context.Context, recipeID uint, items []models.RecipeIngredient) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	rows := make([]models.RecipeIngredient, len(items))
	for i, item := range items {
		rows[i] = models.RecipeIngredient{RecipeID: recipeID, IngredientID: item.IngredientID, Amount: item.Amount}
	}
	return translate(db.Omit(clause.Associations).Create(&rows).Error, "recipe ingredient")
}

func (r *recipeRepository) GetByID(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := preloadRecipe(r.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		return nil, translate(err, "recipe")
	}
	return &recipe, nil
}

func (r *recipeRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Recipe, error) {
	var recipes []models.Recipe
	if len(ids) == 0 {
		return recipes, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&recipes).Error
	return recipes, err
}

func (r *recipeRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// List is newest first. Predicates are ANDed; tag slugs are ORed. The IN subqueries keep a recipe
// carrying several requested tags from appearing twice.
func (r *recipeRepository) List(ctx context.Context, filter models.RecipeFilter) ([]models.Recipe, int64, error) {
	base := func() *gorm.DB {
		return r.applyFilter(r.db.WithContext(ctx).Model(&models.Recipe{}), filter)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recipes []models.Recipe
	query := base().Order("recipes.created_at DESC").Order("recipes.id DESC")
	err := preloadRecipe(paginate(query, filter.Limit, filter.Offset)).Find(&recipes).Error
	return recipes, total, err
}

func (r *recipeRepository) applyFilter(query *gorm.DB, filter models.RecipeFilter) *gorm.DB {
	if filter.AuthorID != 0 {
		query = query.Where("recipes.author_id = ?", filter.AuthorID)
	}
	if len(filter.TagSlugs) > 0 {
		tagged := r.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs)
		query = query.Where("recipes.id IN (?)", tagged)
	}
	if filter.FavoritedBy != 0 {
		favorited := r.db.Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", filter.FavoritedBy)
		query = query.Where("recipes.id IN (?)", favorited)
	}
	if filter.InCartOf != 0 {
		inCart := r.db.Model(&models.ShoppingCartEntry{}).Select("recipe_id").Where("user_id = ?", filter.InCartOf)
		query = query.Where("recipes.id IN (?)", inCart)
	}
	return query
}

func (r *recipeRepository) ListByAuthor(ctx context.Context, authorID uint, limit int) ([]models.Recipe, error) {
	var recipes []models.Recipe
	query := r.db.WithContext(ctx).Where("author_id = ?", authorID).Order("created_at DESC").Order("id DESC")
	err := paginate(query, limit, 0).Find(&recipes).Error
	return recipes, err
}

func (r *recipeRepository) CountByAuthors(ctx context.Context, authorIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(authorIDs))
	if len(authorIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		AuthorID uint
		Count    int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS count").
		Where("author_id IN ?", authorIDs).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.AuthorID] = row.Count
	}
	return counts, nil
}

// IngredientsForRecipes returns association rows with their ingredient, in insertion order.
func (r *recipeRepository) IngredientsForRecipes(ctx context.Context, recipeIDs []uint) ([]models.RecipeIngredient, error) {
	var items []models.RecipeIngredient
	if len(recipeIDs) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Ingredient").
		Where("recipe_id IN ?", recipeIDs).
		Order("id").
		Find(&items).Error
	return items, err
}

// Delete removes the recipe with every dependent row. Run it inside a transaction.
func (r *recipeRepository) Delete(ctx context.Context, recipe *models.Recipe) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(recipe).Association("Tags").Clear(); err != nil {
		return err
	}
	dependents := []any{
		&models.RecipeIngredient{},
		&models.Favorite{},
		&models.ShoppingCartEntry{},
		&models.ShortLink{},
	}
	for _, model := range dependents {
		if err := db.Where("recipe_id = ?", recipe.ID).Delete(model).Error; err != nil {
			return err
		}
	}
	return translate(db.Delete(&models.Recipe{}, recipe.ID).Error, "recipe")
}
