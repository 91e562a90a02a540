package repositories

import (
	"context"
	"strings"

	"foodgram-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const ingredientBatchSize = 500

type IngredientRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Ingredient, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Ingredient, error)
	Search(ctx context.Context, namePrefix string) ([]models.Ingredient, error)
	BulkInsert(ctx context.Context, ingredients []models.Ingredient) (int64, error)
	WithTx(tx *gorm.DB) IngredientRepository
}

type ingredientRepository struct {
	db *gorm.DB
}

func NewIngredientRepository(db *gorm.DB) IngredientRepository {
	return &ingredientRepository{db: db}
}

func (r *ingredientRepository) WithTx(tx *gorm.DB) IngredientRepository {
	return &ingredientRepository{db: tx}
}

func (r *ingredientRepository) GetByID(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := r.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		return nil, translate(err, "ingredient")
	}
	return &ingredient, nil
}

func (r *ingredientRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Ingredient, error) {
	var ingredients []models.Ingredient
	if len(ids) == 0 {
		return ingredients, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ingredients).Error
	return ingredients, err
}

// Search returns ingredients whose name starts with namePrefix, ignoring case. An empty prefix lists everything.
func (r *ingredientRepository) Search(ctx context.Context, namePrefix string) ([]models.Ingredient, error) {
	query := r.db.WithContext(ctx).Model(&models.Ingredient{})
	if namePrefix = strings.TrimSpace(namePrefix); namePrefix != "" {
		query = query.Where("LOWER(name) LIKE ? ESCAPE '\\'", escapeLike(strings.ToLower(namePrefix))+"%")
	}

	var ingredients []models.Ingredient
	err := query.Order("name").Order("id").Find(&ingredients).Error
	return ingredients, err
}

// BulkInsert skips rows whose (name, measurement_unit) already exists and reports how many were inserted.
func (r *ingredientRepository) BulkInsert(ctx context.Context, ingredients []models.Ingredient) (int64, error) {
	if len(ingredients) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&ingredients, ingredientBatchSize)
	return res.RowsAffected, res.Error
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
