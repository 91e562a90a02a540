package repositories

import (
	"context"

	"foodgram-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ShortLinkRepository interface {
	GetByRecipeID(ctx context.Context, recipeID uint) (*models.ShortLink, error)
	GetByCode(ctx context.Context, code string) (*models.ShortLink, error)
	// InsertIfAbsent reports false when a row with the same recipe or code already exists.
	InsertIfAbsent(ctx context.Context, link *models.ShortLink) (bool, error)
	WithTx(tx *gorm.DB) ShortLinkRepository
}

type shortLinkRepository struct {
	db *gorm.DB
}

func NewShortLinkRepository(db *gorm.DB) ShortLinkRepository {
	return &shortLinkRepository{db: db}
}

func (r *shortLinkRepository) WithTx(tx *gorm.DB) ShortLinkRepository {
	return &shortLinkRepository{db: tx}
}

func (r *shortLinkRepository) GetByRecipeID(ctx context.Context, recipeID uint) (*models.ShortLink, error) {
	var link models.ShortLink
	if err := r.db.WithContext(ctx).Where("recipe_id = ?", recipeID).First(&link).Error; err != nil {
		return nil, translate(err, "short link")
	}
	return &link, nil
}

func (r *shortLinkRepository) GetByCode(ctx context.Context, code string) (*models.ShortLink, error) {
	var link models.ShortLink
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&link).Error; err != nil {
		return nil, translate(err, "short link")
	}
	return &link, nil
}

func (r *shortLinkRepository) InsertIfAbsent(ctx context.Context, link *models.ShortLink) (bool, error) {
	res := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(link)
	if res.Error != nil {
		return false, translate(res.Error, "short link")
	}
	return res.RowsAffected > 0, nil
}
