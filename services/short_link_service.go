package services

import (
	"context"
	"fmt"
	"log/slog"

	"foodgram-api/apperrors"
	"foodgram-api/models"
	"foodgram-api/repositories"

	"github.com/cespare/xxhash/v2"
	"gorm.io/gorm"
)

const shortCodeLength = 6

type ShortLinkService interface {
	GetOrCreate(ctx context.Context, recipeID uint) (*models.ShortLink, error)
	Resolve(ctx context.Context, code string) (*models.Recipe, error)
}

type shortLinkService struct {
	tx      repositories.Transactor
	links   repositories.ShortLinkRepository
	recipes repositories.RecipeRepository
	log     *slog.Logger
}

func NewShortLinkService(tx repositories.Transactor, links repositories.ShortLinkRepository, recipes repositories.RecipeRepository, log *slog.Logger) ShortLinkService {
	return &shortLinkService{tx: tx, links: links, recipes: recipes, log: log}
}

// ShortCode derives the code for a recipe: the leading hex digits of xxhash64("recipe-<id>").
func ShortCode(recipeID uint) string {
	sum := xxhash.Sum64String(fmt.Sprintf("recipe-%d", recipeID))
	return fmt.Sprintf("%016x", sum)[:shortCodeLength]
}

// GetOrCreate returns the recipe's stored link, inserting the derived code on first request.
// A skipped insert means either a concurrent writer stored the same link, which is re-read, or
// the code already belongs to another recipe, which is a Conflict.
func (s *shortLinkService) GetOrCreate(ctx context.Context, recipeID uint) (*models.ShortLink, error) {
	var link *models.ShortLink
	created := false
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		ok, err := s.recipes.WithTx(tx).Exists(ctx, recipeID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NotFound("recipe not found")
		}

		links := s.links.WithTx(tx)
		existing, err := links.GetByRecipeID(ctx, recipeID)
		if err == nil {
			link = existing
			return nil
		}
		if !apperrors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		candidate := &models.ShortLink{RecipeID: recipeID, Code: ShortCode(recipeID)}
		inserted, err := links.InsertIfAbsent(ctx, candidate)
		if err != nil {
			return err
		}
		if inserted {
			link, created = candidate, true
			return nil
		}

		existing, err = links.GetByRecipeID(ctx, recipeID)
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Conflictf("short code %s is already taken by another recipe", candidate.Code)
		}
		link = existing
		return err
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.log.Info("short link created", "recipe_id", recipeID, "code", link.Code)
	}
	return link, nil
}

func (s *shortLinkService) Resolve(ctx context.Context, code string) (*models.Recipe, error) {
	link, err := s.links.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.recipes.GetByID(ctx, link.RecipeID)
}
