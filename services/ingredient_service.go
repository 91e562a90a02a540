package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"foodgram-api/apperrors"
	"foodgram-api/cache"
	"foodgram-api/models"
	"foodgram-api/repositories"
)

const ingredientsCacheKey = "ingredients:all"

type IngredientService interface {
	// ListIngredients filters by case-insensitive name prefix. An empty name lists everything.
	ListIngredients(ctx context.Context, name string) ([]models.Ingredient, error)
	GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error)
	// LoadIngredients imports a JSON array of {name, measurement_unit} records and returns how
	// many were new. Records already present are skipped.
	LoadIngredients(ctx context.Context, r io.Reader) (int64, error)
}

type ingredientService struct {
	ingredientRepo repositories.IngredientRepository
	cache          *cache.Cache
	log            *slog.Logger
}

func NewIngredientService(ingredientRepo repositories.IngredientRepository, c *cache.Cache, log *slog.Logger) IngredientService {
	return &ingredientService{ingredientRepo: ingredientRepo, cache: c, log: log}
}

func (s *ingredientService) ListIngredients(ctx context.Context, name string) ([]models.Ingredient, error) {
	if strings.TrimSpace(name) != "" {
		return s.ingredientRepo.Search(ctx, name)
	}
	return cache.GetOrLoad(ctx, s.cache, ingredientsCacheKey, func() ([]models.Ingredient, error) {
		return s.ingredientRepo.Search(ctx, "")
	})
}

func (s *ingredientService) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	return s.ingredientRepo.GetByID(ctx, id)
}

type ingredientRecord struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

func (s *ingredientService) LoadIngredients(ctx context.Context, r io.Reader) (int64, error) {
	var records []ingredientRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeValidation, "ingredient data must be a JSON array")
	}

	seen := make(map[ingredientRecord]bool, len(records))
	ingredients := make([]models.Ingredient, 0, len(records))
	for i, rec := range records {
		rec.Name = strings.TrimSpace(rec.Name)
		rec.MeasurementUnit = strings.TrimSpace(rec.MeasurementUnit)
		if rec.Name == "" || rec.MeasurementUnit == "" {
			return 0, apperrors.Validation(fmt.Sprintf("[%d]", i), "name and measurement_unit are required")
		}
		if seen[rec] {
			continue
		}
		seen[rec] = true
		ingredients = append(ingredients, models.Ingredient{Name: rec.Name, MeasurementUnit: rec.MeasurementUnit})
	}

	inserted, err := s.ingredientRepo.BulkInsert(ctx, ingredients)
	if err != nil {
		return 0, err
	}

	if err := s.cache.Delete(ctx, ingredientsCacheKey); err != nil {
		s.log.Warn("failed to invalidate ingredient cache", "error", err)
	}
	s.log.Info("ingredients loaded", "records", len(records), "inserted", inserted)
	return inserted, nil
}
