package services

import (
	"context"
	"log/slog"
	"strings"

	"foodgram-api/apperrors"
	"foodgram-api/cache"
	"foodgram-api/models"
	"foodgram-api/repositories"
)

const tagsCacheKey = "tags:all"

type TagService interface {
	CreateTag(ctx context.Context, req models.CreateTagRequest) (*models.Tag, error)
	GetTags(ctx context.Context) ([]models.Tag, error)
	GetTag(ctx context.Context, id uint) (*models.Tag, error)
}

type tagService struct {
	tagRepo repositories.TagRepository
	cache   *cache.Cache
	log     *slog.Logger
}

func NewTagService(tagRepo repositories.TagRepository, c *cache.Cache, log *slog.Logger) TagService {
	return &tagService{
		tagRepo: tagRepo,
		cache:   c,
		log:     log,
	}
}

func (s *tagService) CreateTag(ctx context.Context, req models.CreateTagRequest) (*models.Tag, error) {
	tag := &models.Tag{
		Name: strings.TrimSpace(req.Name),
		Slug: strings.TrimSpace(req.Slug),
	}
	if tag.Name == "" {
		return nil, apperrors.Validation("name", "name is required")
	}
	if !models.SlugPattern.MatchString(tag.Slug) {
		return nil, apperrors.Validation("slug", "slug may contain only letters, digits, hyphens and underscores")
	}

	// Name and slug uniqueness is enforced by the unique indexes.
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return nil, err
	}

	if err := s.cache.Delete(ctx, tagsCacheKey); err != nil {
		s.log.Warn("failed to invalidate tag cache", "error", err)
	}
	s.log.Info("tag created", "tag_id", tag.ID, "slug", tag.Slug)
	return tag, nil
}

func (s *tagService) GetTags(ctx context.Context) ([]models.Tag, error) {
	return cache.GetOrLoad(ctx, s.cache, tagsCacheKey, func() ([]models.Tag, error) {
		return s.tagRepo.GetAll(ctx)
	})
}

func (s *tagService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	return s.tagRepo.GetByID(ctx, id)
}
