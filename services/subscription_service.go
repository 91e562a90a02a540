package services

import (
	"context"

	"foodgram-api/apperrors"
	"foodgram-api/models"
	"foodgram-api/repositories"
)

type SubscriptionService interface {
	// Subscribe makes followerID follow authorID and returns the author view.
	Subscribe(ctx context.Context, followerID, authorID uint, recipesLimit int) (*models.SubscriptionResponse, error)
	Unsubscribe(ctx context.Context, followerID, authorID uint) error
	ListSubscriptions(ctx context.Context, followerID uint, params models.SubscriptionListParams) (*models.Page[models.SubscriptionResponse], error)
}

type subscriptionService struct {
	toggle        Toggler
	subscriptions repositories.RelationRepository[models.Subscription]
	users         repositories.UserRepository
	recipes       repositories.RecipeRepository
}

func NewSubscriptionService(toggle Toggler, subscriptions repositories.RelationRepository[models.Subscription], users repositories.UserRepository, recipes repositories.RecipeRepository) SubscriptionService {
	return &subscriptionService{toggle: toggle, subscriptions: subscriptions, users: users, recipes: recipes}
}

func (s *subscriptionService) Subscribe(ctx context.Context, followerID, authorID uint, recipesLimit int) (*models.SubscriptionResponse, error) {
	if err := s.toggle.Add(ctx, followerID, authorID); err != nil {
		return nil, err
	}

	views, err := s.authorViews(ctx, []uint{authorID}, recipesLimit)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, apperrors.NotFound("author not found")
	}
	return &views[0], nil
}

func (s *subscriptionService) Unsubscribe(ctx context.Context, followerID, authorID uint) error {
	return s.toggle.Remove(ctx, followerID, authorID)
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, followerID uint, params models.SubscriptionListParams) (*models.Page[models.SubscriptionResponse], error) {
	limit, offset := NormalizePage(params.Limit, params.Offset)
	rows, total, err := s.subscriptions.List(ctx, followerID, limit, offset)
	if err != nil {
		return nil, err
	}

	views, err := s.authorViews(ctx, s.subscriptions.TargetIDs(rows), params.RecipesLimit)
	if err != nil {
		return nil, err
	}
	return &models.Page[models.SubscriptionResponse]{Count: total, Results: views}, nil
}

// authorViews builds subscribed author views in the order of authorIDs. A recipesLimit of zero
// lists every recipe.
func (s *subscriptionService) authorViews(ctx context.Context, authorIDs []uint, recipesLimit int) ([]models.SubscriptionResponse, error) {
	users, err := s.users.GetByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	counts, err := s.recipes.CountByAuthors(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	views := make([]models.SubscriptionResponse, 0, len(authorIDs))
	for _, id := range authorIDs {
		author, ok := byID[id]
		if !ok {
			continue
		}
		recipes, err := s.recipes.ListByAuthor(ctx, id, recipesLimit)
		if err != nil {
			return nil, err
		}
		minified := make([]models.RecipeMinified, len(recipes))
		for i := range recipes {
			minified[i] = models.NewRecipeMinified(&recipes[i])
		}
		views = append(views, models.SubscriptionResponse{
			UserResponse: models.NewUserResponse(author, true),
			Recipes:      minified,
			RecipesCount: counts[id],
		})
	}
	return views, nil
}
