package services

import (
	"context"
	"log/slog"

	"foodgram-api/apperrors"
	"foodgram-api/models"
	"foodgram-api/repositories"

	"gorm.io/gorm"
)

// Toggler adds and removes one (actor, target) relation.
type Toggler interface {
	Add(ctx context.Context, actorID, targetID uint) error
	Remove(ctx context.Context, actorID, targetID uint) error
}

type targetLookup func(ctx context.Context, tx *gorm.DB, id uint) (bool, error)

// ToggleService is the create-or-reject / delete-or-reject relation toggle. A second Add of the
// same pair fails with Conflict and a Remove without a matching row fails with NotFound.
type ToggleService[T any] struct {
	tx         repositories.Transactor
	relations  repositories.RelationRepository[T]
	exists     targetLookup
	name       string
	targetName string
	forbidSelf bool
	log        *slog.Logger
}

func NewFavoriteToggle(tx repositories.Transactor, favorites repositories.RelationRepository[models.Favorite], recipes repositories.RecipeRepository, log *slog.Logger) *ToggleService[models.Favorite] {
	return &ToggleService[models.Favorite]{
		tx:         tx,
		relations:  favorites,
		exists:     recipeLookup(recipes),
		name:       "favorite",
		targetName: "recipe",
		log:        log,
	}
}

func NewShoppingCartToggle(tx repositories.Transactor, cart repositories.RelationRepository[models.ShoppingCartEntry], recipes repositories.RecipeRepository, log *slog.Logger) *ToggleService[models.ShoppingCartEntry] {
	return &ToggleService[models.ShoppingCartEntry]{
		tx:         tx,
		relations:  cart,
		exists:     recipeLookup(recipes),
		name:       "shopping cart entry",
		targetName: "recipe",
		log:        log,
	}
}

func NewSubscriptionToggle(tx repositories.Transactor, subscriptions repositories.RelationRepository[models.Subscription], users repositories.UserRepository, log *slog.Logger) *ToggleService[models.Subscription] {
	return &ToggleService[models.Subscription]{
		tx:        tx,
		relations: subscriptions,
		exists: func(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
			return users.WithTx(tx).Exists(ctx, id)
		},
		name:       "subscription",
		targetName: "author",
		forbidSelf: true,
		log:        log,
	}
}

func recipeLookup(recipes repositories.RecipeRepository) targetLookup {
	return func(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
		return recipes.WithTx(tx).Exists(ctx, id)
	}
}

// Add creates the pair. The unique index decides concurrent adds: exactly one commits.
func (s *ToggleService[T]) Add(ctx context.Context, actorID, targetID uint) error {
	if s.forbidSelf && actorID == targetID {
		return apperrors.SelfRelation("cannot subscribe to yourself")
	}

	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.requireTarget(ctx, tx, targetID); err != nil {
			return err
		}
		if _, err := s.relations.WithTx(tx).Create(ctx, actorID, targetID); err != nil {
			if apperrors.Is(err, apperrors.ErrConflict) {
				return apperrors.Conflictf("%s already exists", s.name)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Debug(s.name+" added", "actor_id", actorID, "target_id", targetID)
	return nil
}

func (s *ToggleService[T]) Remove(ctx context.Context, actorID, targetID uint) error {
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.requireTarget(ctx, tx, targetID); err != nil {
			return err
		}
		removed, err := s.relations.WithTx(tx).Delete(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if !removed {
			return apperrors.NotFoundf("%s does not exist", s.name)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Debug(s.name+" removed", "actor_id", actorID, "target_id", targetID)
	return nil
}

func (s *ToggleService[T]) requireTarget(ctx context.Context, tx *gorm.DB, targetID uint) error {
	ok, err := s.exists(ctx, tx, targetID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFoundf("%s not found", s.targetName)
	}
	return nil
}
