package repositories

import (
	"context"

	"foodgram-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RelationRepository stores a uniquely constrained (user, target) pair such as a favorite,
// a shopping cart entry or a subscription.
type RelationRepository[T any] interface {
	// Create relies on the unique index: a second insert of the same pair fails with Conflict.
	Create(ctx context.Context, actorID, targetID uint) (*T, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, actorID, targetID uint) (bool, error)
	Exists(ctx context.Context, actorID, targetID uint) (bool, error)
	// Marked returns which of targetIDs the actor holds a relation with.
	Marked(ctx context.Context, actorID uint, targetIDs []uint) (map[uint]bool, error)
	// List returns the actor's relations oldest first.
	List(ctx context.Context, actorID uint, limit, offset int) ([]T, int64, error)
	// TargetIDs extracts the target side of rows, preserving order.
	TargetIDs(rows []T) []uint
	WithTx(tx *gorm.DB) RelationRepository[T]
}

type relationRepository[T any] struct {
	db           *gorm.DB
	name         string
	targetColumn string
	build        func(actorID, targetID uint) *T
	target       func(row *T) uint
}

func NewFavoriteRepository(db *gorm.DB) RelationRepository[models.Favorite] {
	return &relationRepository[models.Favorite]{
		db:           db,
		name:         "favorite",
		targetColumn: "recipe_id",
		build: func(actorID, targetID uint) *models.Favorite {
			return &models.Favorite{UserID: actorID, RecipeID: targetID}
		},
		target: func(row *models.Favorite) uint { return row.RecipeID },
	}
}

func NewShoppingCartRepository(db *gorm.DB) RelationRepository[models.ShoppingCartEntry] {
	return &relationRepository[models.ShoppingCartEntry]{
		db:           db,
		name:         "shopping cart entry",
		targetColumn: "recipe_id",
		build: func(actorID, targetID uint) *models.ShoppingCartEntry {
			return &models.ShoppingCartEntry{UserID: actorID, RecipeID: targetID}
		},
		target: func(row *models.ShoppingCartEntry) uint { return row.RecipeID },
	}
}

func NewSubscriptionRepository(db *gorm.DB) RelationRepository[models.Subscription] {
	return &relationRepository[models.Subscription]{
		db:           db,
		name:         "subscription",
		targetColumn: "author_id",
		build: func(actorID, targetID uint) *models.Subscription {
			return &models.Subscription{UserID: actorID, AuthorID: targetID}
		},
		target: func(row *models.Subscription) uint { return row.AuthorID },
	}
}

func (r *relationRepository[T]) WithTx(tx *gorm.DB) RelationRepository[T] {
	clone := *r
	clone.db = tx
	return &clone
}

func (r *relationRepository[T]) pair(db *gorm.DB, actorID, targetID uint) *gorm.DB {
	return db.Where("user_id = ?", actorID).Where(r.targetColumn+" = ?", targetID)
}

func (r *relationRepository[T]) Create(ctx context.Context, actorID, targetID uint) (*T, error) {
	row := r.build(actorID, targetID)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return nil, translate(err, r.name)
	}
	return row, nil
}

func (r *relationRepository[T]) Delete(ctx context.Context, actorID, targetID uint) (bool, error) {
	res := r.pair(r.db.WithContext(ctx), actorID, targetID).Delete(new(T))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *relationRepository[T]) Exists(ctx context.Context, actorID, targetID uint) (bool, error) {
	var count int64
	err := r.pair(r.db.WithContext(ctx).Model(new(T)), actorID, targetID).Count(&count).Error
	return count > 0, err
}

func (r *relationRepository[T]) Marked(ctx context.Context, actorID uint, targetIDs []uint) (map[uint]bool, error) {
	marked := make(map[uint]bool, len(targetIDs))
	if actorID == 0 || len(targetIDs) == 0 {
		return marked, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).
		Model(new(T)).
		Where("user_id = ?", actorID).
		Where(r.targetColumn+" IN ?", targetIDs).
		Pluck(r.targetColumn, &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		marked[id] = true
	}
	return marked, nil
}

func (r *relationRepository[T]) List(ctx context.Context, actorID uint, limit, offset int) ([]T, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(new(T)).Where("user_id = ?", actorID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []T
	query := r.db.WithContext(ctx).Where("user_id = ?", actorID).Order("id")
	err := paginate(query, limit, offset).Find(&rows).Error
	return rows, total, err
}

func (r *relationRepository[T]) TargetIDs(rows []T) []uint {
	ids := make([]uint, len(rows))
	for i := range rows {
		ids[i] = r.target(&rows[i])
	}
	return ids
}
