package services

import (
	"context"
	"testing"

	"foodgram-api/apperrors"
	"foodgram-api/logger"
	"foodgram-api/models"
	"foodgram-api/repositories"
	"foodgram-api/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionAndUserServices(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tx := repositories.NewTransactor(db)
	users := repositories.NewUserRepository(db)
	recipes := repositories.NewRecipeRepository(db)
	subscriptions := repositories.NewSubscriptionRepository(db)

	toggle := NewSubscriptionToggle(tx, subscriptions, users, logger.Discard())
	svc := NewSubscriptionService(toggle, subscriptions, users, recipes)
	userSvc := NewUserService(users, subscriptions, &fakeImages{}, logger.Discard())

	follower := testutil.CreateUser(t, db, "follower")
	chef := testutil.CreateUser(t, db, "chef")
	baker := testutil.CreateUser(t, db, "baker")
	for _, name := range []string{"soup", "stew", "salad"} {
		testutil.CreateRecipe(t, db, chef, name, nil, nil)
	}
	testutil.CreateRecipe(t, db, baker, "bread", nil, nil)

	view, err := svc.Subscribe(ctx, follower.ID, chef.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "chef", view.Username)
	assert.True(t, view.IsSubscribed)
	assert.EqualValues(t, 3, view.RecipesCount)
	require.Len(t, view.Recipes, 2)
	assert.Equal(t, "salad", view.Recipes[0].Name)

	_, err = svc.Subscribe(ctx, follower.ID, chef.ID, 0)
	requireCode(t, err, apperrors.CodeConflict)
	_, err = svc.Subscribe(ctx, follower.ID, follower.ID, 0)
	requireCode(t, err, apperrors.CodeSelfRelation)

	_, err = svc.Subscribe(ctx, follower.ID, baker.ID, 0)
	require.NoError(t, err)

	page, err := svc.ListSubscriptions(ctx, follower.ID, models.SubscriptionListParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "chef", page.Results[0].Username)
	assert.Len(t, page.Results[0].Recipes, 3)
	assert.Equal(t, "baker", page.Results[1].Username)
	assert.EqualValues(t, 1, page.Results[1].RecipesCount)

	profile, err := userSvc.GetUser(ctx, chef.ID, follower.ID)
	require.NoError(t, err)
	assert.True(t, profile.IsSubscribed)

	profile, err = userSvc.GetUser(ctx, chef.ID, 0)
	require.NoError(t, err)
	assert.False(t, profile.IsSubscribed)

	listed, err := userSvc.ListUsers(ctx, models.PageParams{Limit: 2}, follower.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, listed.Count)
	require.Len(t, listed.Results, 2)
	assert.False(t, listed.Results[0].IsSubscribed)
	assert.True(t, listed.Results[1].IsSubscribed)

	require.NoError(t, svc.Unsubscribe(ctx, follower.ID, chef.ID))
	requireCode(t, svc.Unsubscribe(ctx, follower.ID, chef.ID), apperrors.CodeNotFound)

	page, err = svc.ListSubscriptions(ctx, follower.ID, models.SubscriptionListParams{})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "baker", page.Results[0].Username)

	_, err = userSvc.GetUser(ctx, 9999, 0)
	requireCode(t, err, apperrors.CodeNotFound)
}
