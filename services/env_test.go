package services

import (
	"fmt"
	"sync"
	"testing"

	"foodgram-api/apperrors"
	"foodgram-api/logger"
	"foodgram-api/media"
	"foodgram-api/models"
	"foodgram-api/repositories"
	"foodgram-api/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeImages struct {
	mu      sync.Mutex
	saved   []string
	removed []string
}

func (f *fakeImages) Decode(payload string) (*media.Image, error) {
	if payload == "" || payload == "not-an-image" {
		return nil, apperrors.Validation("image", "image payload is not a decodable image")
	}
	return &media.Image{Data: []byte(payload), Format: "png"}, nil
}

func (f *fakeImages) Save(img *media.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := fmt.Sprintf("/media/recipes/%d.%s", len(f.saved)+1, img.Ext())
	f.saved = append(f.saved, ref)
	return ref, nil
}

func (f *fakeImages) SaveAvatar(img *media.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := fmt.Sprintf("/media/avatars/%d.%s", len(f.saved)+1, img.Ext())
	f.saved = append(f.saved, ref)
	return ref, nil
}

func (f *fakeImages) Remove(ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, ref)
	return nil
}

type testEnv struct {
	db            *gorm.DB
	images        *fakeImages
	recipeRepo    repositories.RecipeRepository
	favoriteRepo  repositories.RelationRepository[models.Favorite]
	cartRepo      repositories.RelationRepository[models.ShoppingCartEntry]
	catalog       CatalogService
	favorites     *ToggleService[models.Favorite]
	cart          *ToggleService[models.ShoppingCartEntry]
	subscriptions *ToggleService[models.Subscription]
	shopping      ShoppingListService
	links         ShortLinkService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	log := logger.Discard()

	tx := repositories.NewTransactor(db)
	users := repositories.NewUserRepository(db)
	recipes := repositories.NewRecipeRepository(db)
	favorites := repositories.NewFavoriteRepository(db)
	cart := repositories.NewShoppingCartRepository(db)
	subscriptions := repositories.NewSubscriptionRepository(db)
	images := &fakeImages{}

	return &testEnv{
		db:           db,
		images:       images,
		recipeRepo:   recipes,
		favoriteRepo: favorites,
		cartRepo:     cart,
		catalog: NewCatalogService(CatalogDeps{
			Tx:            tx,
			Recipes:       recipes,
			Tags:          repositories.NewTagRepository(db),
			Ingredients:   repositories.NewIngredientRepository(db),
			Favorites:     favorites,
			Cart:          cart,
			Subscriptions: subscriptions,
			Images:        images,
			Log:           log,
		}),
		favorites:     NewFavoriteToggle(tx, favorites, recipes, log),
		cart:          NewShoppingCartToggle(tx, cart, recipes, log),
		subscriptions: NewSubscriptionToggle(tx, subscriptions, users, log),
		shopping:      NewShoppingListService(tx, cart, recipes, log),
		links:         NewShortLinkService(tx, repositories.NewShortLinkRepository(db), recipes, log),
	}
}

func requireCode(t *testing.T, err error, code apperrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, apperrors.CodeOf(err), "unexpected error: %v", err)
}

func requireField(t *testing.T, err error, field string) {
	t.Helper()
	requireCode(t, err, apperrors.CodeValidation)
	var appErr *apperrors.Error
	require.True(t, apperrors.As(err, &appErr))
	require.Equal(t, field, appErr.Field)
}
