package services

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"foodgram-api/apperrors"
	"foodgram-api/models"
	"foodgram-api/repositories"

	"gorm.io/gorm"
)

const maxRecipeNameLength = 256

type CatalogService interface {
	CreateRecipe(ctx context.Context, authorID uint, draft models.RecipeDraft) (*models.Recipe, error)
	UpdateRecipe(ctx context.Context, recipeID, editorID uint, patch models.RecipePatch) (*models.Recipe, error)
	GetRecipe(ctx context.Context, id uint) (*models.Recipe, error)
	ListRecipes(ctx context.Context, params models.RecipeListParams, viewerID uint) ([]models.Recipe, int64, error)
	DeleteRecipe(ctx context.Context, id, actorID uint) error
	// Present renders recipes for viewerID. Viewer 0 is anonymous and sees every flag false.
	Present(ctx context.Context, recipes []models.Recipe, viewerID uint) ([]models.RecipeResponse, error)
}

type catalogService struct {
	tx            repositories.Transactor
	recipes       repositories.RecipeRepository
	tags          repositories.TagRepository
	ingredients   repositories.IngredientRepository
	favorites     repositories.RelationRepository[models.Favorite]
	cart          repositories.RelationRepository[models.ShoppingCartEntry]
	subscriptions repositories.RelationRepository[models.Subscription]
	images        ImageStore
	log           *slog.Logger
}

type CatalogDeps struct {
	Tx            repositories.Transactor
	Recipes       repositories.RecipeRepository
	Tags          repositories.TagRepository
	Ingredients   repositories.IngredientRepository
	Favorites     repositories.RelationRepository[models.Favorite]
	Cart          repositories.RelationRepository[models.ShoppingCartEntry]
	Subscriptions repositories.RelationRepository[models.Subscription]
	Images        ImageStore
	Log           *slog.Logger
}

func NewCatalogService(deps CatalogDeps) CatalogService {
	return &catalogService{
		tx:            deps.Tx,
		recipes:       deps.Recipes,
		tags:          deps.Tags,
		ingredients:   deps.Ingredients,
		favorites:     deps.Favorites,
		cart:          deps.Cart,
		subscriptions: deps.Subscriptions,
		images:        deps.Images,
		log:           deps.Log,
	}
}

func (s *catalogService) CreateRecipe(ctx context.Context, authorID uint, draft models.RecipeDraft) (*models.Recipe, error) {
	tags, err := s.resolveTags(ctx, draft.Tags)
	if err != nil {
		return nil, err
	}
	items, err := s.resolveIngredients(ctx, draft.Ingredients)
	if err != nil {
		return nil, err
	}
	if err := validateCookingTime(draft.CookingTime); err != nil {
		return nil, err
	}
	name, err := validateName(draft.Name)
	if err != nil {
		return nil, err
	}
	text, err := validateText(draft.Text)
	if err != nil {
		return nil, err
	}
	img, err := s.images.Decode(draft.Image)
	if err != nil {
		return nil, err
	}

	ref, err := s.images.Save(img)
	if err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		AuthorID:    authorID,
		Name:        name,
		Image:       ref,
		Text:        text,
		CookingTime: draft.CookingTime,
		Tags:        tags,
		Ingredients: items,
	}
	err = s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.recipes.WithTx(tx).Create(ctx, recipe)
	})
	if err != nil {
		s.discardImage(ref)
		return nil, err
	}

	s.log.Info("recipe created", "recipe_id", recipe.ID, "author_id", authorID)
	return s.recipes.GetByID(ctx, recipe.ID)
}

// UpdateRecipe replaces the ingredient set wholesale, and the tag set when tags are given.
func (s *catalogService) UpdateRecipe(ctx context.Context, recipeID, editorID uint, patch models.RecipePatch) (*models.Recipe, error) {
	recipe, err := s.recipes.GetByID(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID != editorID {
		return nil, apperrors.Forbidden("only the author can change this recipe")
	}

	var tags []models.Tag
	if patch.Tags != nil {
		if tags, err = s.resolveTags(ctx, patch.Tags); err != nil {
			return nil, err
		}
	}
	items, err := s.resolveIngredients(ctx, patch.Ingredients)
	if err != nil {
		return nil, err
	}
	if patch.CookingTime != nil {
		if err := validateCookingTime(*patch.CookingTime); err != nil {
			return nil, err
		}
		recipe.CookingTime = *patch.CookingTime
	}
	if patch.Name != nil {
		if recipe.Name, err = validateName(*patch.Name); err != nil {
			return nil, err
		}
	}
	if patch.Text != nil {
		if recipe.Text, err = validateText(*patch.Text); err != nil {
			return nil, err
		}
	}

	oldImage := recipe.Image
	newImage := ""
	if patch.Image != nil {
		img, err := s.images.Decode(*patch.Image)
		if err != nil {
			return nil, err
		}
		if newImage, err = s.images.Save(img); err != nil {
			return nil, err
		}
		recipe.Image = newImage
	}

	err = s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		repo := s.recipes.WithTx(tx)
		if err := repo.UpdateFields(ctx, recipe); err != nil {
			return err
		}
		if patch.Tags != nil {
			if err := repo.ReplaceTags(ctx, recipe, tags); err != nil {
				return err
			}
		}
		return repo.ReplaceIngredients(ctx, recipe.ID, items)
	})
	if err != nil {
		s.discardImage(newImage)
		return nil, err
	}
	if newImage != "" {
		s.discardImage(oldImage)
	}

	s.log.Info("recipe updated", "recipe_id", recipe.ID, "editor_id", editorID)
	return s.recipes.GetByID(ctx, recipe.ID)
}

func (s *catalogService) GetRecipe(ctx context.Context, id uint) (*models.Recipe, error) {
	return s.recipes.GetByID(ctx, id)
}

func (s *catalogService) ListRecipes(ctx context.Context, params models.RecipeListParams, viewerID uint) ([]models.Recipe, int64, error) {
	filter, err := resolveFilter(params, viewerID)
	if err != nil {
		return nil, 0, err
	}
	return s.recipes.List(ctx, filter)
}

// resolveFilter turns query parameters into predicates. is_favorited and is_in_shopping_cart are
// ignored for anonymous viewers.
func resolveFilter(params models.RecipeListParams, viewerID uint) (models.RecipeFilter, error) {
	limit, offset := NormalizePage(params.Limit, params.Offset)
	filter := models.RecipeFilter{
		AuthorID: params.Author,
		Limit:    limit,
		Offset:   offset,
	}

	for _, slug := range params.Tags {
		if slug = strings.TrimSpace(slug); slug != "" {
			filter.TagSlugs = append(filter.TagSlugs, slug)
		}
	}

	favorited, err := parseFlag("is_favorited", params.IsFavorited)
	if err != nil {
		return filter, err
	}
	inCart, err := parseFlag("is_in_shopping_cart", params.IsInShoppingCart)
	if err != nil {
		return filter, err
	}
	if viewerID != 0 {
		if favorited {
			filter.FavoritedBy = viewerID
		}
		if inCart {
			filter.InCartOf = viewerID
		}
	}
	return filter, nil
}

func parseFlag(field, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	flag, err := strconv.ParseBool(value)
	if err != nil {
		return false, apperrors.Validationf(field, "%s must be a boolean", field)
	}
	return flag, nil
}

func (s *catalogService) DeleteRecipe(ctx context.Context, id, actorID uint) error {
	recipe, err := s.recipes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if recipe.AuthorID != actorID {
		return apperrors.Forbidden("only the author can delete this recipe")
	}

	err = s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.recipes.WithTx(tx).Delete(ctx, recipe)
	})
	if err != nil {
		return err
	}

	s.discardImage(recipe.Image)
	s.log.Info("recipe deleted", "recipe_id", id, "author_id", actorID)
	return nil
}

func (s *catalogService) Present(ctx context.Context, recipes []models.Recipe, viewerID uint) ([]models.RecipeResponse, error) {
	recipeIDs := make([]uint, len(recipes))
	authorIDs := make([]uint, len(recipes))
	for i := range recipes {
		recipeIDs[i] = recipes[i].ID
		authorIDs[i] = recipes[i].AuthorID
	}

	favorited, err := s.favorites.Marked(ctx, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	inCart, err := s.cart.Marked(ctx, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	subscribed, err := s.subscriptions.Marked(ctx, viewerID, uniqueIDs(authorIDs))
	if err != nil {
		return nil, err
	}

	out := make([]models.RecipeResponse, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		ingredients := make([]models.RecipeIngredientResponse, len(r.Ingredients))
		for j, item := range r.Ingredients {
			ingredients[j] = models.RecipeIngredientResponse{
				ID:              item.IngredientID,
				Name:            item.Ingredient.Name,
				MeasurementUnit: item.Ingredient.MeasurementUnit,
				Amount:          item.Amount,
			}
		}
		tags := r.Tags
		if tags == nil {
			tags = []models.Tag{}
		}

		out[i] = models.RecipeResponse{
			ID:               r.ID,
			Tags:             tags,
			Author:           models.NewUserResponse(&r.Author, subscribed[r.AuthorID]),
			Ingredients:      ingredients,
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            r.Image,
			Text:             r.Text,
			CookingTime:      r.CookingTime,
			CreatedAt:        r.CreatedAt,
		}
	}
	return out, nil
}

// resolveTags checks the tag set is non-empty, duplicate free and fully known.
func (s *catalogService) resolveTags(ctx context.Context, ids []uint) ([]models.Tag, error) {
	if len(ids) == 0 {
		return nil, apperrors.Validation("tags", "at least one tag is required")
	}
	if dup, ok := firstDuplicate(ids); ok {
		return nil, apperrors.Validationf("tags", "tag %d is listed more than once", dup)
	}

	tags, err := s.tags.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[uint]bool, len(tags))
	for _, tag := range tags {
		known[tag.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return nil, apperrors.Validationf("tags", "tag %d does not exist", id)
		}
	}
	return tags, nil
}

// resolveIngredients checks the ingredient set is non-empty, duplicate free, fully known and
// that every amount is positive.
func (s *catalogService) resolveIngredients(ctx context.Context, inputs []models.RecipeIngredientInput) ([]models.RecipeIngredient, error) {
	if len(inputs) == 0 {
		return nil, apperrors.Validation("ingredients", "at least one ingredient is required")
	}

	ids := make([]uint, len(inputs))
	for i, in := range inputs {
		if in.Amount < 1 {
			return nil, apperrors.Validationf("ingredients", "amount of ingredient %d must be at least 1", in.ID)
		}
		ids[i] = in.ID
	}
	if dup, ok := firstDuplicate(ids); ok {
		return nil, apperrors.Validationf("ingredients", "ingredient %d is listed more than once", dup)
	}

	found, err := s.ingredients.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Ingredient, len(found))
	for _, ingredient := range found {
		byID[ingredient.ID] = ingredient
	}

	items := make([]models.RecipeIngredient, len(inputs))
	for i, in := range inputs {
		ingredient, ok := byID[in.ID]
		if !ok {
			return nil, apperrors.Validationf("ingredients", "ingredient %d does not exist", in.ID)
		}
		items[i] = models.RecipeIngredient{IngredientID: in.ID, Ingredient: ingredient, Amount: in.Amount}
	}
	return items, nil
}

func (s *catalogService) discardImage(ref string) {
	if ref == "" {
		return
	}
	if err := s.images.Remove(ref); err != nil {
		s.log.Warn("failed to remove recipe image", "image", ref, "error", err)
	}
}

func validateCookingTime(minutes int) error {
	if minutes < 1 {
		return apperrors.Validation("cooking_time", "cooking time must be at least 1 minute")
	}
	return nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", apperrors.Validation("name", "name is required")
	case len([]rune(name)) > maxRecipeNameLength:
		return "", apperrors.Validationf("name", "name must be at most %d characters", maxRecipeNameLength)
	}
	return name, nil
}

func validateText(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", apperrors.Validation("text", "text is required")
	}
	return text, nil
}

func firstDuplicate(ids []uint) (uint, bool) {
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return id, true
		}
		seen[id] = true
	}
	return 0, false
}
