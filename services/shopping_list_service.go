package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"foodgram-api/models"
	"foodgram-api/repositories"

	"gorm.io/gorm"
)

type ShoppingListService interface {
	BuildShoppingList(ctx context.Context, userID uint) (string, error)
}

// ShoppingListLine is one aggregated ingredient.
type ShoppingListLine struct {
	Name        string
	Unit        string
	TotalAmount int
}

func (l ShoppingListLine) String() string {
	return fmt.Sprintf("%s (%s) — %d", l.Name, l.Unit, l.TotalAmount)
}

type shoppingListService struct {
	tx      repositories.Transactor
	cart    repositories.RelationRepository[models.ShoppingCartEntry]
	recipes repositories.RecipeRepository
	log     *slog.Logger
}

func NewShoppingListService(tx repositories.Transactor, cart repositories.RelationRepository[models.ShoppingCartEntry], recipes repositories.RecipeRepository, log *slog.Logger) ShoppingListService {
	return &shoppingListService{tx: tx, cart: cart, recipes: recipes, log: log}
}

// BuildShoppingList reads the cart and its ingredients in one transaction and renders the
// aggregated list. It is recomputed on every call.
func (s *shoppingListService) BuildShoppingList(ctx context.Context, userID uint) (string, error) {
	var items []models.RecipeIngredient
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		cart := s.cart.WithTx(tx)
		entries, _, err := cart.List(ctx, userID, 0, 0)
		if err != nil {
			return err
		}
		recipeIDs := cart.TargetIDs(entries)

		rows, err := s.recipes.WithTx(tx).IngredientsForRecipes(ctx, recipeIDs)
		if err != nil {
			return err
		}
		items = orderByRecipe(rows, recipeIDs)
		return nil
	})
	if err != nil {
		return "", err
	}

	lines := AggregateIngredients(items)
	s.log.Info("shopping list exported", "user_id", userID, "lines", len(lines))
	return RenderShoppingList(lines), nil
}

// orderByRecipe regroups rows so recipes appear in cart order, keeping row order within a recipe.
func orderByRecipe(rows []models.RecipeIngredient, recipeIDs []uint) []models.RecipeIngredient {
	byRecipe := make(map[uint][]models.RecipeIngredient, len(recipeIDs))
	for _, row := range rows {
		byRecipe[row.RecipeID] = append(byRecipe[row.RecipeID], row)
	}

	ordered := make([]models.RecipeIngredient, 0, len(rows))
	for _, id := range recipeIDs {
		ordered = append(ordered, byRecipe[id]...)
	}
	return ordered
}

// AggregateIngredients sums amounts per ingredient name in first-seen order. Distinct ingredient
// records sharing a name merge; the unit of the latest occurrence wins.
func AggregateIngredients(items []models.RecipeIngredient) []ShoppingListLine {
	index := make(map[string]int)
	var lines []ShoppingListLine
	for _, item := range items {
		name := item.Ingredient.Name
		if i, ok := index[name]; ok {
			lines[i].TotalAmount += item.Amount
			lines[i].Unit = item.Ingredient.MeasurementUnit
			continue
		}
		index[name] = len(lines)
		lines = append(lines, ShoppingListLine{
			Name:        name,
			Unit:        item.Ingredient.MeasurementUnit,
			TotalAmount: item.Amount,
		})
	}
	return lines
}

// RenderShoppingList joins lines with newlines. No lines renders as the empty string.
func RenderShoppingList(lines []ShoppingListLine) string {
	rendered := make([]string, len(lines))
	for i, line := range lines {
		rendered[i] = line.String()
	}
	return strings.Join(rendered, "\n")
}
