package handlers

import (
	"net/http"

	"foodgram-api/helper"
	"foodgram-api/middleware"
	"foodgram-api/models"
	"foodgram-api/services"

	"github.com/gin-gonic/gin"
)

const shoppingListFilename = "shopping_list.txt"

type RecipeHandler struct {
	catalog   services.CatalogService
	favorites services.Toggler
	cart      services.Toggler
	shopping  services.ShoppingListService
	Helper    *helper.HTTPHelper
}

func NewRecipeHandler(catalog services.CatalogService, favorites, cart services.Toggler, shopping services.ShoppingListService, h *helper.HTTPHelper) *RecipeHandler {
	return &RecipeHandler{
		catalog:   catalog,
		favorites: favorites,
		cart:      cart,
		shopping:  shopping,
		Helper:    h,
	}
}

func (h *RecipeHandler) GetRecipes(c *gin.Context) {
	var params models.RecipeListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	viewer := middleware.ViewerID(c)
	recipes, total, err := h.catalog.ListRecipes(c.Request.Context(), params, viewer)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	results, err := h.catalog.Present(c.Request.Context(), recipes, viewer)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	page := &models.Page[models.RecipeResponse]{Count: total, Results: results}
	limit, offset := services.NormalizePage(params.Limit, params.Offset)
	helper.SetPageLinks(h.Helper, c, page, limit, offset)
	h.Helper.SendSuccess(c, "Success", page)
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, err := h.Helper.ParseID(c, "id")
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	recipe, err := h.catalog.GetRecipe(c.Request.Context(), id)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	h.sendRecipe(c, http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var draft models.RecipeDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	recipe, err := h.catalog.CreateRecipe(c.Request.Context(), userID, draft)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	h.sendRecipe(c, http.StatusCreated, recipe)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	id, err := h.Helper.ParseID(c, "id")
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	var patch models.RecipePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	recipe, err := h.catalog.UpdateRecipe(c.Request.Context(), id, userID, patch)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	h.sendRecipe(c, http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	id, err := h.Helper.ParseID(c, "id")
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	if err := h.catalog.DeleteRecipe(c.Request.Context(), id, userID); err != nil {
		h.Helper.SendError(c, err)
		return
	}

	h.Helper.SendNoContent(c)
}

func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.addRelation(c, h.favorites, "Recipe added to favorites")
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.removeRelation(c, h.favorites)
}

func (h *RecipeHandler) AddToShoppingCart(c *gin.Context) {
	h.addRelation(c, h.cart, "Recipe added to shopping cart")
}

func (h *RecipeHandler) RemoveFromShoppingCart(c *gin.Context) {
	h.removeRelation(c, h.cart)
}

// DownloadShoppingCart sends the aggregated list as a plain text attachment.
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	list, err := h.shopping.BuildShoppingList(c.Request.Context(), userID)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+shoppingListFilename+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(list))
}

func (h *RecipeHandler) addRelation(c *gin.Context, toggle services.Toggler, message string) {
	userID, _ := middleware.CurrentUserID(c)
	id, err := h.Helper.ParseID(c, "id")
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	if err := toggle.Add(c.Request.Context(), userID, id); err != nil {
		h.Helper.SendError(c, err)
		return
	}

	recipe, err := h.catalog.GetRecipe(c.Request.Context(), id)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	h.Helper.SendCreated(c, message, models.NewRecipeMinified(recipe))
}

func (h *RecipeHandler) removeRelation(c *gin.Context, toggle services.Toggler) {
	userID, _ := middleware.CurrentUserID(c)
	id, err := h.Helper.ParseID(c, "id")
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	if err := toggle.Remove(c.Request.Context(), userID, id); err != nil {
		h.Helper.SendError(c, err)
		return
	}

	h.Helper.SendNoContent(c)
}

func (h *RecipeHandler) sendRecipe(c *gin.Context, status int, recipe *models.Recipe) {
	views, err := h.catalog.Present(c.Request.Context(), []models.Recipe{*recipe}, middleware.ViewerID(c))
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	if status == http.StatusCreated {
		h.Helper.SendCreated(c, "Recipe created successfully", views[0])
		return
	}
	h.Helper.SendSuccess(c, "Success", views[0])
}
