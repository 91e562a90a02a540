package handlers

import (
	"foodgram-api/helper"
	"foodgram-api/services"

	"github.com/gin-gonic/gin"
)

type IngredientHandler struct {
	ingredientService services.IngredientService
	Helper            *helper.HTTPHelper
}

func NewIngredientHandler(ingredientService services.IngredientService, h *helper.HTTPHelper) *IngredientHandler {
	return &IngredientHandler{ingredientService: ingredientService, Helper: h}
}

// GetIngredients supports ?name= prefix search.
func (h *IngredientHandler) GetIngredients(c *gin.Context) {
	ingredients, err := h.ingredientService.ListIngredients(c.Request.Context(), c.Query("name"))
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Success", ingredients)
}

func (h *IngredientHandler) GetIngredient(c *gin.Context) {
	id, err := h.Helper.ParseID(c, "id")
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	ingredient, err := h.ingredientService.GetIngredient(c.Request.Context(), id)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Success", ingredient)
}
