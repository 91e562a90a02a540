package handlers

import (
	"fmt"
	"net/http"

	"foodgram-api/helper"
	"foodgram-api/models"
	"foodgram-api/services"

	"github.com/gin-gonic/gin"
)

type ShortLinkHandler struct {
	shortLinks services.ShortLinkService
	siteURL    string
	Helper     *helper.HTTPHelper
}

// NewShortLinkHandler builds links and redirects against siteURL, which has no trailing slash.
func NewShortLinkHandler(shortLinks services.ShortLinkService, siteURL string, h *helper.HTTPHelper) *ShortLinkHandler {
	return &ShortLinkHandler{shortLinks: shortLinks, siteURL: siteURL, Helper: h}
}

func (h *ShortLinkHandler) GetLink(c *gin.Context) {
	id, err := h.Helper.ParseID(c, "id")
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	link, err := h.shortLinks.GetOrCreate(c.Request.Context(), id)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Success", models.ShortLinkResponse{ShortLink: h.siteURL + "/s/" + link.Code})
}

// Redirect sends the browser from a short code to the recipe page.
func (h *ShortLinkHandler) Redirect(c *gin.Context) {
	recipe, err := h.shortLinks.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("%s/recipes/%d", h.siteURL, recipe.ID))
}
