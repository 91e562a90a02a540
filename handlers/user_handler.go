package handlers

import (
	"foodgram-api/helper"
	"foodgram-api/middleware"
	"foodgram-api/models"
	"foodgram-api/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService         services.UserService
	subscriptionService services.SubscriptionService
	Helper              *helper.HTTPHelper
}

func NewUserHandler(userService services.UserService, subscriptionService services.SubscriptionService, h *helper.HTTPHelper) *UserHandler {
	return &UserHandler{userService: userService, subscriptionService: subscriptionService, Helper: h}
}

func (h *UserHandler) GetUsers(c *gin.Context) {
	var params models.PageParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	page, err := h.userService.ListUsers(c.Request.Context(), params, middleware.ViewerID(c))
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	limit, offset := services.NormalizePage(params.Limit, params.Offset)
	helper.SetPageLinks(h.Helper, c, page, limit, offset)
	h.Helper.SendSuccess(c, "Success", page)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := h.Helper.ParseID(c, "id")
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), id, middleware.ViewerID(c))
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Success", user)
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	user, err := h.userService.GetUser(c.Request.Context(), userID, userID)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Profile loaded", user)
}

func (h *UserHandler) GetSubscriptions(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var params models.SubscriptionListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	page, err := h.subscriptionService.ListSubscriptions(c.Request.Context(), userID, params)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	limit, offset := services.NormalizePage(params.Limit, params.Offset)
	helper.SetPageLinks(h.Helper, c, page, limit, offset)
	h.Helper.SendSuccess(c, "Success", page)
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	authorID, err := h.Helper.ParseID(c, "id")
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	var params models.SubscriptionListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	view, err := h.subscriptionService.Subscribe(c.Request.Context(), userID, authorID, params.RecipesLimit)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	h.Helper.SendCreated(c, "Subscribed", view)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	authorID, err := h.Helper.ParseID(c, "id")
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	if err := h.subscriptionService.Unsubscribe(c.Request.Context(), userID, authorID); err != nil {
		h.Helper.SendError(c, err)
		return
	}

	h.Helper.SendNoContent(c)
}

// UpdateAvatar replaces the caller's avatar with a base64 data URI image.
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var req models.AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	avatar, err := h.userService.SetAvatar(c.Request.Context(), userID, req.Avatar)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Avatar updated", avatar)
}

func (h *UserHandler) DeleteAvatar(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	if err := h.userService.RemoveAvatar(c.Request.Context(), userID); err != nil {
		h.Helper.SendError(c, err)
		return
	}

	h.Helper.SendNoContent(c)
}
