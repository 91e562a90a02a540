package models

import "time"

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"required,max=150,username"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,min=6,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type CreateTagRequest struct {
	Name string `json:"name" binding:"required,max=32"`
	Slug string `json:"slug" binding:"required,max=32,slug"`
}

// RecipeIngredientInput references an ingredient by id. Amount is checked by the catalog service.
type RecipeIngredientInput struct {
	ID     uint `json:"id"`
	Amount int  `json:"amount"`
}

// RecipeDraft is the full recipe payload accepted on create.
type RecipeDraft struct {
	Ingredients []RecipeIngredientInput `json:"ingredients"`
	Tags        []uint                  `json:"tags"`
	Image       string                  `json:"image"`
	Name        string                  `json:"name"`
	Text        string                  `json:"text"`
	CookingTime int                     `json:"cooking_time"`
}

// RecipePatch is the update payload. Ingredients are always replaced; a nil Tags slice keeps the
// current tags while an empty one is rejected. Nil scalar fields keep their current value.
type RecipePatch struct {
	Ingredients []RecipeIngredientInput `json:"ingredients"`
	Tags        []uint                  `json:"tags"`
	Image       *string                 `json:"image"`
	Name        *string                 `json:"name"`
	Text        *string                 `json:"text"`
	CookingTime *int                    `json:"cooking_time"`
}

type RecipeListParams struct {
	Author           uint     `form:"author"`
	Tags             []string `form:"tags"`
	IsFavorited      string   `form:"is_favorited"`
	IsInShoppingCart string   `form:"is_in_shopping_cart"`
	Limit            int      `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset           int      `form:"offset" binding:"omitempty,min=0"`
}

// RecipeFilter is the resolved predicate set for listing recipes. Zero values disable a predicate.
type RecipeFilter struct {
	AuthorID    uint
	TagSlugs    []string
	FavoritedBy uint
	InCartOf    uint
	Limit       int
	Offset      int
}

type PageParams struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

type SubscriptionListParams struct {
	PageParams
	RecipesLimit int `form:"recipes_limit" binding:"omitempty,min=0"`
}

// AvatarRequest carries a base64 data URI image.
type AvatarRequest struct {
	Avatar string `json:"avatar"`
}

type AvatarResponse struct {
	Avatar string `json:"avatar"`
}

type UserResponse struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
	Avatar       string `json:"avatar"`
}

func NewUserResponse(u *User, subscribed bool) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
		Avatar:       u.Avatar,
	}
}

type RecipeIngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

type RecipeResponse struct {
	ID               uint                       `json:"id"`
	Tags             []Tag                      `json:"tags"`
	Author           UserResponse               `json:"author"`
	Ingredients      []RecipeIngredientResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
	CreatedAt        time.Time                  `json:"created_at"`
}

// RecipeMinified is the short recipe form used by favorites, cart and subscriptions.
type RecipeMinified struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

func NewRecipeMinified(r *Recipe) RecipeMinified {
	return RecipeMinified{ID: r.ID, Name: r.Name, Image: r.Image, CookingTime: r.CookingTime}
}

type SubscriptionResponse struct {
	UserResponse
	Recipes      []RecipeMinified `json:"recipes"`
	RecipesCount int64            `json:"recipes_count"`
}

type ShortLinkResponse struct {
	ShortLink string `json:"short-link"`
}

// Page is a generic list envelope. Next and Previous are filled in by the transport layer.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}
