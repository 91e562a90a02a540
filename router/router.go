// Package router wires repositories, services and handlers into the gin engine.
package router

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"foodgram-api/cache"
	"foodgram-api/config"
	"foodgram-api/handlers"
	"foodgram-api/helper"
	"foodgram-api/media"
	"foodgram-api/middleware"
	"foodgram-api/models"
	"foodgram-api/repositories"
	"foodgram-api/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// App is the assembled HTTP application.
type App struct {
	Engine  *gin.Engine
	limiter *middleware.KeyedRateLimiter
}

// Close stops background workers owned by the router.
func (a *App) Close() {
	a.limiter.Stop()
}

// New builds the engine. rdb may be nil, which disables the read cache.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, log *slog.Logger) (*App, error) {
	httpHelper, err := helper.NewHTTPHelper(log)
	if err != nil {
		return nil, err
	}
	images, err := media.NewStore(cfg.Media.Root, cfg.Media.URL)
	if err != nil {
		return nil, err
	}
	readCache := cache.New(rdb, cache.DefaultTTL, log)

	// Initialize repositories
	tx := repositories.NewTransactor(db)
	userRepo := repositories.NewUserRepository(db)
	tagRepo := repositories.NewTagRepository(db)
	ingredientRepo := repositories.NewIngredientRepository(db)
	recipeRepo := repositories.NewRecipeRepository(db)
	favoriteRepo := repositories.NewFavoriteRepository(db)
	cartRepo := repositories.NewShoppingCartRepository(db)
	subscriptionRepo := repositories.NewSubscriptionRepository(db)
	shortLinkRepo := repositories.NewShortLinkRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, cfg.JWT, log)
	userService := services.NewUserService(userRepo, subscriptionRepo, images, log)
	tagService := services.NewTagService(tagRepo, readCache, log)
	ingredientService := services.NewIngredientService(ingredientRepo, readCache, log)
	catalogService := services.NewCatalogService(services.CatalogDeps{
		Tx:            tx,
		Recipes:       recipeRepo,
		Tags:          tagRepo,
		Ingredients:   ingredientRepo,
		Favorites:     favoriteRepo,
		Cart:          cartRepo,
		Subscriptions: subscriptionRepo,
		Images:        images,
		Log:           log,
	})
	favoriteToggle := services.NewFavoriteToggle(tx, favoriteRepo, recipeRepo, log)
	cartToggle := services.NewShoppingCartToggle(tx, cartRepo, recipeRepo, log)
	subscriptionToggle := services.NewSubscriptionToggle(tx, subscriptionRepo, userRepo, log)
	subscriptionService := services.NewSubscriptionService(subscriptionToggle, subscriptionRepo, userRepo, recipeRepo)
	shoppingListService := services.NewShoppingListService(tx, cartRepo, recipeRepo, log)
	shortLinkService := services.NewShortLinkService(tx, shortLinkRepo, recipeRepo, log)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, httpHelper)
	userHandler := handlers.NewUserHandler(userService, subscriptionService, httpHelper)
	tagHandler := handlers.NewTagHandler(tagService, httpHelper)
	ingredientHandler := handlers.NewIngredientHandler(ingredientService, httpHelper)
	recipeHandler := handlers.NewRecipeHandler(catalogService, favoriteToggle, cartToggle, shoppingListService, httpHelper)
	shortLinkHandler := handlers.NewShortLinkHandler(shortLinkService, cfg.SiteURL, httpHelper)
	opsHandler := handlers.NewOpsHandler(db, readCache, httpHelper)

	limiter := middleware.NewKeyedRateLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst)
	requireAuth := middleware.AuthMiddleware(cfg.JWT.Secret, httpHelper)
	optionalAuth := middleware.OptionalAuth(cfg.JWT.Secret, httpHelper)
	requireAdmin := middleware.RequireRole(httpHelper, userService.GetRole, models.RoleAdmin)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log), cors.New(corsConfig(cfg.CORSOrigins)))

	router.GET("/health", opsHandler.Health)
	router.GET("/metrics", opsHandler.Metrics)
	router.GET("/s/:code", shortLinkHandler.Redirect)
	router.Static(mediaPrefix(cfg.Media.URL), images.Root())

	api := router.Group("/api")
	{
		auth := api.Group("/auth", middleware.RateLimit(limiter, httpHelper))
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		users := api.Group("/users")
		{
			users.GET("/", optionalAuth, userHandler.GetUsers)
			users.GET("/me/", requireAuth, userHandler.GetProfile)
			users.PUT("/me/avatar/", requireAuth, userHandler.UpdateAvatar)
			users.DELETE("/me/avatar/", requireAuth, userHandler.DeleteAvatar)
			users.GET("/subscriptions/", requireAuth, userHandler.GetSubscriptions)
			users.GET("/:id/", optionalAuth, userHandler.GetUser)
			users.POST("/:id/subscribe/", requireAuth, userHandler.Subscribe)
			users.DELETE("/:id/subscribe/", requireAuth, userHandler.Unsubscribe)
		}

		tags := api.Group("/tags")
		{
			tags.GET("/", tagHandler.GetTags)
			tags.GET("/:id/", tagHandler.GetTag)
			tags.POST("/", requireAuth, requireAdmin, tagHandler.CreateTag)
		}

		ingredients := api.Group("/ingredients")
		{
			ingredients.GET("/", ingredientHandler.GetIngredients)
			ingredients.GET("/:id/", ingredientHandler.GetIngredient)
		}

		recipes := api.Group("/recipes")
		{
			recipes.GET("/", optionalAuth, recipeHandler.GetRecipes)
			recipes.POST("/", requireAuth, recipeHandler.CreateRecipe)
			recipes.GET("/download_shopping_cart/", requireAuth, recipeHandler.DownloadShoppingCart)
			recipes.GET("/:id/", optionalAuth, recipeHandler.GetRecipe)
			recipes.PATCH("/:id/", requireAuth, recipeHandler.UpdateRecipe)
			recipes.DELETE("/:id/", requireAuth, recipeHandler.DeleteRecipe)
			recipes.POST("/:id/favorite/", requireAuth, recipeHandler.AddFavorite)
			recipes.DELETE("/:id/favorite/", requireAuth, recipeHandler.RemoveFavorite)
			recipes.POST("/:id/shopping_cart/", requireAuth, recipeHandler.AddToShoppingCart)
			recipes.DELETE("/:id/shopping_cart/", requireAuth, recipeHandler.RemoveFromShoppingCart)
			recipes.GET("/:id/get-link/", shortLinkHandler.GetLink)
		}
	}

	return &App{Engine: router, limiter: limiter}, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// mediaPrefix turns a MEDIA_URL such as "/media/" into a route prefix.
func mediaPrefix(mediaURL string) string {
	prefix := "/" + strings.Trim(mediaURL, "/")
	if prefix == "/" {
		return "/media"
	}
	return prefix
}
