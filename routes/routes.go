package routes

import (
	"fmt"
	"net/http"

	"cookbook/generate"
	"cookbook/live"
	"cookbook/middleware"
	"cookbook/recipes"
	"cookbook/reviews"
	"cookbook/saves"
	"cookbook/tags"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers bundles what the route groups need.
type Handlers struct {
	Auth        *middleware.Auth
	RateLimiter *middleware.RateLimiter
	Recipes     *recipes.Handler
	Tags        *tags.Handler
	Reviews     *reviews.Handler
	Saves       *saves.Handler
	Generate    *generate.Handler
	Hub         *live.Hub
	Reconcile   httprouter.Handle
}

func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func AddUtilityRoutes(router *httprouter.Router) {
	router.GET("/health", Index)
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())
}

func AddStaticRoutes(router *httprouter.Router, uploadDir string) {
	router.ServeFiles("/static/uploads/*filepath", http.Dir(uploadDir))
}

func AddRecipeRoutes(router *httprouter.Router, h Handlers) {
	rl := h.RateLimiter.RateLimit
	router.GET("/api/v1/recipes", rl(h.Auth.OptionalAuth(h.Recipes.GetRecipes)))
	router.GET("/api/v1/recipes/recipe/:id", h.Auth.OptionalAuth(h.Recipes.GetRecipe))
	router.POST("/api/v1/recipes", h.Auth.Authenticate(h.Recipes.CreateRecipe))
	router.PUT("/api/v1/recipes/recipe/:id", h.Auth.Authenticate(h.Recipes.UpdateRecipe))
	router.DELETE("/api/v1/recipes/recipe/:id", h.Auth.Authenticate(h.Recipes.DeleteRecipe))
	router.POST("/api/v1/recipes/generate", rl(h.Auth.Authenticate(h.Generate.GenerateRecipe)))
	router.GET("/api/v1/recipes/tags", rl(h.Tags.GetPopularTags))
	router.POST("/api/v1/recipes/recipe/:id/reconcile", h.Auth.Authenticate(h.Reconcile))
}

func AddReviewRoutes(router *httprouter.Router, h Handlers) {
	router.GET("/api/v1/recipes/recipe/:id/reviews", h.Reviews.GetReviews)
	router.PUT("/api/v1/recipes/recipe/:id/review", h.Auth.Authenticate(h.Reviews.SubmitReview))
}

func AddSaveRoutes(router *httprouter.Router, h Handlers) {
	router.PUT("/api/v1/recipes/recipe/:id/save", h.Auth.Authenticate(h.Saves.ToggleSave))
	router.GET("/api/v1/recipes/recipe/:id/save", h.Auth.Authenticate(h.Saves.GetSaveStatus))
	router.GET("/api/v1/saves", h.Auth.Authenticate(h.Saves.GetMySaves))
}

func AddLiveRoutes(router *httprouter.Router, h Handlers) {
	router.GET("/ws/recipes", h.Hub.ServeWS)
}

// New registers every route group.
func New(h Handlers, uploadDir string) *httprouter.Router {
	router := httprouter.New()
	AddUtilityRoutes(router)
	AddStaticRoutes(router, uploadDir)
	AddRecipeRoutes(router, h)
	AddReviewRoutes(router, h)
	AddSaveRoutes(router, h)
	AddLiveRoutes(router, h)
	return router
}
