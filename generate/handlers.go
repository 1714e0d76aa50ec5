package generate

import (
	"context"
	"errors"
	"net/http"

	"cookbook/models"
	"cookbook/utils"

	"github.com/julienschmidt/httprouter"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type recipeCreator interface {
	Create(ctx context.Context, authorID string, in models.RecipeInput) (*models.Recipe, error)
}

type Handler struct {
	gen     *Generator
	recipes recipeCreator
	logger  *zap.Logger
}

// NewHandler wires the generation endpoint. gen is nil when no OpenAI key is
// configured.
func NewHandler(gen *Generator, recipes recipeCreator, logger *zap.Logger) *Handler {
	return &Handler{gen: gen, recipes: recipes, logger: logger}
}

// GenerateRecipe drafts a recipe and stores it for the caller.
func (h *Handler) GenerateRecipe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h.gen == nil {
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Recipe generation is not configured")
		return
	}
	var req Request
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := models.Validate(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := utils.GetUserIDFromContext(r.Context())

	in, err := h.gen.Generate(r.Context(), req)
	if err != nil {
		code := http.StatusBadGateway
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			code = http.StatusServiceUnavailable
		}
		h.logger.Error("recipe generation failed", zap.String("user_id", userID), zap.Error(err))
		utils.RespondWithError(w, code, http.StatusText(code))
		return
	}

	recipe, err := h.recipes.Create(r.Context(), userID, *in)
	if err != nil {
		if utils.StatusFor(err) >= http.StatusInternalServerError {
			h.logger.Error("store generated recipe", zap.Error(err))
		}
		utils.RespondWithErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, recipe)
}
