package recipes

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"cookbook/models"
	"cookbook/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// ErrMineAnonymous rejects mine=true without an authenticated user, which
// would otherwise drop the author predicate and list everyone's recipes.
var ErrMineAnonymous = errors.New("mine=true requires authentication")

// ParseFilter reads a RecipeFilter from the query string. "search" is kept
// as an alias of "title"; mine=true restricts to the requesting user.
func ParseFilter(r *http.Request) (models.RecipeFilter, error) {
	q := r.URL.Query()
	f := models.RecipeFilter{
		TitleContains: q.Get("title"),
		Tags:          utils.SplitCSV(q.Get("tags")),
		AuthorID:      q.Get("author"),
	}
	if f.TitleContains == "" {
		f.TitleContains = q.Get("search")
	}
	if strings.EqualFold(q.Get("mine"), "true") {
		f.AuthorID = utils.GetUserIDFromContext(r.Context())
		if f.AuthorID == "" {
			return f, ErrMineAnonymous
		}
	}

	var err error
	if v := q.Get("minRating"); v != "" {
		if f.MinRating, err = strconv.ParseFloat(v, 64); err != nil {
			return f, badParam("minRating")
		}
	}
	if f.SortBy, err = models.ParseSortKey(q.Get("sort")); err != nil {
		return f, err
	}
	if v := q.Get("limit"); v != "" {
		if f.Limit, err = strconv.ParseInt(v, 10, 64); err != nil || f.Limit < 0 {
			return f, badParam("limit")
		}
	}
	if v := q.Get("offset"); v != "" {
		if f.Offset, err = strconv.ParseInt(v, 10, 64); err != nil || f.Offset < 0 {
			return f, badParam("offset")
		}
	}
	return f, nil
}

func badParam(name string) error {
	return fmt.Errorf("invalid query parameter %s", name)
}

func (h *Handler) respondErr(w http.ResponseWriter, msg string, err error) {
	if utils.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	}
	utils.RespondWithErr(w, err)
}

func (h *Handler) GetRecipes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	f, err := ParseFilter(r)
	if errors.Is(err, ErrMineAnonymous) {
		utils.RespondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	recipes, err := h.svc.Query(r.Context(), f)
	if err != nil {
		h.respondErr(w, "query recipes", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, recipes)
}

func (h *Handler) GetRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	recipe, err := h.svc.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		h.respondErr(w, "get recipe", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, recipe)
}

func (h *Handler) CreateRecipe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in models.RecipeInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	recipe, err := h.svc.Create(r.Context(), utils.GetUserIDFromContext(r.Context()), in)
	if err != nil {
		h.respondErr(w, "create recipe", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, recipe)
}

func (h *Handler) UpdateRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var upd models.RecipeUpdate
	if err := utils.DecodeJSON(w, r, &upd); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	recipe, err := h.svc.Update(r.Context(), utils.GetUserIDFromContext(r.Context()), ps.ByName("id"), upd)
	if err != nil {
		h.respondErr(w, "update recipe", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, recipe)
}

func (h *Handler) DeleteRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.svc.Delete(r.Context(), utils.GetUserIDFromContext(r.Context()), ps.ByName("id")); err != nil {
		h.respondErr(w, "delete recipe", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "deleted"})
}
