package tags

import (
	"net/http"
	"strconv"

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

// GetPopularTags serves ?limit=N and, with ?author=ID, the ranking of that
// author's recipes only.
func (h *Handler) GetPopularTags(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var limit int
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid query parameter limit")
			return
		}
		limit = n
	}
	limit = ClampLimit(limit)

	var err error
	var top []models.TagCount
	if author := r.URL.Query().Get("author"); author != "" {
		top, err = h.svc.PopularByAuthor(r.Context(), author, limit)
	} else {
		top, err = h.svc.Popular(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error("popular tags failed", zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch tags")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"tags": top})
}
