package reviews

import (
	"net/http"

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

func (h *Handler) respondErr(w http.ResponseWriter, msg string, err error) {
	if utils.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	}
	utils.RespondWithErr(w, err)
}

func (h *Handler) GetReviews(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reviews, err := h.svc.List(r.Context(), ps.ByName("id"))
	if err != nil {
		h.respondErr(w, "list reviews", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, reviews)
}

// SubmitReview creates or replaces the caller's review of the recipe.
func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in models.ReviewInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	review, err := h.svc.Submit(r.Context(), ps.ByName("id"), utils.GetUserIDFromContext(r.Context()), in)
	if err != nil {
		h.respondErr(w, "submit review", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, review)
}
