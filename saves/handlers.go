package saves

import (
	"net/http"

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

func (h *Handler) ToggleSave(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	saved, err := h.svc.Toggle(r.Context(), ps.ByName("id"), utils.GetUserIDFromContext(r.Context()))
	if err != nil {
		h.respondErr(w, "toggle save", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"saved": saved})
}

func (h *Handler) GetSaveStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	saved, err := h.svc.IsSaved(r.Context(), ps.ByName("id"), utils.GetUserIDFromContext(r.Context()))
	if err != nil {
		h.respondErr(w, "save status", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"saved": saved})
}

func (h *Handler) GetMySaves(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	saves, err := h.svc.ListByUser(r.Context(), utils.GetUserIDFromContext(r.Context()))
	if err != nil {
		h.respondErr(w, "list saves", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, saves)
}
