package routes

import (
	"context"
	"net/http"

	"cookbook/models"
	"cookbook/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

type ratingReconciler interface {
	Reconcile(ctx context.Context, recipeID string) (*models.Recipe, error)
}

type saveReconciler interface {
	Reconcile(ctx context.Context, recipeID string) (int64, error)
}

// ReconcileHandler recomputes a recipe's rating aggregates and save counter
// from the review and save collections.
func ReconcileHandler(ratings ratingReconciler, saves saveReconciler, logger *zap.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id := ps.ByName("id")
		if _, err := saves.Reconcile(r.Context(), id); err != nil {
			if utils.StatusFor(err) >= http.StatusInternalServerError {
				logger.Error("reconcile saves", zap.String("recipe_id", id), zap.Error(err))
			}
			utils.RespondWithErr(w, err)
			return
		}
		recipe, err := ratings.Reconcile(r.Context(), id)
		if err != nil {
			if utils.StatusFor(err) >= http.StatusInternalServerError {
				logger.Error("reconcile ratings", zap.String("recipe_id", id), zap.Error(err))
			}
			utils.RespondWithErr(w, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, recipe)
	}
}
