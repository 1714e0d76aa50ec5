// Package saves maintains the per-user saved-recipe relation and the
// denormalized save counter on each recipe.
package saves

import (
	"context"
	"errors"

	"cookbook/metrics"
	"cookbook/models"
	"cookbook/mq"
	"cookbook/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type saveRepository interface {
	Insert(ctx context.Context, save *models.Save) error
	Delete(ctx context.Context, recipeID, userID string) error
	Exists(ctx context.Context, recipeID, userID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.Save, error)
	CountByRecipe(ctx context.Context, recipeID string) (int64, error)
}

type recipeCounters interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Recipe, error)
	IncrementSaves(ctx context.Context, id primitive.ObjectID, delta int64) error
	SetSaves(ctx context.Context, id primitive.ObjectID, n int64) error
}

type eventEmitter interface {
	Emit(eventName string, ev mq.Event)
}

type Service struct {
	saves   saveRepository
	recipes recipeCounters
	events  eventEmitter
	logger  *zap.Logger
}

// New creates a save service. events may be nil.
func New(saves saveRepository, recipes recipeCounters, events eventEmitter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{saves: saves, recipes: recipes, events: events, logger: logger}
}

// Toggle flips userID's membership for the recipe and reports whether the
// recipe is saved afterwards. The counter moves only when the membership
// actually changed.
func (s *Service) Toggle(ctx context.Context, recipeID, userID string) (bool, error) {
	if userID == "" {
		return false, repository.ErrForbidden
	}
	oid, err := repository.ParseID(recipeID)
	if err != nil {
		return false, err
	}
	if _, err := s.recipes.Get(ctx, oid); err != nil {
		return false, err
	}

	saved, delta := true, int64(1)
	err = s.saves.Insert(ctx, &models.Save{RecipeID: recipeID, UserID: userID})
	if errors.Is(err, repository.ErrAlreadyExists) {
		saved, delta = false, -1
		err = s.saves.Delete(ctx, recipeID, userID)
		if errors.Is(err, repository.ErrNotFound) {
			// A concurrent toggle removed it first.
			return false, nil
		}
	}
	if err != nil {
		return false, err
	}

	if err := s.recipes.IncrementSaves(ctx, oid, delta); err != nil {
		s.logger.Warn("save counter not updated",
			zap.String("recipe_id", recipeID), zap.Int64("delta", delta), zap.Error(err))
	}

	direction, event := "save", mq.RecipeSaved
	if !saved {
		direction, event = "unsave", mq.RecipeUnsaved
	}
	metrics.SaveToggles.WithLabelValues(direction).Inc()
	if s.events != nil {
		s.events.Emit(event, mq.Event{EntityType: "recipe", EntityID: recipeID, UserID: userID})
	}
	return saved, nil
}

func (s *Service) IsSaved(ctx context.Context, recipeID, userID string) (bool, error) {
	return s.saves.Exists(ctx, recipeID, userID)
}

// ListByUser returns userID's saves, most recent first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Save, error) {
	return s.saves.ListByUser(ctx, userID)
}

// Reconcile sets the recipe's counter to the number of stored memberships.
func (s *Service) Reconcile(ctx context.Context, recipeID string) (int64, error) {
	oid, err := repository.ParseID(recipeID)
	if err != nil {
		return 0, err
	}
	before, err := s.recipes.Get(ctx, oid)
	if err != nil {
		return 0, err
	}
	n, err := s.saves.CountByRecipe(ctx, recipeID)
	if err == nil {
		err = s.recipes.SetSaves(ctx, oid, n)
	}
	if err != nil {
		metrics.Reconciliations.WithLabelValues("saves", "error").Inc()
		return 0, err
	}

	outcome := "unchanged"
	if before.Saves != n {
		outcome = "corrected"
		s.logger.Info("save counter corrected",
			zap.String("recipe_id", recipeID),
			zap.Int64("before", before.Saves),
			zap.Int64("after", n))
	}
	metrics.Reconciliations.WithLabelValues("saves", outcome).Inc()
	return n, nil
}
