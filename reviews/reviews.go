// Package reviews stores per-user recipe reviews and keeps each recipe's
// average rating in step with them.
package reviews

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

type reviewRepository interface {
	Upsert(ctx context.Context, review *models.Review) (*models.Review, error)
	Get(ctx context.Context, recipeID, userID string) (*models.Review, error)
	ListByRecipe(ctx context.Context, recipeID string) ([]models.Review, error)
	Average(ctx context.Context, recipeID string) (float64, int64, error)
}

type recipeRatings interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Recipe, error)
	AccumulateRating(ctx context.Context, id primitive.ObjectID, sumDelta float64, countDelta int64) error
	SetRatingStats(ctx context.Context, id primitive.ObjectID, sum float64, count int64) error
}

type eventEmitter interface {
	Emit(eventName string, ev mq.Event)
}

type Service struct {
	reviews reviewRepository
	recipes recipeRatings
	events  eventEmitter
	logger  *zap.Logger
}

// New creates a review service. events may be nil.
func New(reviews reviewRepository, recipes recipeRatings, events eventEmitter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{reviews: reviews, recipes: recipes, events: events, logger: logger}
}

// Submit records userID's review of a recipe, replacing an earlier one, and
// updates the recipe's average rating. Once the review is stored Submit
// succeeds: a failed average update is logged and left for Reconcile.
func (s *Service) Submit(ctx context.Context, recipeID, userID string, in models.ReviewInput) (*models.Review, error) {
	if userID == "" {
		return nil, repository.ErrForbidden
	}
	if err := models.Validate(in); err != nil {
		return nil, err
	}
	oid, err := repository.ParseID(recipeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.recipes.Get(ctx, oid); err != nil {
		return nil, err
	}

	review := &models.Review{
		RecipeID: recipeID,
		UserID:   userID,
		Rating:   in.Rating,
		Comment:  in.Comment,
	}
	prev, err := s.reviews.Upsert(ctx, review)
	if err != nil {
		return nil, err
	}

	sumDelta, countDelta := review.Rating, int64(1)
	if prev != nil {
		sumDelta -= prev.Rating
		countDelta = 0
	}
	s.updateAverage(ctx, oid, review.Rating, sumDelta, countDelta)

	if s.events != nil {
		s.events.Emit(mq.RecipeRated, mq.Event{
			EntityType: "recipe",
			EntityID:   recipeID,
			UserID:     userID,
			Payload:    review,
		})
	}
	return review, nil
}

// updateAverage applies the accumulator delta and falls back to a full
// recompute when the atomic update fails.
func (s *Service) updateAverage(ctx context.Context, oid primitive.ObjectID, rating, sumDelta float64, countDelta int64) {
	err := s.recipes.AccumulateRating(ctx, oid, sumDelta, countDelta)
	if err == nil {
		metrics.RatingUpdates.WithLabelValues("accumulate").Inc()
		return
	}
	s.logger.Warn("rating accumulate failed, recomputing",
		zap.String("recipe_id", oid.Hex()), zap.Error(err))

	if _, err := s.Recompute(ctx, oid.Hex(), &rating); err != nil {
		metrics.RatingUpdates.WithLabelValues("failed").Inc()
		s.logger.Error("average rating not updated",
			zap.String("recipe_id", oid.Hex()), zap.Error(err))
		return
	}
	metrics.RatingUpdates.WithLabelValues("recompute").Inc()
}

// Recompute derives the average from the stored reviews and writes it back.
// When no aggregate is available and submitted is set, the submitted rating
// is taken as the only review.
func (s *Service) Recompute(ctx context.Context, recipeID string, submitted *float64) (float64, error) {
	oid, err := repository.ParseID(recipeID)
	if err != nil {
		return 0, err
	}
	avg, n, err := s.reviews.Average(ctx, recipeID)
	if errors.Is(err, repository.ErrAggregateUnavailable) && submitted != nil {
		avg, n, err = *submitted, 1, nil
	}
	if err != nil {
		return 0, err
	}
	if err := s.recipes.SetRatingStats(ctx, oid, avg*float64(n), n); err != nil {
		return 0, err
	}
	return avg, nil
}

// Reconcile overwrites the recipe's rating aggregates with values derived
// from its reviews. A recipe without reviews is reset to zero.
func (s *Service) Reconcile(ctx context.Context, recipeID string) (*models.Recipe, error) {
	oid, err := repository.ParseID(recipeID)
	if err != nil {
		return nil, err
	}
	before, err := s.recipes.Get(ctx, oid)
	if err != nil {
		return nil, err
	}

	avg, n, err := s.reviews.Average(ctx, recipeID)
	if errors.Is(err, repository.ErrAggregateUnavailable) {
		avg, n, err = 0, 0, nil
	}
	if err == nil {
		err = s.recipes.SetRatingStats(ctx, oid, avg*float64(n), n)
	}
	if err != nil {
		metrics.Reconciliations.WithLabelValues("rating", "error").Inc()
		return nil, err
	}

	outcome := "unchanged"
	if before.RatingCount != n || before.AverageRating != avg {
		outcome = "corrected"
		s.logger.Info("rating aggregates corrected",
			zap.String("recipe_id", recipeID),
			zap.Float64("average_before", before.AverageRating),
			zap.Float64("average_after", avg),
			zap.Int64("count_before", before.RatingCount),
			zap.Int64("count_after", n))
	}
	metrics.Reconciliations.WithLabelValues("rating", outcome).Inc()
	return s.recipes.Get(ctx, oid)
}

func (s *Service) List(ctx context.Context, recipeID string) ([]models.Review, error) {
	if _, err := repository.ParseID(recipeID); err != nil {
		return nil, err
	}
	return s.reviews.ListByRecipe(ctx, recipeID)
}

func (s *Service) Get(ctx context.Context, recipeID, userID string) (*models.Review, error) {
	return s.reviews.Get(ctx, recipeID, userID)
}
