package mongodb

import (
	"context"
	"errors"
	"time"

	"cookbook/models"
	"cookbook/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
)

// ReviewRepository stores reviews keyed by (recipeId, userId).
type ReviewRepository struct {
	coll *mongo.Collection
}

func NewReviewRepository(coll *mongo.Collection) *ReviewRepository {
	return &ReviewRepository{coll: coll}
}

// Upsert writes the review under its composite key. The replaced review, if
// any, is returned from the same atomic operation.
func (r *ReviewRepository) Upsert(ctx context.Context, review *models.Review) (*models.Review, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "ReviewRepository/Upsert")
	defer span.End()

	now := time.Now()
	review.ID = models.CompositeID(review.RecipeID, review.UserID)
	review.UpdatedAt = now

	update := bson.M{
		"$set": bson.M{
			"recipeId":  review.RecipeID,
			"userId":    review.UserID,
			"rating":    review.Rating,
			"comment":   review.Comment,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)

	var prev models.Review
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": review.ID}, update, opts).Decode(&prev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		review.CreatedAt = now
		return nil, nil
	}
	if err != nil {
		return nil, repository.Wrap("upsert review", err)
	}
	review.CreatedAt = prev.CreatedAt
	return &prev, nil
}

func (r *ReviewRepository) Get(ctx context.Context, recipeID, userID string) (*models.Review, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "ReviewRepository/Get")
	defer span.End()

	var review models.Review
	err := r.coll.FindOne(ctx, bson.M{"_id": models.CompositeID(recipeID, userID)}).Decode(&review)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, repository.Wrap("get review", err)
	}
	return &review, nil
}

func (r *ReviewRepository) ListByRecipe(ctx context.Context, recipeID string) ([]models.Review, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "ReviewRepository/ListByRecipe")
	defer span.End()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"recipeId": recipeID}, opts)
	if err != nil {
		return nil, repository.Wrap("list reviews", err)
	}
	defer cursor.Close(ctx)

	reviews := []models.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, repository.Wrap("decode reviews", err)
	}
	return reviews, nil
}

// Average returns ErrAggregateUnavailable when the aggregate produces no row.
func (r *ReviewRepository) Average(ctx context.Context, recipeID string) (float64, int64, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "ReviewRepository/Average")
	defer span.End()

	cursor, err := r.coll.Aggregate(ctx, AverageRatingPipeline(recipeID))
	if err != nil {
		return 0, 0, repository.Wrap("average rating", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Avg   *float64 `bson:"avg"`
		Count int64    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, 0, repository.Wrap("decode average", err)
	}
	if len(rows) == 0 || rows[0].Avg == nil || rows[0].Count == 0 {
		return 0, 0, repository.ErrAggregateUnavailable
	}
	return *rows[0].Avg, rows[0].Count, nil
}

func (r *ReviewRepository) DeleteByRecipe(ctx context.Context, recipeID string) (int64, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "ReviewRepository/DeleteByRecipe")
	defer span.End()

	res, err := r.coll.DeleteMany(ctx, bson.M{"recipeId": recipeID})
	if err != nil {
		return 0, repository.Wrap("delete reviews", err)
	}
	return res.DeletedCount, nil
}
