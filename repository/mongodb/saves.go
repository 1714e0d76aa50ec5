package mongodb

import (
	"context"
	"time"

	"cookbook/models"
	"cookbook/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
)

// SaveRepository stores save memberships keyed by (recipeId, userId).
type SaveRepository struct {
	coll *mongo.Collection
}

func NewSaveRepository(coll *mongo.Collection) *SaveRepository {
	return &SaveRepository{coll: coll}
}

func (r *SaveRepository) Insert(ctx context.Context, save *models.Save) error {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "SaveRepository/Insert")
	defer span.End()

	save.ID = models.CompositeID(save.RecipeID, save.UserID)
	save.CreatedAt = time.Now()
	if _, err := r.coll.InsertOne(ctx, save); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrAlreadyExists
		}
		return repository.Wrap("insert save", err)
	}
	return nil
}

func (r *SaveRepository) Delete(ctx context.Context, recipeID, userID string) error {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "SaveRepository/Delete")
	defer span.End()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": models.CompositeID(recipeID, userID)})
	if err != nil {
		return repository.Wrap("delete save", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *SaveRepository) Exists(ctx context.Context, recipeID, userID string) (bool, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "SaveRepository/Exists")
	defer span.End()

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": models.CompositeID(recipeID, userID)}, options.Count().SetLimit(1))
	if err != nil {
		return false, repository.Wrap("find save", err)
	}
	return n > 0, nil
}

func (r *SaveRepository) ListByUser(ctx context.Context, userID string) ([]models.Save, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "SaveRepository/ListByUser")
	defer span.End()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, repository.Wrap("list saves", err)
	}
	defer cursor.Close(ctx)

	saves := []models.Save{}
	if err := cursor.All(ctx, &saves); err != nil {
		return nil, repository.Wrap("decode saves", err)
	}
	return saves, nil
}

func (r *SaveRepository) CountByRecipe(ctx context.Context, recipeID string) (int64, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "SaveRepository/CountByRecipe")
	defer span.End()

	n, err := r.coll.CountDocuments(ctx, bson.M{"recipeId": recipeID})
	if err != nil {
		return 0, repository.Wrap("count saves", err)
	}
	return n, nil
}

func (r *SaveRepository) DeleteByRecipe(ctx context.Context, recipeID string) (int64, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "SaveRepository/DeleteByRecipe")
	defer span.End()

	res, err := r.coll.DeleteMany(ctx, bson.M{"recipeId": recipeID})
	if err != nil {
		return 0, repository.Wrap("delete saves", err)
	}
	return res.DeletedCount, nil
}
