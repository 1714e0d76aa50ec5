package mongodb

import (
	"context"
	"errors"
	"time"

	"cookbook/models"
	"cookbook/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RecipeRepository stores recipes in a MongoDB collection.
type RecipeRepository struct {
	coll *mongo.Collection
}

func NewRecipeRepository(coll *mongo.Collection) *RecipeRepository {
	return &RecipeRepository{coll: coll}
}

func (r *RecipeRepository) Create(ctx context.Context, recipe *models.Recipe) error {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "RecipeRepository/Create")
	defer span.End()

	now := time.Now()
	recipe.ID = primitive.NewObjectID()
	recipe.CreatedAt, recipe.UpdatedAt = now, now
	if _, err := r.coll.InsertOne(ctx, recipe); err != nil {
		return repository.Wrap("insert recipe", err)
	}
	return nil
}

func (r *RecipeRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.Recipe, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "RecipeRepository/Get")
	defer span.End()

	var recipe models.Recipe
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&recipe)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, repository.Wrap("get recipe", err)
	}
	return &recipe, nil
}

// Update sets the fields present in upd and returns the document as it was
// before the write.
func (r *RecipeRepository) Update(ctx context.Context, id primitive.ObjectID, upd models.RecipeUpdate) (*models.Recipe, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "RecipeRepository/Update")
	defer span.End()

	set := bson.M{"updatedAt": time.Now()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Instructions != nil {
		set["instructions"] = *upd.Instructions
	}
	if upd.Ingredients != nil {
		set["ingredients"] = *upd.Ingredients
	}
	if upd.Tags != nil {
		set["tags"] = *upd.Tags
	}
	if upd.PrepTime != nil {
		set["prepTime"] = *upd.PrepTime
	}
	if upd.CookTime != nil {
		set["cookTime"] = *upd.CookTime
	}
	if upd.Servings != nil {
		set["servings"] = *upd.Servings
	}
	if upd.ImageURI != nil {
		set["imageUri"] = *upd.ImageURI
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	var before models.Recipe
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, repository.Wrap("update recipe", err)
	}
	return &before, nil
}

func (r *RecipeRepository) Delete(ctx context.Context, id primitive.ObjectID) (*models.Recipe, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "RecipeRepository/Delete")
	defer span.End()

	var deleted models.Recipe
	err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&deleted)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, repository.Wrap("delete recipe", err)
	}
	return &deleted, nil
}

// Find executes the composed filter, sort and limit in one read.
func (r *RecipeRepository) Find(ctx context.Context, f models.RecipeFilter) ([]models.Recipe, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "RecipeRepository/Find", trace.WithAttributes(
		attribute.String("recipes.sort", string(f.SortBy)),
		attribute.Bool("recipes.filter.title", f.HasTitle()),
		attribute.Bool("recipes.filter.rating", f.HasMinRating()),
		attribute.Bool("recipes.filter.tags", f.HasTags()),
		attribute.Bool("recipes.filter.author", f.HasAuthor()),
		attribute.Int64("recipes.limit", f.Limit),
	))
	defer span.End()

	cursor, err := r.coll.Find(ctx, BuildRecipeFilter(f), FindOptionsFor(f))
	if err != nil {
		return nil, recordError(span, repository.Wrap("find recipes", err))
	}
	defer cursor.Close(ctx)

	var recipes []models.Recipe
	if err := cursor.All(ctx, &recipes); err != nil {
		return nil, recordError(span, repository.Wrap("decode recipes", err))
	}
	span.SetAttributes(attribute.Int("recipes.results", len(recipes)))
	if recipes == nil {
		recipes = []models.Recipe{}
	}
	return recipes, nil
}

func (r *RecipeRepository) AccumulateRating(ctx context.Context, id primitive.ObjectID, sumDelta float64, countDelta int64) error {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "RecipeRepository/AccumulateRating")
	defer span.End()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, accumulatePipeline(sumDelta, countDelta))
	if err != nil {
		return repository.Wrap("accumulate rating", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *RecipeRepository) SetRatingStats(ctx context.Context, id primitive.ObjectID, sum float64, count int64) error {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "RecipeRepository/SetRatingStats")
	defer span.End()

	avg := 0.0
	if count > 0 {
		avg = sum / float64(count)
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"ratingSum":     sum,
		"ratingCount":   count,
		"averageRating": avg,
	}})
	if err != nil {
		return repository.Wrap("set rating stats", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// IncrementSaves applies $inc; a decrement only matches while the counter can
// absorb it, so saves never goes negative.
func (r *RecipeRepository) IncrementSaves(ctx context.Context, id primitive.ObjectID, delta int64) error {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "RecipeRepository/IncrementSaves")
	defer span.End()

	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["saves"] = bson.M{"$gte": -delta}
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"saves": delta}})
	if err != nil {
		return repository.Wrap("increment saves", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return repository.Wrap("increment saves", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *RecipeRepository) SetSaves(ctx context.Context, id primitive.ObjectID, n int64) error {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "RecipeRepository/SetSaves")
	defer span.End()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"saves": n}})
	if err != nil {
		return repository.Wrap("set saves", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
