package mongodb

import (
	"context"

	"cookbook/models"
	"cookbook/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
)

// TagRepository keeps reference counts per tag and ranks tags. Per-author
// rankings are computed from the recipe collection itself.
type TagRepository struct {
	tags    *mongo.Collection
	recipes *mongo.Collection
}

func NewTagRepository(tags, recipes *mongo.Collection) *TagRepository {
	return &TagRepository{tags: tags, recipes: recipes}
}

// Adjust upserts every counter with $inc and then drops counters that fell
// to zero or below.
func (r *TagRepository) Adjust(ctx context.Context, delta map[string]int) error {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "TagRepository/Adjust")
	defer span.End()

	if len(delta) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(delta))
	for tag, d := range delta {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": tag}).
			SetUpdate(bson.M{"$inc": bson.M{"count": d}}).
			SetUpsert(true))
	}
	if _, err := r.tags.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return repository.Wrap("adjust tags", err)
	}
	if _, err := r.tags.DeleteMany(ctx, bson.M{"count": bson.M{"$lte": 0}}); err != nil {
		return repository.Wrap("prune tags", err)
	}
	return nil
}

func (r *TagRepository) Top(ctx context.Context, n int) ([]models.TagCount, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "TagRepository/Top")
	defer span.End()

	if n <= 0 {
		return []models.TagCount{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(n))
	cursor, err := r.tags.Find(ctx, bson.M{"count": bson.M{"$gt": 0}}, opts)
	if err != nil {
		return nil, repository.Wrap("top tags", err)
	}
	defer cursor.Close(ctx)

	out := []models.TagCount{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, repository.Wrap("decode tags", err)
	}
	return out, nil
}

func (r *TagRepository) TopByAuthor(ctx context.Context, authorID string, n int) ([]models.TagCount, error) {
	ctx, span := otel.Tracer(tracerID).Start(ctx, "TagRepository/TopByAuthor")
	defer span.End()

	if n <= 0 {
		return []models.TagCount{}, nil
	}
	cursor, err := r.recipes.Aggregate(ctx, PopularTagsPipeline(authorID, n))
	if err != nil {
		return nil, repository.Wrap("author tags", err)
	}
	defer cursor.Close(ctx)

	out := []models.TagCount{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, repository.Wrap("decode author tags", err)
	}
	return out, nil
}
