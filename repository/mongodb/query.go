// Package mongodb implements the recipe stores on MongoDB.
package mongodb

import (
	"regexp"
	"strings"

	"cookbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerID = "recipe-repository-mongodb"

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// BuildRecipeFilter composes the conjunction of the predicates f specifies.
// Unspecified predicates are left out of the document entirely, so an empty
// filter selects the whole collection.
func BuildRecipeFilter(f models.RecipeFilter) bson.D {
	filter := bson.D{}

	if f.HasTitle() {
		pattern := regexp.QuoteMeta(strings.TrimSpace(f.TitleContains))
		filter = append(filter, bson.E{Key: "title", Value: bson.M{"$regex": primitive.Regex{Pattern: pattern, Options: "i"}}})
	}
	if f.HasMinRating() {
		filter = append(filter, bson.E{Key: "averageRating", Value: bson.M{"$gte": f.MinRating}})
	}
	if f.HasTags() {
		filter = append(filter, bson.E{Key: "tags", Value: bson.M{"$in": models.NormalizeTags(f.Tags)}})
	}
	if f.HasAuthor() {
		filter = append(filter, bson.E{Key: "authorId", Value: f.AuthorID})
	}
	return filter
}

// SortFor maps a sort key to a sort document with a deterministic secondary
// key. SortNone yields nil: natural order.
func SortFor(key models.SortKey) bson.D {
	switch key {
	case models.SortRatingDesc:
		return bson.D{{Key: "averageRating", Value: -1}, {Key: "title", Value: 1}}
	case models.SortTitleAsc:
		return bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}}
	case models.SortSavesDesc:
		return bson.D{{Key: "saves", Value: -1}, {Key: "title", Value: 1}}
	}
	return nil
}

// FindOptionsFor applies the sort directive, then skip and limit.
func FindOptionsFor(f models.RecipeFilter) *options.FindOptions {
	opts := options.Find()
	if sort := SortFor(f.SortBy); sort != nil {
		opts.SetSort(sort)
	}
	if f.Offset > 0 {
		opts.SetSkip(f.Offset)
	}
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	return opts
}

// PopularTagsPipeline flattens recipe tags, groups and counts them, and keeps
// the n most frequent. An empty authorID ranks over every recipe.
func PopularTagsPipeline(authorID string, n int) mongo.Pipeline {
	pipeline := mongo.Pipeline{}
	if authorID != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"authorId": authorID}}})
	}
	return append(pipeline,
		bson.D{{Key: "$unwind", Value: "$tags"}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$tags"},
			{Key: "count", Value: bson.M{"$sum": 1}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$limit", Value: int64(n)}},
	)
}

// AverageRatingPipeline computes the mean rating and review count of one recipe.
func AverageRatingPipeline(recipeID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"recipeId": recipeID}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg", Value: bson.M{"$avg": "$rating"}},
			{Key: "count", Value: bson.M{"$sum": 1}},
		}}},
	}
}

// accumulatePipeline is a single-document update that adds to the rating sum
// and count and re-derives the average from the stored values, so concurrent
// submissions cannot overwrite each other.
func accumulatePipeline(sumDelta float64, countDelta int64) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "ratingSum", Value: bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$ratingSum", 0}}, sumDelta}}},
			{Key: "ratingCount", Value: bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$ratingCount", 0}}, countDelta}}},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "averageRating", Value: bson.M{"$cond": bson.A{
				bson.M{"$gt": bson.A{"$ratingCount", 0}},
				bson.M{"$divide": bson.A{"$ratingSum", "$ratingCount"}},
				0,
			}}},
		}}},
	}
}
