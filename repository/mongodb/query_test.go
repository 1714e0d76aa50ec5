package mongodb

import (
	"testing"

	"cookbook/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestBuildRecipeFilterOmitsAbsentPredicates(t *testing.T) {
	tests := []struct {
		name string
		f    models.RecipeFilter
	}{
		{"zero value", models.RecipeFilter{}},
		{"zero rating", models.RecipeFilter{MinRating: 0}},
		{"negative rating", models.RecipeFilter{MinRating: -1}},
		{"blank title", models.RecipeFilter{TitleContains: "   "}},
		{"empty tag set", models.RecipeFilter{Tags: []string{}}},
		{"only blank tags", models.RecipeFilter{Tags: []string{"", " "}}},
		{"sort and limit only", models.RecipeFilter{SortBy: models.SortTitleAsc, Limit: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, BuildRecipeFilter(tt.f))
		})
	}
}

func TestBuildRecipeFilterComposesConjunction(t *testing.T) {
	got := BuildRecipeFilter(models.RecipeFilter{
		TitleContains: " pie ",
		MinRating:     3.5,
		Tags:          []string{"Dessert", "dessert", "baking"},
		AuthorID:      "user-1",
	})
	want := bson.D{
		{Key: "title", Value: bson.M{"$regex": primitive.Regex{Pattern: "pie", Options: "i"}}},
		{Key: "averageRating", Value: bson.M{"$gte": 3.5}},
		{Key: "tags", Value: bson.M{"$in": []string{"dessert", "baking"}}},
		{Key: "authorId", Value: "user-1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildRecipeFilter() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRecipeFilterQuotesTitle(t *testing.T) {
	got := BuildRecipeFilter(models.RecipeFilter{TitleContains: "mac (& cheese)"})
	require.Len(t, got, 1)
	re := got[0].Value.(bson.M)["$regex"].(primitive.Regex)
	assert.Equal(t, `mac \(& cheese\)`, re.Pattern)
	assert.Equal(t, "i", re.Options)
}

func TestSortFor(t *testing.T) {
	assert.Nil(t, SortFor(models.SortNone))
	assert.Equal(t, bson.D{{Key: "averageRating", Value: -1}, {Key: "title", Value: 1}}, SortFor(models.SortRatingDesc))
	assert.Equal(t, bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}}, SortFor(models.SortTitleAsc))
	assert.Equal(t, bson.D{{Key: "saves", Value: -1}, {Key: "title", Value: 1}}, SortFor(models.SortSavesDesc))
}

func TestFindOptionsFor(t *testing.T) {
	opts := FindOptionsFor(models.RecipeFilter{})
	assert.Nil(t, opts.Sort)
	assert.Nil(t, opts.Limit)
	assert.Nil(t, opts.Skip)

	opts = FindOptionsFor(models.RecipeFilter{SortBy: models.SortSavesDesc, Limit: 10, Offset: 20})
	assert.Equal(t, SortFor(models.SortSavesDesc), opts.Sort)
	require.NotNil(t, opts.Limit)
	assert.EqualValues(t, 10, *opts.Limit)
	require.NotNil(t, opts.Skip)
	assert.EqualValues(t, 20, *opts.Skip)
}

func TestPopularTagsPipeline(t *testing.T) {
	all := PopularTagsPipeline("", 5)
	require.Len(t, all, 4)
	assert.Equal(t, "$unwind", all[0][0].Key)
	assert.Equal(t, bson.D{{Key: "$limit", Value: int64(5)}}, all[3])

	mine := PopularTagsPipeline("user-1", 10)
	require.Len(t, mine, 5)
	assert.Equal(t, bson.D{{Key: "$match", Value: bson.M{"authorId": "user-1"}}}, mine[0])
	assert.Equal(t, bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}}, mine[3])
}

func TestAverageRatingPipeline(t *testing.T) {
	p := AverageRatingPipeline("r1")
	require.Len(t, p, 2)
	assert.Equal(t, bson.D{{Key: "$match", Value: bson.M{"recipeId": "r1"}}}, p[0])
	assert.Equal(t, "$group", p[1][0].Key)
}

func TestAccumulatePipeline(t *testing.T) {
	p := accumulatePipeline(-1.5, 0)
	require.Len(t, p, 2)

	want := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "ratingSum", Value: bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$ratingSum", 0}}, -1.5}}},
			{Key: "ratingCount", Value: bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$ratingCount", 0}}, int64(0)}}},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "averageRating", Value: bson.M{"$cond": bson.A{
				bson.M{"$gt": bson.A{"$ratingCount", 0}},
				bson.M{"$divide": bson.A{"$ratingSum", "$ratingCount"}},
				0,
			}}},
		}}},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("accumulatePipeline mismatch (-want +got):\n%s", diff)
	}
}
