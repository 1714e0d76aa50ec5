package memory

import (
	"context"
	"sync"
	"testing"

	"cookbook/models"
	"cookbook/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRecipeCRUD(t *testing.T) {
	store := New()
	repo := store.Recipes()
	ctx := context.Background()

	rec := &models.Recipe{Title: "Dal", Tags: []string{"vegan"}}
	require.NoError(t, repo.Create(ctx, rec))
	require.False(t, rec.ID.IsZero())
	assert.False(t, rec.CreatedAt.IsZero())

	rec.Tags[0] = "mutated"
	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"vegan"}, got.Tags)

	title := "Tadka Dal"
	before, err := repo.Update(ctx, rec.ID, models.RecipeUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Dal", before.Title)
	got, _ = repo.Get(ctx, rec.ID)
	assert.Equal(t, "Tadka Dal", got.Title)

	deleted, err := repo.Delete(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tadka Dal", deleted.Title)
	_, err = repo.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.Delete(ctx, rec.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.Update(ctx, primitive.NewObjectID(), models.RecipeUpdate{Title: &title})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFindOffsetPastEnd(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, title := range []string{"a", "b"} {
		require.NoError(t, store.Recipes().Create(ctx, &models.Recipe{Title: title}))
	}
	got, err := store.Recipes().Find(ctx, models.RecipeFilter{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAccumulateRatingConcurrently(t *testing.T) {
	store := New()
	repo := store.Recipes()
	ctx := context.Background()
	rec := &models.Recipe{Title: "Risotto"}
	require.NoError(t, repo.Create(ctx, rec))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(r float64) {
			defer wg.Done()
			assert.NoError(t, repo.AccumulateRating(ctx, rec.ID, r, 1))
		}(float64(i%5 + 1))
	}
	wg.Wait()

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.RatingCount)
	assert.InDelta(t, 3.0, got.AverageRating, 1e-9)
}

func TestIncrementSavesFloorsAtZero(t *testing.T) {
	store := New()
	repo := store.Recipes()
	ctx := context.Background()
	rec := &models.Recipe{Title: "Gnocchi"}
	require.NoError(t, repo.Create(ctx, rec))

	require.NoError(t, repo.IncrementSaves(ctx, rec.ID, -1))
	got, _ := repo.Get(ctx, rec.ID)
	assert.Zero(t, got.Saves)

	require.NoError(t, repo.IncrementSaves(ctx, rec.ID, 1))
	got, _ = repo.Get(ctx, rec.ID)
	assert.Equal(t, int64(1), got.Saves)

	assert.ErrorIs(t, repo.IncrementSaves(ctx, primitive.NewObjectID(), 1), repository.ErrNotFound)
}

func TestReviewUpsertReturnsPrevious(t *testing.T) {
	reviews := New().Reviews()
	ctx := context.Background()

	prev, err := reviews.Upsert(ctx, &models.Review{RecipeID: "r1", UserID: "ann", Rating: 2})
	require.NoError(t, err)
	assert.Nil(t, prev)

	prev, err = reviews.Upsert(ctx, &models.Review{RecipeID: "r1", UserID: "ann", Rating: 4})
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, 2.0, prev.Rating)

	avg, n, err := reviews.Average(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, avg)
	assert.Equal(t, int64(1), n)

	_, _, err = reviews.Average(ctx, "r2")
	assert.ErrorIs(t, err, repository.ErrAggregateUnavailable)
}

func TestSaveMembership(t *testing.T) {
	saves := New().Saves()
	ctx := context.Background()

	require.NoError(t, saves.Insert(ctx, &models.Save{RecipeID: "r1", UserID: "ann"}))
	assert.ErrorIs(t, saves.Insert(ctx, &models.Save{RecipeID: "r1", UserID: "ann"}), repository.ErrAlreadyExists)
	require.NoError(t, saves.Insert(ctx, &models.Save{RecipeID: "r1", UserID: "ben"}))

	n, err := saves.CountByRecipe(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, saves.Delete(ctx, "r1", "ann"))
	assert.ErrorIs(t, saves.Delete(ctx, "r1", "ann"), repository.ErrNotFound)

	removed, err := saves.DeleteByRecipe(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestTagAdjustPrunes(t *testing.T) {
	tags := New().Tags()
	ctx := context.Background()

	require.NoError(t, tags.Adjust(ctx, map[string]int{"a": 2, "b": 1}))
	require.NoError(t, tags.Adjust(ctx, map[string]int{"a": -1, "b": -1}))

	top, err := tags.Top(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.TagCount{{Tag: "a", Count: 1}}, top)
}
