// Package memory implements the recipe stores in process memory. It mirrors
// the MongoDB stores' semantics and backs the tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cookbook/models"
	"cookbook/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds every collection behind one lock.
type Store struct {
	sync.RWMutex
	recipes map[primitive.ObjectID]*models.Recipe
	order   []primitive.ObjectID
	reviews map[string]*models.Review
	saves   map[string]*models.Save
	tags    map[string]int64
	now     func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		recipes: map[primitive.ObjectID]*models.Recipe{},
		reviews: map[string]*models.Review{},
		saves:   map[string]*models.Save{},
		tags:    map[string]int64{},
		now:     time.Now,
	}
}

func (s *Store) Recipes() *RecipeRepository { return &RecipeRepository{s} }
func (s *Store) Reviews() *ReviewRepository { return &ReviewRepository{s} }
func (s *Store) Saves() *SaveRepository     { return &SaveRepository{s} }
func (s *Store) Tags() *TagRepository       { return &TagRepository{s} }

func cloneRecipe(r *models.Recipe) *models.Recipe {
	c := *r
	c.Ingredients = append([]string(nil), r.Ingredients...)
	c.Tags = append([]string(nil), r.Tags...)
	return &c
}

// RecipeRepository is the memory recipe store.
type RecipeRepository struct{ s *Store }

func (r *RecipeRepository) Create(_ context.Context, recipe *models.Recipe) error {
	r.s.Lock()
	defer r.s.Unlock()

	recipe.ID = primitive.NewObjectID()
	now := r.s.now()
	recipe.CreatedAt, recipe.UpdatedAt = now, now
	r.s.recipes[recipe.ID] = cloneRecipe(recipe)
	r.s.order = append(r.s.order, recipe.ID)
	return nil
}

func (r *RecipeRepository) Get(_ context.Context, id primitive.ObjectID) (*models.Recipe, error) {
	r.s.RLock()
	defer r.s.RUnlock()

	rec, ok := r.s.recipes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneRecipe(rec), nil
}

// Update applies upd and returns the recipe as it was before the change.
func (r *RecipeRepository) Update(_ context.Context, id primitive.ObjectID, upd models.RecipeUpdate) (*models.Recipe, error) {
	r.s.Lock()
	defer r.s.Unlock()

	rec, ok := r.s.recipes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	before := cloneRecipe(rec)
	upd.Apply(rec)
	rec.UpdatedAt = r.s.now()
	return before, nil
}

func (r *RecipeRepository) Delete(_ context.Context, id primitive.ObjectID) (*models.Recipe, error) {
	r.s.Lock()
	defer r.s.Unlock()

	rec, ok := r.s.recipes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.s.recipes, id)
	for i, oid := range r.s.order {
		if oid == id {
			r.s.order = append(r.s.order[:i], r.s.order[i+1:]...)
			break
		}
	}
	return rec, nil
}

// Find evaluates the filter, then sorts, skips and limits like the MongoDB store.
func (r *RecipeRepository) Find(_ context.Context, f models.RecipeFilter) ([]models.Recipe, error) {
	r.s.RLock()
	defer r.s.RUnlock()

	out := []models.Recipe{}
	for _, id := range r.s.order {
		rec := r.s.recipes[id]
		if f.Matches(*rec) {
			out = append(out, *cloneRecipe(rec))
		}
	}
	sortRecipes(out, f.SortBy)

	if f.Offset > 0 {
		if f.Offset >= int64(len(out)) {
			return []models.Recipe{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < int64(len(out)) {
		out = out[:f.Limit]
	}
	return out, nil
}

func sortRecipes(recs []models.Recipe, by models.SortKey) {
	switch by {
	case models.SortRatingDesc:
		sort.SliceStable(recs, func(i, j int) bool {
			if recs[i].AverageRating != recs[j].AverageRating {
				return recs[i].AverageRating > recs[j].AverageRating
			}
			return recs[i].Title < recs[j].Title
		})
	case models.SortTitleAsc:
		sort.SliceStable(recs, func(i, j int) bool {
			if recs[i].Title != recs[j].Title {
				return recs[i].Title < recs[j].Title
			}
			return recs[i].ID.Hex() < recs[j].ID.Hex()
		})
	case models.SortSavesDesc:
		sort.SliceStable(recs, func(i, j int) bool {
			if recs[i].Saves != recs[j].Saves {
				return recs[i].Saves > recs[j].Saves
			}
			return recs[i].Title < recs[j].Title
		})
	}
}

// AccumulateRating adds to the rating sum and count and derives the average
// under the store lock.
func (r *RecipeRepository) AccumulateRating(_ context.Context, id primitive.ObjectID, sumDelta float64, countDelta int64) error {
	r.s.Lock()
	defer r.s.Unlock()

	rec, ok := r.s.recipes[id]
	if !ok {
		return repository.ErrNotFound
	}
	rec.RatingSum += sumDelta
	rec.RatingCount += countDelta
	rec.AverageRating = average(rec.RatingSum, rec.RatingCount)
	return nil
}

func (r *RecipeRepository) SetRatingStats(_ context.Context, id primitive.ObjectID, sum float64, count int64) error {
	r.s.Lock()
	defer r.s.Unlock()

	rec, ok := r.s.recipes[id]
	if !ok {
		return repository.ErrNotFound
	}
	rec.RatingSum, rec.RatingCount = sum, count
	rec.AverageRating = average(sum, count)
	return nil
}

// IncrementSaves never takes the counter below zero.
func (r *RecipeRepository) IncrementSaves(_ context.Context, id primitive.ObjectID, delta int64) error {
	r.s.Lock()
	defer r.s.Unlock()

	rec, ok := r.s.recipes[id]
	if !ok {
		return repository.ErrNotFound
	}
	if rec.Saves+delta < 0 {
		return nil
	}
	rec.Saves += delta
	return nil
}

func (r *RecipeRepository) SetSaves(_ context.Context, id primitive.ObjectID, n int64) error {
	r.s.Lock()
	defer r.s.Unlock()

	rec, ok := r.s.recipes[id]
	if !ok {
		return repository.ErrNotFound
	}
	rec.Saves = n
	return nil
}

func average(sum float64, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return sum / float64(count)
}

// ReviewRepository is the memory review store.
type ReviewRepository struct{ s *Store }

// Upsert writes the review under its composite key and returns the review it
// replaced, or nil.
func (r *ReviewRepository) Upsert(_ context.Context, review *models.Review) (*models.Review, error) {
	r.s.Lock()
	defer r.s.Unlock()

	review.ID = models.CompositeID(review.RecipeID, review.UserID)
	now := r.s.now()
	review.UpdatedAt = now
	prev, ok := r.s.reviews[review.ID]
	if ok {
		review.CreatedAt = prev.CreatedAt
	} else {
		review.CreatedAt = now
	}
	c := *review
	r.s.reviews[review.ID] = &c
	if !ok {
		return nil, nil
	}
	return prev, nil
}

func (r *ReviewRepository) Get(_ context.Context, recipeID, userID string) (*models.Review, error) {
	r.s.RLock()
	defer r.s.RUnlock()

	rev, ok := r.s.reviews[models.CompositeID(recipeID, userID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *rev
	return &c, nil
}

func (r *ReviewRepository) ListByRecipe(_ context.Context, recipeID string) ([]models.Review, error) {
	r.s.RLock()
	defer r.s.RUnlock()

	out := []models.Review{}
	for _, rev := range r.s.reviews {
		if rev.RecipeID == recipeID {
			out = append(out, *rev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Average returns the mean rating and the number of reviews of a recipe.
func (r *ReviewRepository) Average(_ context.Context, recipeID string) (float64, int64, error) {
	r.s.RLock()
	defer r.s.RUnlock()

	var sum float64
	var n int64
	for _, rev := range r.s.reviews {
		if rev.RecipeID == recipeID {
			sum += rev.Rating
			n++
		}
	}
	if n == 0 {
		return 0, 0, repository.ErrAggregateUnavailable
	}
	return sum / float64(n), n, nil
}

func (r *ReviewRepository) DeleteByRecipe(_ context.Context, recipeID string) (int64, error) {
	r.s.Lock()
	defer r.s.Unlock()

	var n int64
	for id, rev := range r.s.reviews {
		if rev.RecipeID == recipeID {
			delete(r.s.reviews, id)
			n++
		}
	}
	return n, nil
}

// SaveRepository is the memory membership store.
type SaveRepository struct{ s *Store }

func (r *SaveRepository) Insert(_ context.Context, save *models.Save) error {
	r.s.Lock()
	defer r.s.Unlock()

	save.ID = models.CompositeID(save.RecipeID, save.UserID)
	if _, ok := r.s.saves[save.ID]; ok {
		return repository.ErrAlreadyExists
	}
	save.CreatedAt = r.s.now()
	c := *save
	r.s.saves[save.ID] = &c
	return nil
}

func (r *SaveRepository) Delete(_ context.Context, recipeID, userID string) error {
	r.s.Lock()
	defer r.s.Unlock()

	id := models.CompositeID(recipeID, userID)
	if _, ok := r.s.saves[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.saves, id)
	return nil
}

func (r *SaveRepository) Exists(_ context.Context, recipeID, userID string) (bool, error) {
	r.s.RLock()
	defer r.s.RUnlock()

	_, ok := r.s.saves[models.CompositeID(recipeID, userID)]
	return ok, nil
}

func (r *SaveRepository) ListByUser(_ context.Context, userID string) ([]models.Save, error) {
	r.s.RLock()
	defer r.s.RUnlock()

	out := []models.Save{}
	for _, sv := range r.s.saves {
		if sv.UserID == userID {
			out = append(out, *sv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *SaveRepository) CountByRecipe(_ context.Context, recipeID string) (int64, error) {
	r.s.RLock()
	defer r.s.RUnlock()

	var n int64
	for _, sv := range r.s.saves {
		if sv.RecipeID == recipeID {
			n++
		}
	}
	return n, nil
}

func (r *SaveRepository) DeleteByRecipe(_ context.Context, recipeID string) (int64, error) {
	r.s.Lock()
	defer r.s.Unlock()

	var n int64
	for id, sv := range r.s.saves {
		if sv.RecipeID == recipeID {
			delete(r.s.saves, id)
			n++
		}
	}
	return n, nil
}

// TagRepository is the memory reference-counted tag store.
type TagRepository struct{ s *Store }

// Adjust applies per-tag deltas; tags whose count drops to zero are removed.
func (r *TagRepository) Adjust(_ context.Context, delta map[string]int) error {
	r.s.Lock()
	defer r.s.Unlock()

	for tag, d := range delta {
		n := r.s.tags[tag] + int64(d)
		if n <= 0 {
			delete(r.s.tags, tag)
			continue
		}
		r.s.tags[tag] = n
	}
	return nil
}

func (r *TagRepository) Top(_ context.Context, n int) ([]models.TagCount, error) {
	r.s.RLock()
	defer r.s.RUnlock()

	out := make([]models.TagCount, 0, len(r.s.tags))
	for tag, c := range r.s.tags {
		out = append(out, models.TagCount{Tag: tag, Count: c})
	}
	return models.TopTagCounts(out, n), nil
}

// TopByAuthor flattens the author's recipe tags and counts them.
func (r *TagRepository) TopByAuthor(_ context.Context, authorID string, n int) ([]models.TagCount, error) {
	r.s.RLock()
	defer r.s.RUnlock()

	var mine []models.Recipe
	for _, id := range r.s.order {
		if rec := r.s.recipes[id]; rec.AuthorID == authorID {
			mine = append(mine, *rec)
		}
	}
	return models.RankTags(mine, n), nil
}
