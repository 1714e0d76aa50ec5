// Package recipes implements composed recipe reads and recipe CRUD.
package recipes

import (
	"context"
	"strings"
	"time"

	"cookbook/metrics"
	"cookbook/models"
	"cookbook/mq"
	"cookbook/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type recipeRepository interface {
	Create(ctx context.Context, recipe *models.Recipe) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Recipe, error)
	Update(ctx context.Context, id primitive.ObjectID, upd models.RecipeUpdate) (*models.Recipe, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Recipe, error)
	Find(ctx context.Context, f models.RecipeFilter) ([]models.Recipe, error)
}

type tagCounter interface {
	Adjust(ctx context.Context, delta map[string]int) error
}

// recipeChildren is satisfied by the review and save stores.
type recipeChildren interface {
	DeleteByRecipe(ctx context.Context, recipeID string) (int64, error)
}

type tagInvalidator interface {
	Invalidate(ctx context.Context)
}

type eventEmitter interface {
	Emit(eventName string, ev mq.Event)
}

// Deps groups the collaborators of a Service. Reviews, Saves, TagCache and
// Events are optional.
type Deps struct {
	Recipes  recipeRepository
	Tags     tagCounter
	Reviews  recipeChildren
	Saves    recipeChildren
	TagCache tagInvalidator
	Events   eventEmitter
	Logger   *zap.Logger
}

type Service struct {
	repo     recipeRepository
	tags     tagCounter
	reviews  recipeChildren
	saves    recipeChildren
	tagCache tagInvalidator
	events   eventEmitter
	logger   *zap.Logger
}

func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     d.Recipes,
		tags:     d.Tags,
		reviews:  d.Reviews,
		saves:    d.Saves,
		tagCache: d.TagCache,
		events:   d.Events,
		logger:   logger,
	}
}

// Query runs the conjunction of the predicates set on f, ordered by f.SortBy
// and bounded by f.Limit and f.Offset. Store failures are returned, never an
// empty or partial result.
func (s *Service) Query(ctx context.Context, f models.RecipeFilter) ([]models.Recipe, error) {
	sortKey, err := models.ParseSortKey(string(f.SortBy))
	if err != nil {
		return nil, err
	}
	f.SortBy = sortKey
	if f.Limit < 0 {
		f.Limit = 0
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	start := time.Now()
	recipes, err := s.repo.Find(ctx, f)
	metrics.RecipeQueryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RecipeQueries.WithLabelValues(sortLabel(sortKey), "error").Inc()
		s.logger.Error("recipe query failed",
			zap.String("title", f.TitleContains),
			zap.Float64("min_rating", f.MinRating),
			zap.Strings("tags", f.Tags),
			zap.String("author", f.AuthorID),
			zap.String("sort", sortLabel(sortKey)),
			zap.Error(err))
		return nil, err
	}
	metrics.RecipeQueries.WithLabelValues(sortLabel(sortKey), "ok").Inc()
	return recipes, nil
}

func sortLabel(k models.SortKey) string {
	if k == models.SortNone {
		return "none"
	}
	return string(k)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Recipe, error) {
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, oid)
}

// Create stores a new recipe authored by authorID with zeroed aggregates.
func (s *Service) Create(ctx context.Context, authorID string, in models.RecipeInput) (*models.Recipe, error) {
	if authorID == "" {
		return nil, repository.ErrForbidden
	}
	if err := models.Validate(in); err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		Title:        strings.TrimSpace(in.Title),
		Instructions: in.Instructions,
		Ingredients:  trimAll(in.Ingredients),
		AuthorID:     authorID,
		Tags:         models.NormalizeTags(in.Tags),
		PrepTime:     in.PrepTime,
		CookTime:     in.CookTime,
		Servings:     in.Servings,
		ImageURI:     in.ImageURI,
	}
	if err := s.repo.Create(ctx, recipe); err != nil {
		return nil, err
	}

	s.adjustTags(ctx, models.TagDelta(nil, recipe.Tags))
	s.emit(mq.RecipeCreated, recipe.ID.Hex(), authorID, recipe)
	s.logger.Info("recipe created", zap.String("recipe_id", recipe.ID.Hex()), zap.String("author", authorID))
	return recipe, nil
}

// Update applies a partial update. Only the author may update a recipe.
func (s *Service) Update(ctx context.Context, userID, id string, upd models.RecipeUpdate) (*models.Recipe, error) {
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, err
	}
	upd = normalizeUpdate(upd)
	if err := models.Validate(upd); err != nil {
		return nil, err
	}
	current, err := s.repo.Get(ctx, oid)
	if err != nil {
		return nil, err
	}
	if current.AuthorID != userID {
		return nil, repository.ErrForbidden
	}
	if upd.Empty() {
		return current, nil
	}
	merged := *current
	upd.Apply(&merged)
	if err := models.Validate(merged.Input()); err != nil {
		return nil, err
	}

	before, err := s.repo.Update(ctx, oid, upd)
	if err != nil {
		return nil, err
	}
	if upd.Tags != nil {
		s.adjustTags(ctx, models.TagDelta(before.Tags, *upd.Tags))
	}

	updated, err := s.repo.Get(ctx, oid)
	if err != nil {
		return nil, err
	}
	s.emit(mq.RecipeUpdated, id, userID, updated)
	return updated, nil
}

// Delete removes a recipe with its reviews and saves. Only the author may
// delete a recipe.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	oid, err := repository.ParseID(id)
	if err != nil {
		return err
	}
	current, err := s.repo.Get(ctx, oid)
	if err != nil {
		return err
	}
	if current.AuthorID != userID {
		return repository.ErrForbidden
	}

	deleted, err := s.repo.Delete(ctx, oid)
	if err != nil {
		return err
	}
	s.adjustTags(ctx, models.TagDelta(deleted.Tags, nil))

	for name, children := range map[string]recipeChildren{"reviews": s.reviews, "saves": s.saves} {
		if children == nil {
			continue
		}
		if _, err := children.DeleteByRecipe(ctx, id); err != nil {
			s.logger.Warn("orphaned recipe children",
				zap.String("recipe_id", id), zap.String("collection", name), zap.Error(err))
		}
	}

	s.emit(mq.RecipeDeleted, id, userID, nil)
	s.logger.Info("recipe deleted", zap.String("recipe_id", id), zap.String("author", userID))
	return nil
}

// adjustTags moves the tag reference counts and drops cached rankings. A
// failed adjustment leaves the recipe write in place.
func (s *Service) adjustTags(ctx context.Context, delta map[string]int) {
	if len(delta) == 0 {
		return
	}
	if s.tags != nil {
		if err := s.tags.Adjust(ctx, delta); err != nil {
			s.logger.Warn("tag counters not adjusted", zap.Any("delta", delta), zap.Error(err))
		}
	}
	if s.tagCache != nil {
		s.tagCache.Invalidate(ctx)
	}
}

func (s *Service) emit(name, recipeID, userID string, payload any) {
	if s.events == nil {
		return
	}
	s.events.Emit(name, mq.Event{
		EntityType: "recipe",
		EntityID:   recipeID,
		UserID:     userID,
		Payload:    payload,
	})
}

// normalizeUpdate trims the set fields the way Create does, before they are
// validated.
func normalizeUpdate(upd models.RecipeUpdate) models.RecipeUpdate {
	if upd.Title != nil {
		t := strings.TrimSpace(*upd.Title)
		upd.Title = &t
	}
	if upd.Ingredients != nil {
		ing := trimAll(*upd.Ingredients)
		upd.Ingredients = &ing
	}
	if upd.Tags != nil {
		tags := models.NormalizeTags(*upd.Tags)
		upd.Tags = &tags
	}
	return upd
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
