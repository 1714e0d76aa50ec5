package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Recipe struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"      json:"id"`
	Title         string             `bson:"title"              json:"title"`
	Instructions  string             `bson:"instructions"       json:"instructions"`
	Ingredients   []string           `bson:"ingredients"        json:"ingredients"`
	AuthorID      string             `bson:"authorId"           json:"authorId"`
	Tags          []string           `bson:"tags"               json:"tags"`
	AverageRating float64            `bson:"averageRating"      json:"averageRating"`
	RatingSum     float64            `bson:"ratingSum"          json:"-"`
	RatingCount   int64              `bson:"ratingCount"        json:"ratingCount"`
	Saves         int64              `bson:"saves"              json:"saves"`
	PrepTime      string             `bson:"prepTime,omitempty" json:"prepTime,omitempty"`
	CookTime      string             `bson:"cookTime,omitempty" json:"cookTime,omitempty"`
	Servings      string             `bson:"servings,omitempty" json:"servings,omitempty"`
	ImageURI      string             `bson:"imageUri,omitempty" json:"imageUri,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt"          json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"          json:"updatedAt"`
}

// RecipeInput is the body accepted when a recipe is created.
type RecipeInput struct {
	Title        string   `json:"title"        validate:"required,max=200"`
	Instructions string   `json:"instructions" validate:"required"`
	Ingredients  []string `json:"ingredients"  validate:"required,min=1,dive,required"`
	Tags         []string `json:"tags"         validate:"max=20,dive,max=40"`
	PrepTime     string   `json:"prepTime"`
	CookTime     string   `json:"cookTime"`
	Servings     string   `json:"servings"`
	ImageURI     string   `json:"imageUri"     validate:"omitempty,uri"`
}

// Input returns the creatable fields of r, so a stored or merged recipe can be
// checked against the rules enforced on create.
func (r Recipe) Input() RecipeInput {
	return RecipeInput{
		Title:        r.Title,
		Instructions: r.Instructions,
		Ingredients:  r.Ingredients,
		Tags:         r.Tags,
		PrepTime:     r.PrepTime,
		CookTime:     r.CookTime,
		Servings:     r.Servings,
		ImageURI:     r.ImageURI,
	}
}

// RecipeUpdate carries the fields of a partial update. Nil means "leave as is".
type RecipeUpdate struct {
	Title        *string   `json:"title,omitempty"        validate:"omitempty,min=1,max=200"`
	Instructions *string   `json:"instructions,omitempty"`
	Ingredients  *[]string `json:"ingredients,omitempty"  validate:"omitempty,min=1,dive,required"`
	Tags         *[]string `json:"tags,omitempty"         validate:"omitempty,max=20,dive,max=40"`
	PrepTime     *string   `json:"prepTime,omitempty"`
	CookTime     *string   `json:"cookTime,omitempty"`
	Servings     *string   `json:"servings,omitempty"`
	ImageURI     *string   `json:"imageUri,omitempty"`
}

// Empty reports whether the update would not change anything.
func (u RecipeUpdate) Empty() bool {
	return u.Title == nil && u.Instructions == nil && u.Ingredients == nil &&
		u.Tags == nil && u.PrepTime == nil && u.CookTime == nil &&
		u.Servings == nil && u.ImageURI == nil
}

// Apply copies the set fields of u onto r.
func (u RecipeUpdate) Apply(r *Recipe) {
	if u.Title != nil {
		r.Title = *u.Title
	}
	if u.Instructions != nil {
		r.Instructions = *u.Instructions
	}
	if u.Ingredients != nil {
		r.Ingredients = *u.Ingredients
	}
	if u.Tags != nil {
		r.Tags = *u.Tags
	}
	if u.PrepTime != nil {
		r.PrepTime = *u.PrepTime
	}
	if u.CookTime != nil {
		r.CookTime = *u.CookTime
	}
	if u.Servings != nil {
		r.Servings = *u.Servings
	}
	if u.ImageURI != nil {
		r.ImageURI = *u.ImageURI
	}
}

// NormalizeTags lower-cases and trims labels and drops empty and repeated
// ones, keeping the first occurrence order. Tags on a recipe behave as a set.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// TagDelta returns the per-tag counter adjustment needed to move from the
// old tag set to the new one. Unchanged tags are absent from the result.
func TagDelta(oldTags, newTags []string) map[string]int {
	delta := make(map[string]int)
	for _, t := range NormalizeTags(oldTags) {
		delta[t]--
	}
	for _, t := range NormalizeTags(newTags) {
		delta[t]++
	}
	for t, d := range delta {
		if d == 0 {
			delete(delta, t)
		}
	}
	return delta
}
