package models

import "time"

// Review is one user's rating of one recipe. ID is the composite key so a
// second submission by the same user overwrites the first.
type Review struct {
	ID        string    `bson:"_id"               json:"id"`
	RecipeID  string    `bson:"recipeId"          json:"recipeId"`
	UserID    string    `bson:"userId"            json:"userId"`
	Rating    float64   `bson:"rating"            json:"rating"`
	Comment   string    `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time `bson:"createdAt"         json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"         json:"updatedAt"`
}

type ReviewInput struct {
	Rating  float64 `json:"rating"  validate:"required,min=1,max=5"`
	Comment string  `json:"comment" validate:"max=2000"`
}

// Save is the membership record for the single user/recipe relation the
// apps call "save", "like" or "favorite".
type Save struct {
	ID        string    `bson:"_id"       json:"id"`
	RecipeID  string    `bson:"recipeId"  json:"recipeId"`
	UserID    string    `bson:"userId"    json:"userId"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Tag is the reference-counted tag entity; ID is the label itself.
type Tag struct {
	ID    string `bson:"_id"   json:"tag"`
	Count int64  `bson:"count" json:"count"`
}

type TagCount struct {
	Tag   string `bson:"_id"   json:"tag"`
	Count int64  `bson:"count" json:"count"`
}

// CompositeID builds the identity of a per-user record on a recipe.
func CompositeID(recipeID, userID string) string {
	return recipeID + "_" + userID
}
