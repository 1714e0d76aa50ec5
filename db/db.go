package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	RecipeCollection  *mongo.Collection
	ReviewsCollection *mongo.Collection
	SavesCollection   *mongo.Collection
	TagsCollection    *mongo.Collection
)

// Connect dials MongoDB, pings it and assigns the collection handles.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(database)
	RecipeCollection = db.Collection("recipes")
	ReviewsCollection = db.Collection("reviews")
	SavesCollection = db.Collection("saves")
	TagsCollection = db.Collection("tags")
	return client, nil
}

// CreateIndexes backs the composed recipe queries and the per-recipe lookups
// on reviews and saves. Their composite _id already makes both unique per user.
func CreateIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := map[*mongo.Collection][]mongo.IndexModel{
		RecipeCollection: {
			{Keys: bson.D{{Key: "authorId", Value: 1}}},
			{Keys: bson.D{{Key: "tags", Value: 1}}},
			{Keys: bson.D{{Key: "averageRating", Value: -1}, {Key: "title", Value: 1}}},
			{Keys: bson.D{{Key: "saves", Value: -1}, {Key: "title", Value: 1}}},
			{Keys: bson.D{{Key: "title", Value: 1}}},
		},
		ReviewsCollection: {
			{Keys: bson.D{{Key: "recipeId", Value: 1}}},
		},
		SavesCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "recipeId", Value: 1}}},
		},
		TagsCollection: {
			{Keys: bson.D{{Key: "count", Value: -1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}
