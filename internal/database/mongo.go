package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/citypulse/server/internal/config"
)

const FavoritesCollection = "FavoritesItems"

// FavoritesDocument is one user's favorites record. The document id is the
// user id.
type FavoritesDocument struct {
	UserID    string    `bson:"_id"`
	Favorites []string  `bson:"favorites"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type MongoDB struct {
	client    *mongo.Client
	database  *mongo.Database
	favorites *mongo.Collection
}

func NewMongoDB(cfg *config.MongoDBConfig) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.URI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)

	mongodb := &MongoDB{
		client:    client,
		database:  db,
		favorites: db.Collection(FavoritesCollection),
	}

	if err := mongodb.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return mongodb, nil
}

func (m *MongoDB) createIndexes(ctx context.Context) error {
	favoritesIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "updatedAt", Value: -1}},
		},
	}

	if _, err := m.favorites.Indexes().CreateMany(ctx, favoritesIndexes); err != nil {
		return fmt.Errorf("failed to create favorites indexes: %w", err)
	}

	return nil
}

// LoadFavorites returns the stored ids, or an empty list when the user has
// no record.
func (m *MongoDB) LoadFavorites(ctx context.Context, userID string) ([]string, error) {
	var doc FavoritesDocument
	err := m.favorites.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}
	if doc.Favorites == nil {
		return []string{}, nil
	}
	return doc.Favorites, nil
}

func (m *MongoDB) AddFavorite(ctx context.Context, userID, eventID string) error {
	update := bson.M{
		"$addToSet": bson.M{"favorites": eventID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	_, err := m.favorites.UpdateByID(ctx, userID, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (m *MongoDB) RemoveFavorite(ctx context.Context, userID, eventID string) error {
	update := bson.M{
		"$pull": bson.M{"favorites": eventID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	if _, err := m.favorites.UpdateByID(ctx, userID, update); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

func (m *MongoDB) ClearFavorites(ctx context.Context, userID string) error {
	if _, err := m.favorites.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return fmt.Errorf("failed to clear favorites: %w", err)
	}
	return nil
}

// SaveFavorites overwrites the stored list with ids.
func (m *MongoDB) SaveFavorites(ctx context.Context, userID string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	update := bson.M{"$set": bson.M{"favorites": ids, "updatedAt": time.Now().UTC()}}
	_, err := m.favorites.UpdateByID(ctx, userID, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save favorites: %w", err)
	}
	return nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoDB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.client.Ping(ctx, readpref.Primary())
}
