// mongodb.go - MongoDB-backed category pattern store

package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bosocmputer/expense_scan_gemini/configs"
	"github.com/bosocmputer/expense_scan_gemini/internal/pattern"
)

var mongoClient *mongo.Client
var mongoDB *mongo.Database

const patternCollection = "category_patterns"

// InitMongoDB initializes MongoDB connection
func InitMongoDB() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	connectionURI := configs.MONGO_URI

	clientOptions := options.Client().ApplyURI(connectionURI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	mongoClient = client
	mongoDB = client.Database(configs.MONGO_DB_NAME)

	log.Println("✅ Connected to MongoDB successfully!")
	return nil
}

// GetMongoDB returns the MongoDB database instance
func GetMongoDB() *mongo.Database {
	return mongoDB
}

// CloseMongoDB closes MongoDB connection
func CloseMongoDB() {
	if mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
		log.Println("MongoDB connection closed")
	}
}

// PatternDocument wraps one user's encoded pattern model. The model body
// is stored as the canonical JSON encoding so the document round-trips
// bit-for-bit through the same codec the rest of the system uses.
type PatternDocument struct {
	UserID    string    `bson:"user_id" json:"user_id"`
	Model     []byte    `bson:"model" json:"model"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// LoadPatternModel retrieves a user's pattern model. A user with no
// stored document gets a fresh empty model, not an error.
func LoadPatternModel(userID string) (*pattern.PatternModel, error) {
	if mongoDB == nil {
		return pattern.NewModel(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	collection := mongoDB.Collection(patternCollection)
	filter := bson.M{"user_id": userID}

	var doc PatternDocument
	err := collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return pattern.NewModel(), nil
		}
		return nil, fmt.Errorf("failed to query pattern model: %w", err)
	}

	model, err := pattern.DecodeModel(doc.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to decode pattern model for user %s: %w", userID, err)
	}
	return model, nil
}

// SavePatternModel upserts a user's pattern model
func SavePatternModel(userID string, model *pattern.PatternModel) error {
	if mongoDB == nil {
		return nil
	}

	encoded, err := pattern.EncodeModel(model)
	if err != nil {
		return fmt.Errorf("failed to encode pattern model: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	collection := mongoDB.Collection(patternCollection)
	filter := bson.M{"user_id": userID}
	update := bson.M{"$set": PatternDocument{
		UserID:    userID,
		Model:     encoded,
		UpdatedAt: time.Now().UTC(),
	}}

	_, err = collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save pattern model: %w", err)
	}
	return nil
}
