package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kriscao123/freshfood-backend/models"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartConflict is returned when a version-guarded update matched no
	// document: either a concurrent writer got there first or the cart is
	// no longer active.
	ErrCartConflict = errors.New("cart was modified concurrently or is not active")
)

// CartRepository defines the interface for cart data operations.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	FindActiveByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Cart, error)
	Insert(ctx context.Context, cart *models.Cart) error
	// UpdateActive persists items, total and status of an active cart as a
	// single conditional write guarded by the version the cart was read at.
	UpdateActive(ctx context.Context, cart *models.Cart) error
}

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{collection: db.Collection("carts")}
}

func (r *mongoCartRepository) FindActiveByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	filter := bson.M{"user_id": userID, "status": models.CartStatusActive}

	var cart models.Cart
	if err := r.collection.FindOne(ctx, filter).Decode(&cart); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get active cart: %w", err)
	}
	return &cart, nil
}

func (r *mongoCartRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&cart); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &cart, nil
}

func (r *mongoCartRepository) Insert(ctx context.Context, cart *models.Cart) error {
	now := time.Now()
	cart.CreatedAt = now
	cart.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, cart)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// The partial unique index on (user_id, status=active) tripped:
			// another request created the active cart first.
			return ErrCartConflict
		}
		return fmt.Errorf("failed to insert cart: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		cart.ID = oid
	}
	return nil
}

func (r *mongoCartRepository) UpdateActive(ctx context.Context, cart *models.Cart) error {
	now := time.Now()

	filter := bson.M{
		"_id":     cart.ID,
		"status":  models.CartStatusActive,
		"version": cart.Version,
	}
	update := bson.M{
		"$set": bson.M{
			"items":       cart.Items,
			"total_price": cart.TotalPrice,
			"status":      cart.Status,
			"updated_at":  now,
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCartConflict
	}

	cart.Version++
	cart.UpdatedAt = now
	return nil
}

// EnsureCartIndexes creates the partial unique index enforcing at most one
// active cart per user.
func EnsureCartIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("carts").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"status": models.CartStatusActive}),
	})
	if err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}
	return nil
}
