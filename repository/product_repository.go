package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kriscao123/freshfood-backend/models"
)

var ErrProductNotFound = errors.New("product not found")

type ProductRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	List(ctx context.Context, category string, page, limit int) ([]models.Product, int64, error)
}

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{collection: db.Collection("products")}
}

func (r *mongoProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	filter := bson.M{"_id": id, "deleted_at": bson.M{"$exists": false}}

	var product models.Product
	if err := r.collection.FindOne(ctx, filter).Decode(&product); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

func (r *mongoProductRepository) List(ctx context.Context, category string, page, limit int) ([]models.Product, int64, error) {
	filter := bson.M{"deleted_at": bson.M{"$exists": false}}
	if category != "" {
		filter["category"] = category
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, total, nil
}
