package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kriscao123/freshfood-backend/models"
)

type InteractionRepository interface {
	Insert(ctx context.Context, interaction *models.Interaction) error
}

type mongoInteractionRepository struct {
	collection *mongo.Collection
}

func NewInteractionRepository(db *mongo.Database) InteractionRepository {
	return &mongoInteractionRepository{collection: db.Collection("interactions")}
}

func (r *mongoInteractionRepository) Insert(ctx context.Context, interaction *models.Interaction) error {
	interaction.CreatedAt = time.Now()
	if _, err := r.collection.InsertOne(ctx, interaction); err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}
	return nil
}
