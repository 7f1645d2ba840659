package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	InteractionAddToCart = "add_to_cart"
	InteractionPurchase  = "purchase"
	InteractionView      = "view"
)

// Interaction is a behavioral signal consumed by the recommender offline.
// Writes are best-effort; a failed insert never fails the user action.
type Interaction struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	ProductID primitive.ObjectID `bson:"product_id" json:"productId"`
	Type      string             `bson:"type" json:"type"`
	Value     int                `bson:"value" json:"value"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}
