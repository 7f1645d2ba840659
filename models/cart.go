package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CartStatusActive     = "active"
	CartStatusCheckedOut = "checked_out"
	CartStatusAbandoned  = "abandoned"
)

// CartItem is a single product line inside a cart. Price is the unit price
// snapshot captured when the line was first added; later catalog price
// changes never alter it.
type CartItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"productId"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Price     int64              `bson:"price" json:"price"`
}

// Cart is the per-user mutable collection of pending purchase lines.
// TotalPrice is always recomputed from Items as a whole, never maintained
// incrementally. Version guards concurrent writers: every persisted update
// is conditional on the version it was read at.
type Cart struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"userId"`
	Items      []CartItem         `bson:"items" json:"items"`
	TotalPrice int64              `bson:"total_price" json:"totalPrice"`
	Status     string             `bson:"status" json:"status"`
	Version    int64              `bson:"version" json:"-"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updatedAt"`
}

// FindItem returns the index of the line holding productID, or -1.
func (c *Cart) FindItem(productID primitive.ObjectID) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}
