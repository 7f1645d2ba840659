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
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicatePaymentCode is returned when the unique index on
	// sepay.payment_code rejects a write. Callers may retry generation.
	ErrDuplicatePaymentCode = errors.New("payment code already in use")
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Insert(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByPaymentCode(ctx context.Context, code string) (*models.Order, error)
	FindByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]models.Order, error)
	// SetPaymentInfo persists the generated payment code and QR URL.
	SetPaymentInfo(ctx context.Context, id primitive.ObjectID, code, qrURL string) error
	// MarkPaid flips the order to Paid/CONFIRMED if and only if it is still
	// Pending. Returns false without error when the order was already paid,
	// so webhook replays converge on the same terminal state.
	MarkPaid(ctx context.Context, id primitive.ObjectID, paidAt time.Time, referenceCode string, raw bson.M) (bool, error)
}

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{collection: db.Collection("orders")}
}

func (r *mongoOrderRepository) Insert(ctx context.Context, order *models.Order) error {
	if order.OrderDate.IsZero() {
		order.OrderDate = time.Now()
	}

	result, err := r.collection.InsertOne(ctx, order)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		order.ID = oid
	}
	return nil
}

func (r *mongoOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (r *mongoOrderRepository) FindByPaymentCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	if err := r.collection.FindOne(ctx, bson.M{"sepay.payment_code": code}).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order by payment code: %w", err)
	}
	return &order, nil
}

func (r *mongoOrderRepository) FindByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]models.Order, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "order_date", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"customer_id": customerID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

func (r *mongoOrderRepository) SetPaymentInfo(ctx context.Context, id primitive.ObjectID, code, qrURL string) error {
	update := bson.M{
		"$set": bson.M{
			"sepay.payment_code": code,
			"sepay.qr_url":       qrURL,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicatePaymentCode
		}
		return fmt.Errorf("failed to set payment info: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *mongoOrderRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, paidAt time.Time, referenceCode string, raw bson.M) (bool, error) {
	filter := bson.M{
		"_id":            id,
		"payment_status": models.PaymentStatusPending,
	}
	update := bson.M{
		"$set": bson.M{
			"payment_status":       models.PaymentStatusPaid,
			"order_status":         models.OrderStatusConfirmed,
			"sepay.paid_at":        paidAt,
			"sepay.reference_code": referenceCode,
			"sepay.raw_webhook":    raw,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

// EnsureOrderIndexes creates the unique sparse index backing payment-code
// reconciliation lookups. Uniqueness is enforced here, not assumed from the
// 6-character id suffix.
func EnsureOrderIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sepay.payment_code", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "order_date", Value: -1}},
		},
	}

	if _, err := db.Collection("orders").Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}
