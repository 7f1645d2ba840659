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

var ErrOTPNotFound = errors.New("otp not found")

type OTPRepository interface {
	Insert(ctx context.Context, otp *models.AuthOTP) error
	// FindLatestActive returns the most recent active code for the given
	// email or phone number (exactly one of the two is set).
	FindLatestActive(ctx context.Context, email, phone string) (*models.AuthOTP, error)
	IncrementAttempts(ctx context.Context, id primitive.ObjectID) error
	MarkUsed(ctx context.Context, id primitive.ObjectID) error
}

type mongoOTPRepository struct {
	collection *mongo.Collection
}

func NewOTPRepository(db *mongo.Database) OTPRepository {
	return &mongoOTPRepository{collection: db.Collection("auth_otps")}
}

func (r *mongoOTPRepository) Insert(ctx context.Context, otp *models.AuthOTP) error {
	otp.CreatedAt = time.Now()
	otp.Status = models.OTPStatusActive

	result, err := r.collection.InsertOne(ctx, otp)
	if err != nil {
		return fmt.Errorf("failed to insert otp: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		otp.ID = oid
	}
	return nil
}

func (r *mongoOTPRepository) FindLatestActive(ctx context.Context, email, phone string) (*models.AuthOTP, error) {
	filter := bson.M{"status": models.OTPStatusActive}
	if email != "" {
		filter["email"] = email
	} else {
		filter["phone_number"] = phone
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var otp models.AuthOTP
	if err := r.collection.FindOne(ctx, filter, opts).Decode(&otp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOTPNotFound
		}
		return nil, fmt.Errorf("failed to get otp: %w", err)
	}
	return &otp, nil
}

func (r *mongoOTPRepository) IncrementAttempts(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"attempts": 1}})
	if err != nil {
		return fmt.Errorf("failed to increment otp attempts: %w", err)
	}
	return nil
}

func (r *mongoOTPRepository) MarkUsed(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"status": models.OTPStatusUsed}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to mark otp used: %w", err)
	}
	return nil
}

// EnsureOTPIndexes creates the TTL index expiring stale codes.
func EnsureOTPIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("auth_otps").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("failed to create otp indexes: %w", err)
	}
	return nil
}
