package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OTPChannelEmail = "email"
	OTPChannelSMS   = "sms"
)

const (
	OTPStatusActive  = "active"
	OTPStatusUsed    = "used"
	OTPStatusExpired = "expired"
)

// AuthOTP is a one-time verification code delivered over email or SMS.
type AuthOTP struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email       string             `bson:"email,omitempty" json:"email,omitempty"`
	PhoneNumber string             `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`
	Channel     string             `bson:"channel" json:"channel"`
	Code        string             `bson:"code" json:"-"`
	ExpiresAt   time.Time          `bson:"expires_at" json:"expiresAt"`
	Attempts    int                `bson:"attempts" json:"attempts"`
	Status      string             `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
}
