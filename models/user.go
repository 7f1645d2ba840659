package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	FullName     string             `bson:"full_name,omitempty" json:"fullName,omitempty"`
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`
	PhoneNumber  string             `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	Role         string             `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}
