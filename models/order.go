package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusShipping  = "SHIPPING"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	PaymentStatusPending = "Pending"
	PaymentStatusPaid    = "Paid"
	PaymentStatusFailed  = "Failed"
)

// OrderItem is an immutable order line fixed at checkout.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"productId"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	UnitPrice int64              `bson:"unit_price" json:"unitPrice"`
}

// ShippingAddress is the delivery address snapshot taken at checkout.
type ShippingAddress struct {
	FullName string `bson:"full_name" json:"fullName"`
	Phone    string `bson:"phone" json:"phone"`
	Street   string `bson:"street" json:"street"`
	Ward     string `bson:"ward,omitempty" json:"ward,omitempty"`
	District string `bson:"district,omitempty" json:"district,omitempty"`
	City     string `bson:"city" json:"city"`
}

// SepayInfo is the payment-reconciliation sub-record of an order.
// PaymentCode, once set, is immutable and globally unique; it is the
// lookup key the webhook reconciliation matches against.
type SepayInfo struct {
	PaymentCode   string     `bson:"payment_code,omitempty" json:"paymentCode,omitempty"`
	QRUrl         string     `bson:"qr_url,omitempty" json:"qrUrl,omitempty"`
	PaidAt        *time.Time `bson:"paid_at,omitempty" json:"paidAt,omitempty"`
	ReferenceCode string     `bson:"reference_code,omitempty" json:"referenceCode,omitempty"`
	RawWebhook    bson.M     `bson:"raw_webhook,omitempty" json:"-"`
}

// Order is the immutable-at-creation record of a completed checkout.
// TotalAmount is fixed when the order is created and never recomputed.
type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CustomerID    primitive.ObjectID `bson:"customer_id" json:"customerId"`
	OrderDate     time.Time          `bson:"order_date" json:"orderDate"`
	OrderItems    []OrderItem        `bson:"order_items" json:"orderItems"`
	OrderStatus   string             `bson:"order_status" json:"orderStatus"`
	PaymentMethod string             `bson:"payment_method" json:"paymentMethod"`
	PaymentStatus string             `bson:"payment_status" json:"paymentStatus"`
	ShipAddress   ShippingAddress    `bson:"ship_address" json:"shipAddress"`
	TotalAmount   int64              `bson:"total_amount" json:"totalAmount"`
	Sepay         SepayInfo          `bson:"sepay,omitempty" json:"sepay,omitempty"`
}

// OrderStatusView is the read-only projection served by the status endpoint.
type OrderStatusView struct {
	OrderID       string `json:"orderId"`
	OrderStatus   string `json:"orderStatus"`
	PaymentStatus string `json:"paymentStatus"`
	TotalAmount   int64  `json:"totalAmount"`
}
