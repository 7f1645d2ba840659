package models

import "time"

// SepayWebhookEvent is the inbound payload SePay posts on a bank transfer.
// Content and Description carry the free-text transfer memo the payment
// code is extracted from.
type SepayWebhookEvent struct {
	ID              int64  `json:"id"`
	Gateway         string `json:"gateway"`
	TransactionDate string `json:"transactionDate"`
	AccountNumber   string `json:"accountNumber"`
	SubAccount      string `json:"subAccount"`
	TransferType    string `json:"transferType"`
	TransferAmount  int64  `json:"transferAmount"`
	Accumulated     int64  `json:"accumulated"`
	Content         string `json:"content"`
	ReferenceCode   string `json:"referenceCode"`
	Description     string `json:"description"`
}

// Memo joins the free-text fields the payment code may appear in.
func (e SepayWebhookEvent) Memo() string {
	if e.Content == "" {
		return e.Description
	}
	if e.Description == "" {
		return e.Content
	}
	return e.Content + " " + e.Description
}

const (
	OrderEventCreated = "order.created"
	OrderEventPaid    = "order.paid"
)

// OrderEvent is the lifecycle event published to Kafka, keyed by order id.
type OrderEvent struct {
	Event      string    `json:"event"`
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	Amount     int64     `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}
