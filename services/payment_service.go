package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kriscao123/freshfood-backend/kafka"
	"github.com/kriscao123/freshfood-backend/models"
	"github.com/kriscao123/freshfood-backend/repository"
	"github.com/kriscao123/freshfood-backend/sender"
)

// Reconciliation outcomes. Business-logic non-matches are always reported
// as Ignored with a reason, never as errors: the payment provider expects
// an acknowledgement no matter what its memo text contained.
const (
	ReconcileUpdated     = "updated"
	ReconcileAlreadyPaid = "already_paid"
	ReconcileIgnored     = "ignored"
)

const (
	ReasonNoCodeFound    = "NO CODE FOUND"
	ReasonOrderNotFound  = "ORDER NOT FOUND"
	ReasonAmountMismatch = "AMOUNT MISMATCH"
)

type ReconciliationResult struct {
	Outcome string
	Reason  string
	OrderID string
}

// Updated reports whether the webhook confirmed a payment, counting the
// replay of an already-paid order as success.
func (r ReconciliationResult) Updated() bool {
	return r.Outcome == ReconcileUpdated || r.Outcome == ReconcileAlreadyPaid
}

// QRResult is the presentable payment request for an order.
type QRResult struct {
	OrderID     string `json:"orderId"`
	PaymentCode string `json:"paymentCode"`
	Amount      int64  `json:"amount"`
	QRUrl       string `json:"qrUrl"`
}

// legacy memo prefix from before the SePay integration
var legacyCodeRe = regexp.MustCompile(`(?i)NHFOOD-([A-Z0-9]+)`)

// PaymentService generates SePay QR payment requests and reconciles
// inbound transfer webhooks against pending orders.
type PaymentService struct {
	orders   repository.OrderRepository
	users    repository.UserRepository
	producer kafka.ProducerAPI
	emails   sender.EmailSender

	account string
	bank    string
	prefix  string
	codeRe  *regexp.Regexp
}

func NewPaymentService(
	orders repository.OrderRepository,
	users repository.UserRepository,
	producer kafka.ProducerAPI,
	emails sender.EmailSender,
	account, bank, prefix string,
) *PaymentService {
	return &PaymentService{
		orders:   orders,
		users:    users,
		producer: producer,
		emails:   emails,
		account:  account,
		bank:     bank,
		prefix:   prefix,
		codeRe:   regexp.MustCompile(`(?i)` + regexp.QuoteMeta(prefix) + `([A-Z0-9]{4,})`),
	}
}

// GenerateQR derives the payment code for an order and persists it together
// with the QR image URL. Calling it again for an order that already carries
// a code returns the stored one.
func (s *PaymentService) GenerateQR(ctx context.Context, orderID primitive.ObjectID) (*QRResult, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Sepay.PaymentCode != "" {
		return &QRResult{
			OrderID:     order.ID.Hex(),
			PaymentCode: order.Sepay.PaymentCode,
			Amount:      order.TotalAmount,
			QRUrl:       order.Sepay.QRUrl,
		}, nil
	}

	if order.TotalAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	hex := order.ID.Hex()
	shortID := strings.ToUpper(hex[len(hex)-6:])
	paymentCode := s.prefix + shortID

	qrURL := fmt.Sprintf("https://qr.sepay.vn/img?acc=%s&bank=%s&amount=%d&des=%s",
		url.QueryEscape(s.account),
		url.QueryEscape(s.bank),
		order.TotalAmount,
		url.QueryEscape(paymentCode),
	)

	if err := s.orders.SetPaymentInfo(ctx, order.ID, paymentCode, qrURL); err != nil {
		return nil, err
	}

	return &QRResult{
		OrderID:     order.ID.Hex(),
		PaymentCode: paymentCode,
		Amount:      order.TotalAmount,
		QRUrl:       qrURL,
	}, nil
}

// ExtractPaymentCode scans a bank-transfer memo for a payment code token.
// It returns the uppercased token without the scheme prefix, or "" when
// nothing matches. Memo fields are user-editable, so this is strictly
// best-effort; ambiguity never propagates past this function.
func (s *PaymentService) ExtractPaymentCode(text string) string {
	if m := s.codeRe.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := legacyCodeRe.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

// Reconcile matches an inbound transfer event to a pending order and flips
// its payment state. Replaying the same event against an already-paid order
// is a success no-op. Only persistence faults return an error.
func (s *PaymentService) Reconcile(ctx context.Context, event models.SepayWebhookEvent) (ReconciliationResult, error) {
	code := s.ExtractPaymentCode(event.Memo())
	if code == "" {
		return ReconciliationResult{Outcome: ReconcileIgnored, Reason: ReasonNoCodeFound}, nil
	}

	order, err := s.orders.FindByPaymentCode(ctx, s.prefix+code)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return ReconciliationResult{Outcome: ReconcileIgnored, Reason: ReasonOrderNotFound}, nil
		}
		return ReconciliationResult{}, err
	}

	if event.TransferAmount != 0 && event.TransferAmount != order.TotalAmount {
		zap.L().Warn("Webhook amount mismatch",
			zap.String("order_id", order.ID.Hex()),
			zap.Int64("order_total", order.TotalAmount),
			zap.Int64("received", event.TransferAmount))
		return ReconciliationResult{
			Outcome: ReconcileIgnored,
			Reason:  ReasonAmountMismatch,
			OrderID: order.ID.Hex(),
		}, nil
	}

	updated, err := s.orders.MarkPaid(ctx, order.ID, time.Now(), event.ReferenceCode, rawEvent(event))
	if err != nil {
		return ReconciliationResult{}, err
	}
	if !updated {
		// Duplicate delivery; the order already reached its terminal state.
		return ReconciliationResult{Outcome: ReconcileAlreadyPaid, OrderID: order.ID.Hex()}, nil
	}

	s.notifyPaid(order)
	return ReconciliationResult{Outcome: ReconcileUpdated, OrderID: order.ID.Hex()}, nil
}

// notifyPaid publishes the order.paid event and emails the customer.
// Both are fire-and-forget: the webhook acknowledgement never waits on them.
func (s *PaymentService) notifyPaid(order *models.Order) {
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if s.producer != nil {
			payload, err := json.Marshal(models.OrderEvent{
				Event:      models.OrderEventPaid,
				OrderID:    order.ID.Hex(),
				CustomerID: order.CustomerID.Hex(),
				Amount:     order.TotalAmount,
				Timestamp:  time.Now(),
			})
			if err == nil {
				if err := s.producer.Publish(bgCtx, order.ID.Hex(), payload); err != nil {
					zap.L().Warn("Failed to publish order.paid event",
						zap.String("order_id", order.ID.Hex()), zap.Error(err))
				}
			}
		}

		if s.emails == nil || s.users == nil {
			return
		}
		user, err := s.users.FindByID(bgCtx, order.CustomerID)
		if err != nil || user.Email == "" {
			return
		}
		subject := "FreshFood - Thanh toán thành công"
		body := fmt.Sprintf("<p>Đơn hàng <b>%s</b> đã được thanh toán (%d VND).</p>",
			order.ID.Hex(), order.TotalAmount)
		if _, err := s.emails.SendEmail(bgCtx, user.Email, subject, body); err != nil {
			zap.L().Warn("Failed to send payment confirmation email",
				zap.String("order_id", order.ID.Hex()), zap.Error(err))
		}
	}()
}

func rawEvent(event models.SepayWebhookEvent) bson.M {
	return bson.M{
		"id":               event.ID,
		"gateway":          event.Gateway,
		"transaction_date": event.TransactionDate,
		"account_number":   event.AccountNumber,
		"sub_account":      event.SubAccount,
		"transfer_type":    event.TransferType,
		"transfer_amount":  event.TransferAmount,
		"accumulated":      event.Accumulated,
		"content":          event.Content,
		"reference_code":   event.ReferenceCode,
		"description":      event.Description,
	}
}
