package services

import (
	"context"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kriscao123/freshfood-backend/kafka"
	"github.com/kriscao123/freshfood-backend/models"
	"github.com/kriscao123/freshfood-backend/repository"
)

type CheckoutRequest struct {
	DeliveryAddress models.ShippingAddress `json:"deliveryAddress" binding:"required"`
	PaymentMethod   string                 `json:"paymentMethod" binding:"required"`
}

// OrderService creates orders from checked-out carts and serves read-only
// order projections.
type OrderService struct {
	orders       repository.OrderRepository
	carts        *CartService
	interactions repository.InteractionRepository
	producer     kafka.ProducerAPI
}

func NewOrderService(orders repository.OrderRepository, carts *CartService, interactions repository.InteractionRepository, producer kafka.ProducerAPI) *OrderService {
	return &OrderService{
		orders:       orders,
		carts:        carts,
		interactions: interactions,
		producer:     producer,
	}
}

// Checkout turns the user's active cart into a PENDING order. The cart is
// transitioned first: its conditional status flip is the guard that keeps a
// double checkout from ever creating two orders. The order total is fixed
// here, recomputed from the line items, and never recomputed again.
func (s *OrderService) Checkout(ctx context.Context, userID primitive.ObjectID, req CheckoutRequest) (*models.Order, error) {
	cart, err := s.carts.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrCartEmpty
	}

	total, err := CartTotal(cart.Items)
	if err != nil {
		return nil, err
	}

	if _, err := s.carts.Checkout(ctx, cart.ID); err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}

	order := &models.Order{
		CustomerID:    userID,
		OrderItems:    items,
		OrderStatus:   models.OrderStatusPending,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: models.PaymentStatusPending,
		ShipAddress:   req.DeliveryAddress,
		TotalAmount:   total,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, err
	}

	s.afterCheckout(order)
	return order, nil
}

// GetStatus returns the read-only status projection of an order.
func (s *OrderService) GetStatus(ctx context.Context, orderID primitive.ObjectID) (*models.OrderStatusView, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &models.OrderStatusView{
		OrderID:       order.ID.Hex(),
		OrderStatus:   order.OrderStatus,
		PaymentStatus: order.PaymentStatus,
		TotalAmount:   order.TotalAmount,
	}, nil
}

// GetOrder returns an order owned by the given customer.
func (s *OrderService) GetOrder(ctx context.Context, orderID, customerID primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

// ListByCustomer returns the customer's orders, newest first.
func (s *OrderService) ListByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]models.Order, error) {
	return s.orders.FindByCustomer(ctx, customerID)
}

// afterCheckout publishes order.created and records purchase interactions.
// Best-effort: the checkout response never waits on either.
func (s *OrderService) afterCheckout(order *models.Order) {
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if s.producer != nil {
			payload, err := json.Marshal(models.OrderEvent{
				Event:      models.OrderEventCreated,
				OrderID:    order.ID.Hex(),
				CustomerID: order.CustomerID.Hex(),
				Amount:     order.TotalAmount,
				Timestamp:  time.Now(),
			})
			if err == nil {
				if err := s.producer.Publish(bgCtx, order.ID.Hex(), payload); err != nil {
					zap.L().Warn("Failed to publish order.created event",
						zap.String("order_id", order.ID.Hex()), zap.Error(err))
				}
			}
		}

		if s.interactions == nil {
			return
		}
		for _, item := range order.OrderItems {
			err := s.interactions.Insert(bgCtx, &models.Interaction{
				UserID:    order.CustomerID,
				ProductID: item.ProductID,
				Type:      models.InteractionPurchase,
				Value:     item.Quantity,
			})
			if err != nil {
				zap.L().Warn("Failed to record purchase interaction",
					zap.String("order_id", order.ID.Hex()), zap.Error(err))
			}
		}
	}()
}
