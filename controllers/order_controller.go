package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kriscao123/freshfood-backend/middleware"
	"github.com/kriscao123/freshfood-backend/models"
)

// OrderQueryAPI is the read side of orders for the authenticated customer.
type OrderQueryAPI interface {
	GetOrder(ctx context.Context, orderID, customerID primitive.ObjectID) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]models.Order, error)
}

type OrderController struct {
	orders OrderQueryAPI
}

func NewOrderController(orders OrderQueryAPI) *OrderController {
	return &OrderController{orders: orders}
}

// ListOrders returns the caller's orders, newest first.
func (oc *OrderController) ListOrders(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	orders, err := oc.orders.ListByCustomer(c, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrder returns one of the caller's orders by id.
func (oc *OrderController) GetOrder(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	orderID, err := primitive.ObjectIDFromHex(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid orderId"})
		return
	}

	order, err := oc.orders.GetOrder(c, orderID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
