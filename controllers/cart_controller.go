package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kriscao123/freshfood-backend/middleware"
	"github.com/kriscao123/freshfood-backend/models"
	"github.com/kriscao123/freshfood-backend/services"
)

// CartAPI is the slice of the cart service the controller depends on.
type CartAPI interface {
	GetActiveCart(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	AddItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int, unitPrice int64) (*models.Cart, error)
	UpdateItem(ctx context.Context, cartID, productID primitive.ObjectID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, cartID, productID primitive.ObjectID) (*models.Cart, error)
}

// OrderCheckoutAPI performs the checkout of the caller's active cart.
type OrderCheckoutAPI interface {
	Checkout(ctx context.Context, userID primitive.ObjectID, req services.CheckoutRequest) (*models.Order, error)
}

type CartController struct {
	carts  CartAPI
	orders OrderCheckoutAPI
}

func NewCartController(carts CartAPI, orders OrderCheckoutAPI) *CartController {
	return &CartController{carts: carts, orders: orders}
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
	Price     int64  `json:"price"`
}

type updateItemRequest struct {
	CartID    string `json:"cartId"`
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type removeItemRequest struct {
	CartID    string `json:"cartId"`
	ProductID string `json:"productId" binding:"required"`
}

// GetCart returns the caller's active cart
func (cc *CartController) GetCart(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	cart, err := cc.carts.GetActiveCart(c, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// AddItem adds quantity units of a product to the caller's active cart,
// creating the cart if needed.
func (cc *CartController) AddItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid productId"})
		return
	}
	if req.Price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must not be negative"})
		return
	}

	cart, err := cc.carts.AddItem(c, userID, productID, req.Quantity, req.Price)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// UpdateItem sets a line's quantity to an absolute value.
func (cc *CartController) UpdateItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid productId"})
		return
	}

	cartID, err := cc.resolveCartID(c, userID, req.CartID)
	if err != nil {
		respondError(c, err)
		return
	}

	cart, err := cc.carts.UpdateItem(c, cartID, productID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// RemoveItem deletes a product line from the cart.
func (cc *CartController) RemoveItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req removeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid productId"})
		return
	}

	cartID, err := cc.resolveCartID(c, userID, req.CartID)
	if err != nil {
		respondError(c, err)
		return
	}

	cart, err := cc.carts.RemoveItem(c, cartID, productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// Checkout creates an order from the caller's active cart.
func (cc *CartController) Checkout(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req services.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	order, err := cc.orders.Checkout(c, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// resolveCartID pins the mutation to the caller's own active cart. A cartId
// supplied by the client is accepted only when it names that cart.
func (cc *CartController) resolveCartID(c *gin.Context, userID primitive.ObjectID, requested string) (primitive.ObjectID, error) {
	cart, err := cc.carts.GetActiveCart(c, userID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if requested != "" {
		id, err := primitive.ObjectIDFromHex(requested)
		if err != nil || id != cart.ID {
			return primitive.NilObjectID, services.ErrCartNotActive
		}
	}
	return cart.ID, nil
}
