package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kriscao123/freshfood-backend/models"
)

// ProductAPI serves the catalog read endpoints.
type ProductAPI interface {
	GetProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	ListProducts(ctx context.Context, category string, page, limit int) ([]models.Product, int64, error)
}

type ProductController struct {
	products ProductAPI
}

func NewProductController(products ProductAPI) *ProductController {
	return &ProductController{products: products}
}

// ListProducts returns a page of the catalog, optionally filtered by category.
func (pc *ProductController) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	products, total, err := pc.products.ListProducts(c, c.Query("category"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

// GetProduct returns a single product by id.
func (pc *ProductController) GetProduct(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	product, err := pc.products.GetProduct(c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}
