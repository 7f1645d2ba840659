package routes

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/kriscao123/freshfood-backend/controllers"
	"github.com/kriscao123/freshfood-backend/middleware"
	"github.com/kriscao123/freshfood-backend/services"
)

// Controllers bundles every handler group the router mounts.
type Controllers struct {
	Auth     *controllers.AuthController
	Products *controllers.ProductController
	Cart     *controllers.CartController
	Orders   *controllers.OrderController
	Payments *controllers.PaymentController
}

// Register mounts all API routes. Cart and order routes require a session
// token; the OTP endpoints are rate limited because they trigger outbound
// email/SMS.
func Register(r *gin.Engine, c Controllers, tokens *services.TokenService) {
	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		otpLimited := middleware.RateLimitMiddleware(rate.Limit(1), 3)
		auth.POST("/request-otp", otpLimited, c.Auth.RequestOTP)
		auth.POST("/verify-otp", otpLimited, c.Auth.VerifyOTP)
		auth.POST("/register", c.Auth.Register)
		auth.POST("/login", c.Auth.Login)
	}

	products := api.Group("/products")
	{
		products.GET("", c.Products.ListProducts)
		products.GET("/:id", c.Products.GetProduct)
	}

	authed := api.Group("", middleware.AuthMiddleware(tokens))
	{
		cart := authed.Group("/cart")
		cart.GET("", c.Cart.GetCart)
		cart.PUT("/add", c.Cart.AddItem)
		cart.PUT("/update", c.Cart.UpdateItem)
		cart.DELETE("/remove", c.Cart.RemoveItem)
		cart.POST("/checkout", c.Cart.Checkout)

		orders := authed.Group("/orders")
		orders.GET("", c.Orders.ListOrders)
		orders.GET("/:orderId", c.Orders.GetOrder)
	}

	sepay := api.Group("/sepay")
	{
		sepay.POST("/generate-qr", c.Payments.GenerateQR)
		sepay.GET("/order-status/:orderId", c.Payments.OrderStatus)
		sepay.POST("/webhook", c.Payments.Webhook)
	}

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})
}
