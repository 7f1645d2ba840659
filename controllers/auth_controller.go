package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kriscao123/freshfood-backend/models"
)

// AuthAPI is the OTP-based registration and password login flow.
type AuthAPI interface {
	RequestOTP(ctx context.Context, identifier, purpose string) (string, error)
	VerifyOTP(ctx context.Context, identifier, code string) (string, error)
	Register(ctx context.Context, otpToken, fullName, password string) (*models.User, error)
	Login(ctx context.Context, identifier, password string) (string, *models.User, error)
}

type AuthController struct {
	auth AuthAPI
}

func NewAuthController(auth AuthAPI) *AuthController {
	return &AuthController{auth: auth}
}

type requestOTPRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Purpose    string `json:"purpose" binding:"required,oneof=register login"`
}

type verifyOTPRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Code       string `json:"code" binding:"required"`
}

type registerRequest struct {
	OTPToken string `json:"otpToken" binding:"required"`
	FullName string `json:"fullName" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// RequestOTP sends a verification code to the given email or phone number.
func (ac *AuthController) RequestOTP(c *gin.Context) {
	var req requestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	channel, err := ac.auth.RequestOTP(c, req.Identifier, req.Purpose)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "otp sent", "channel": channel})
}

// VerifyOTP exchanges a correct code for the short-lived verification token.
func (ac *AuthController) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	token, err := ac.auth.VerifyOTP(c, req.Identifier, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"otpToken": token})
}

// Register creates the account bound to a verified OTP token.
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	user, err := ac.auth.Register(c, req.OTPToken, req.FullName, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	user.PasswordHash = ""
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login exchanges credentials for a session token.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	token, user, err := ac.auth.Login(c, req.Identifier, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	user.PasswordHash = ""
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
