package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kriscao123/freshfood-backend/repository"
	"github.com/kriscao123/freshfood-backend/services"
)

// respondError maps service and repository errors onto the HTTP taxonomy:
// validation 400, not-found 404, conflict 409, everything else 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidPrice),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidIdentifier),
		errors.Is(err, services.ErrInvalidOTP),
		errors.Is(err, services.ErrOTPExpired),
		errors.Is(err, services.ErrCartEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, services.ErrItemNotFound),
		errors.Is(err, services.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, services.ErrCartNotActive),
		errors.Is(err, repository.ErrCartConflict),
		errors.Is(err, repository.ErrDuplicatePaymentCode),
		errors.Is(err, services.ErrAccountExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrInvalidLogin):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})

	default:
		zap.L().Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
