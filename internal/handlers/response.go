package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"marketplace/internal/auth"
	"marketplace/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors to a status code and a message the
// client can show as is
func respondError(c *gin.Context, err error) {
	var (
		below        *services.BelowThresholdError
		insufficient *services.InsufficientBalanceError
		invalid      *services.ValidationError
	)

	switch {
	case errors.As(err, &below):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   below.Error(),
			"code":    "BELOW_THRESHOLD",
			"amount":  below.Amount.StringFixed(2),
			"minimum": below.Minimum.StringFixed(2),
		})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     insufficient.Error(),
			"code":      "INSUFFICIENT_BALANCE",
			"amount":    insufficient.Amount.StringFixed(2),
			"available": insufficient.Available.StringFixed(2),
		})
	case errors.As(err, &invalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      "Invalid bank details",
			"code":       "VALIDATION_FAILURE",
			"violations": invalid.Violations,
		})
	case errors.Is(err, services.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_AMOUNT"})
	case errors.Is(err, services.ErrInvalidOtp):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_OTP"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "code": "NOT_FOUND"})
	case errors.Is(err, services.ErrInvalidRole):
		c.JSON(http.StatusForbidden, gin.H{"error": "Only affiliates can use this endpoint", "code": "INVALID_ROLE"})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "INVALID_TRANSITION"})
	case errors.Is(err, services.ErrTooManyOtpRequests):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error(), "code": "TOO_MANY_REQUESTS"})
	case errors.Is(err, services.ErrGenerationExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not generate a referral code, please retry", "code": "GENERATION_EXHAUSTED"})
	default:
		log.Printf("[http] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func currentUserID(c *gin.Context) (uint, bool) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID, true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func parsePage(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}
