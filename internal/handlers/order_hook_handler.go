package handlers

import (
	"net/http"

	"marketplace/internal/models"
	"marketplace/internal/services"

	"github.com/gin-gonic/gin"
)

// OrderHookHandler receives order lifecycle notifications from the order module
type OrderHookHandler struct {
	commissions *services.CommissionService
}

func NewOrderHookHandler(commissions *services.CommissionService) *OrderHookHandler {
	return &OrderHookHandler{commissions: commissions}
}

// OrderPlaced accrues commissions for a new order. The affiliate is taken
// from the body, else resolved from the referral code on the body or order.
func (h *OrderHookHandler) OrderPlaced(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		AffiliateID  *uint  `json:"affiliate_id"`
		ReferralCode string `json:"referral_code"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var (
		commissions []models.Commission
		err         error
	)
	if req.AffiliateID != nil {
		commissions, err = h.commissions.AccrueForOrder(c.Request.Context(), orderID, *req.AffiliateID)
	} else {
		commissions, err = h.commissions.AttributeOrder(c.Request.Context(), orderID, req.ReferralCode)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    presentLedgerCommissions(commissions),
		"count":   len(commissions),
	})
}

// OrderStatusChanged reconciles commissions with the order's new status
func (h *OrderHookHandler) OrderStatusChanged(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order status"})
		return
	}

	result, err := h.commissions.ReconcileForOrderStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
