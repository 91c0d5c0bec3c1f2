package handlers

import (
	"net/http"

	"marketplace/internal/models"
	"marketplace/internal/repository"
	"marketplace/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AdminHandler exposes the back-office operations on the affiliate program
type AdminHandler struct {
	settings       repository.SettingsRepository
	commissions    *services.CommissionService
	withdrawals    *services.WithdrawalService
	paymentMethods *services.PaymentMethodService
}

func NewAdminHandler(
	settings repository.SettingsRepository,
	commissions *services.CommissionService,
	withdrawals *services.WithdrawalService,
	paymentMethods *services.PaymentMethodService,
) *AdminHandler {
	return &AdminHandler{
		settings:       settings,
		commissions:    commissions,
		withdrawals:    withdrawals,
		paymentMethods: paymentMethods,
	}
}

// GetSettings returns the platform settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    settings,
	})
}

// UpdateSettings changes the minimum withdrawal amount
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req struct {
		MinimumWithdrawal decimal.Decimal `json:"minimum_withdrawal"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.MinimumWithdrawal.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minimum_withdrawal must be greater than zero"})
		return
	}

	settings, err := h.settings.UpdateMinimumWithdrawal(c.Request.Context(), req.MinimumWithdrawal.Round(2))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    settings,
	})
}

// UpdateWithdrawalStatus approves, rejects or marks a withdrawal as paid
func (h *AdminHandler) UpdateWithdrawalStatus(c *gin.Context) {
	withdrawalID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status models.WithdrawalStatus `json:"status" binding:"required"`
		Notes  string                  `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	withdrawal, err := h.withdrawals.UpdateWithdrawalStatus(c.Request.Context(), withdrawalID, req.Status, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    presentWithdrawal(*withdrawal),
	})
}

// UpdateCommissionStatus settles or cancels a single commission
func (h *AdminHandler) UpdateCommissionStatus(c *gin.Context) {
	commissionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status models.CommissionStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	commission, err := h.commissions.UpdateCommissionStatus(c.Request.Context(), commissionID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    presentLedgerCommission(*commission),
	})
}

// VerifyPaymentMethod records the review of an affiliate's bank profile
func (h *AdminHandler) VerifyPaymentMethod(c *gin.Context) {
	affiliateID, ok := parseIDParam(c, "affiliateId")
	if !ok {
		return
	}

	var req struct {
		Verified bool   `json:"verified"`
		Notes    string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pm, err := h.paymentMethods.VerifyPaymentMethod(c.Request.Context(), affiliateID, req.Verified, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    pm,
	})
}
