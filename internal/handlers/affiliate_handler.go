package handlers

import (
	"errors"
	"net/http"
	"time"

	"marketplace/internal/bankdetails"
	"marketplace/internal/models"
	"marketplace/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// defaultEarningsWindow applies when the earnings query names no start date
const defaultEarningsWindow = 30 * 24 * time.Hour

type AffiliateHandler struct {
	referrals      *services.ReferralService
	commissions    *services.CommissionService
	balances       *services.BalanceService
	withdrawals    *services.WithdrawalService
	paymentMethods *services.PaymentMethodService
}

func NewAffiliateHandler(
	referrals *services.ReferralService,
	commissions *services.CommissionService,
	balances *services.BalanceService,
	withdrawals *services.WithdrawalService,
	paymentMethods *services.PaymentMethodService,
) *AffiliateHandler {
	return &AffiliateHandler{
		referrals:      referrals,
		commissions:    commissions,
		balances:       balances,
		withdrawals:    withdrawals,
		paymentMethods: paymentMethods,
	}
}

// GetReferralCode returns the affiliate's referral code, creating it on first use
func (h *AffiliateHandler) GetReferralCode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	code, err := h.referrals.GetOrCreateCode(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	code.TotalEarnings = code.TotalEarnings.Round(2)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    code,
	})
}

// GetCommissions returns a page of the affiliate's commissions
func (h *AffiliateHandler) GetCommissions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var status *models.CommissionStatus
	if raw := c.Query("status"); raw != "" {
		s := models.CommissionStatus(raw)
		if !s.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}
		status = &s
	}

	page, limit := parsePage(c)
	result, err := h.commissions.CommissionsByAffiliate(c.Request.Context(), userID, page, limit, status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    presentPage(result, presentCommission),
	})
}

// GetEarnings returns approved earnings per day. start and end accept
// YYYY-MM-DD (end inclusive of the whole day) or RFC 3339.
func (h *AffiliateHandler) GetEarnings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	now := time.Now().UTC()
	end, err := parseTimeQuery(c.Query("end"), now, true)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date"})
		return
	}
	start, err := parseTimeQuery(c.Query("start"), end.Add(-defaultEarningsWindow), false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date"})
		return
	}
	if start.After(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must not be after end"})
		return
	}

	earnings, err := h.commissions.EarningsByPeriod(c.Request.Context(), userID, start, end)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    presentEarnings(earnings),
	})
}

func parseTimeQuery(raw string, fallback time.Time, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// GetDashboard returns the affiliate's dashboard figures
func (h *AffiliateHandler) GetDashboard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.balances.DashboardStats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

type withdrawalRequestBody struct {
	Amount         decimal.Decimal `json:"amount"`
	PaymentMethod  string          `json:"payment_method" binding:"max=50"`
	PaymentDetails string          `json:"payment_details"`
	Notes          string          `json:"notes"`
}

// RequestWithdrawal creates a pending withdrawal
func (h *AffiliateHandler) RequestWithdrawal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req withdrawalRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	withdrawal, err := h.withdrawals.RequestWithdrawal(c.Request.Context(), userID, services.WithdrawalRequest{
		Amount:         req.Amount,
		PaymentMethod:  req.PaymentMethod,
		PaymentDetails: req.PaymentDetails,
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    presentWithdrawal(*withdrawal),
		"message": "Withdrawal request submitted",
	})
}

// GetWithdrawals returns a page of the affiliate's withdrawals
func (h *AffiliateHandler) GetWithdrawals(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var status *models.WithdrawalStatus
	if raw := c.Query("status"); raw != "" {
		s := models.WithdrawalStatus(raw)
		if !s.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}
		status = &s
	}

	page, limit := parsePage(c)
	result, err := h.withdrawals.History(c.Request.Context(), userID, page, limit, status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    presentPage(result, presentWithdrawal),
	})
}

// GetPaymentMethod returns the bank profile, or null when none is on file
func (h *AffiliateHandler) GetPaymentMethod(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	pm, err := h.paymentMethods.GetPaymentMethod(c.Request.Context(), userID)
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": nil})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    pm,
	})
}

// RequestPaymentMethodOtp mails a code that authorises the next bank detail change
func (h *AffiliateHandler) RequestPaymentMethodOtp(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	otp, err := h.paymentMethods.RequestOtp(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Verification code sent",
		"expires_at": otp.ExpiresAt,
	})
}

type paymentMethodBody struct {
	bankdetails.Input
	Otp string `json:"otp"`
}

// SavePaymentMethod creates or updates the bank profile
func (h *AffiliateHandler) SavePaymentMethod(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req paymentMethodBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pm, err := h.paymentMethods.SavePaymentMethod(c.Request.Context(), userID, req.Input, req.Otp)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    pm,
		"message": "Payment method saved",
	})
}
