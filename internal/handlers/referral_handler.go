package handlers

import (
	"net/http"

	"marketplace/internal/services"

	"github.com/gin-gonic/gin"
)

// ReferralHandler serves the public storefront endpoints for referral links
type ReferralHandler struct {
	referrals *services.ReferralService
}

func NewReferralHandler(referrals *services.ReferralService) *ReferralHandler {
	return &ReferralHandler{referrals: referrals}
}

// GetReferral resolves an active referral code
func (h *ReferralHandler) GetReferral(c *gin.Context) {
	rc, err := h.referrals.LookupCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	if rc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Referral code not found"})
		return
	}

	affiliateName := ""
	if rc.Affiliate != nil {
		affiliateName = rc.Affiliate.Name
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"code":           rc.Code,
			"affiliate_id":   rc.AffiliateID,
			"affiliate_name": affiliateName,
		},
	})
}

// TrackClick records a referral link visit. It always succeeds so storefront
// navigation never depends on tracking.
func (h *ReferralHandler) TrackClick(c *gin.Context) {
	var req struct {
		ProductID *uint `json:"product_id"`
	}
	// body is optional
	_ = c.ShouldBindJSON(&req)

	h.referrals.RecordClick(c.Request.Context(), c.Param("code"), req.ProductID)

	c.JSON(http.StatusOK, gin.H{"success": true})
}
