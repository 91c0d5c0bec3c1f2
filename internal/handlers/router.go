package handlers

import (
	"net/http"
	"time"

	"marketplace/internal/auth"
	"marketplace/internal/middleware"
	"marketplace/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Router bundles what NewRouter needs to mount every endpoint
type Router struct {
	Affiliate      *AffiliateHandler
	Referral       *ReferralHandler
	OrderHooks     *OrderHookHandler
	Admin          *AdminHandler
	ClickLimiter   *middleware.RateLimiter
	AllowedOrigins []string
}

// NewRouter builds the gin engine with CORS, health check and all routes
func NewRouter(r Router) *gin.Engine {
	router := gin.Default()

	if len(r.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     r.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Public referral link routes
	public := router.Group("/api/referral")
	{
		public.GET("/:code", r.Referral.GetReferral)
		if r.ClickLimiter != nil {
			public.POST("/:code/click", r.ClickLimiter.Middleware(), r.Referral.TrackClick)
		} else {
			public.POST("/:code/click", r.Referral.TrackClick)
		}
	}

	// Affiliate routes (protected)
	affiliate := router.Group("/api/affiliate")
	affiliate.Use(auth.AuthMiddleware())
	{
		affiliate.GET("/referral-code", r.Affiliate.GetReferralCode)
		affiliate.GET("/commissions", r.Affiliate.GetCommissions)
		affiliate.GET("/earnings", r.Affiliate.GetEarnings)
		affiliate.GET("/dashboard", r.Affiliate.GetDashboard)
		affiliate.POST("/withdrawals", r.Affiliate.RequestWithdrawal)
		affiliate.GET("/withdrawals", r.Affiliate.GetWithdrawals)
		affiliate.GET("/payment-method", r.Affiliate.GetPaymentMethod)
		affiliate.POST("/payment-method/otp", r.Affiliate.RequestPaymentMethodOtp)
		affiliate.PUT("/payment-method", r.Affiliate.SavePaymentMethod)
	}

	// Order module hooks (service token with ADMIN role)
	hooks := router.Group("/internal/orders")
	hooks.Use(auth.AuthMiddleware(), auth.RequireUserType(models.UserTypeAdmin))
	{
		hooks.POST("/:id/placed", r.OrderHooks.OrderPlaced)
		hooks.POST("/:id/status", r.OrderHooks.OrderStatusChanged)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware(), auth.RequireUserType(models.UserTypeAdmin))
	{
		admin.GET("/settings", r.Admin.GetSettings)
		admin.PUT("/settings", r.Admin.UpdateSettings)
		admin.PUT("/withdrawals/:id/status", r.Admin.UpdateWithdrawalStatus)
		admin.PUT("/commissions/:id/status", r.Admin.UpdateCommissionStatus)
		admin.PUT("/payment-methods/:affiliateId/verify", r.Admin.VerifyPaymentMethod)
	}

	return router
}
