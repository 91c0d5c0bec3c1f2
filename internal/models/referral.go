package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralCode is an affiliate's link token. At most one active code exists
// per affiliate; codes are never deleted.
type ReferralCode struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	AffiliateID   uint            `gorm:"not null;index" json:"affiliate_id"`
	Affiliate     *User           `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"`
	Code          string          `gorm:"uniqueIndex;size:40;not null" json:"code"`
	IsActive      bool            `gorm:"default:true;index" json:"is_active"`
	TotalClicks   int64           `gorm:"not null;default:0" json:"total_clicks"`
	TotalOrders   int64           `gorm:"not null;default:0" json:"total_orders"`
	TotalEarnings decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"total_earnings"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (ReferralCode) TableName() string {
	return "referral_codes"
}

// ReferralClick is an append-only analytics event
type ReferralClick struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AffiliateID  uint      `gorm:"not null;index" json:"affiliate_id"`
	ProductID    *uint     `gorm:"index" json:"product_id,omitempty"`
	ReferralCode string    `gorm:"size:40;not null;index" json:"referral_code"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

func (ReferralClick) TableName() string {
	return "referral_clicks"
}

// OrderAttribution records that an order was credited to an affiliate. The
// unique order_id makes commission accrual run at most once per order.
type OrderAttribution struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OrderID      uint      `gorm:"uniqueIndex;not null" json:"order_id"`
	AffiliateID  uint      `gorm:"not null;index" json:"affiliate_id"`
	ReferralCode *string   `gorm:"size:40" json:"referral_code,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (OrderAttribution) TableName() string {
	return "order_attributions"
}
