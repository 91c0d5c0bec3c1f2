package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is owned by the catalog module. AffiliateCommission is a percentage
// (0-100) read once, when an order is accrued.
type Product struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	SellerID            uint            `gorm:"not null;index" json:"seller_id"`
	Name                string          `gorm:"size:255;not null" json:"name"`
	Price               decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price"`
	AffiliateCommission decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"affiliate_commission"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Product model
func (Product) TableName() string {
	return "products"
}
