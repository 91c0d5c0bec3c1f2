package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlatformSettings holds marketplace-wide knobs. There is a single row.
type PlatformSettings struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	MinimumWithdrawal decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"minimum_withdrawal"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName specifies the table name for PlatformSettings model
func (PlatformSettings) TableName() string {
	return "platform_settings"
}
