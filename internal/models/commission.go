package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "PENDING"
	CommissionStatusApproved  CommissionStatus = "APPROVED"
	CommissionStatusPaid      CommissionStatus = "PAID"
	CommissionStatusCancelled CommissionStatus = "CANCELLED"
)

// commissionTransitions lists the allowed moves out of each status. An
// approved commission can still be cancelled when a delivered order is returned.
var commissionTransitions = map[CommissionStatus][]CommissionStatus{
	CommissionStatusPending:   {CommissionStatusApproved, CommissionStatusCancelled},
	CommissionStatusApproved:  {CommissionStatusPaid, CommissionStatusCancelled},
	CommissionStatusPaid:      {},
	CommissionStatusCancelled: {},
}

// IsValid reports whether s is a known commission status
func (s CommissionStatus) IsValid() bool {
	_, ok := commissionTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible
func (s CommissionStatus) IsTerminal() bool {
	return s.IsValid() && len(commissionTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s CommissionStatus) CanTransitionTo(next CommissionStatus) bool {
	for _, allowed := range commissionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CommissionStatusForOrder maps an order status to the commission status it
// implies. ok is false when the order status does not affect commissions.
func CommissionStatusForOrder(status OrderStatus) (CommissionStatus, bool) {
	switch status {
	case OrderStatusDelivered:
		return CommissionStatusApproved, true
	case OrderStatusCancelled, OrderStatusReturned:
		return CommissionStatusCancelled, true
	}
	return "", false
}

// Commission is a per-line accrual owed to an affiliate. Amounts are
// snapshotted when the order is placed and never recomputed.
type Commission struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	AffiliateID       uint             `gorm:"not null;index" json:"affiliate_id"`
	OrderID           uint             `gorm:"not null;index;uniqueIndex:idx_commission_order_item" json:"order_id"`
	OrderItemID       uint             `gorm:"not null;uniqueIndex:idx_commission_order_item" json:"order_item_id"`
	ProductID         uint             `gorm:"not null;index" json:"product_id"`
	OrderItemAmount   decimal.Decimal  `gorm:"type:decimal(20,8);not null" json:"order_item_amount"`
	CommissionPercent decimal.Decimal  `gorm:"type:decimal(5,2);not null" json:"commission_percent"`
	CommissionAmount  decimal.Decimal  `gorm:"type:decimal(20,8);not null" json:"commission_amount"`
	Quantity          int              `gorm:"not null" json:"quantity"`
	Status            CommissionStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	CreatedAt         time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func (Commission) TableName() string {
	return "commissions"
}

// CalculateCommission returns amount × percent / 100 without rounding
func CalculateCommission(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(decimal.NewFromInt(100))
}
