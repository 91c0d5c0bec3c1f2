package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "PENDING"
	WithdrawalStatusApproved WithdrawalStatus = "APPROVED"
	WithdrawalStatusPaid     WithdrawalStatus = "PAID"
	WithdrawalStatusRejected WithdrawalStatus = "REJECTED"
)

var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalStatusPending:  {WithdrawalStatusApproved, WithdrawalStatusRejected},
	WithdrawalStatusApproved: {WithdrawalStatusPaid, WithdrawalStatusRejected},
	WithdrawalStatusPaid:     {},
	WithdrawalStatusRejected: {},
}

// IsValid reports whether s is a known withdrawal status
func (s WithdrawalStatus) IsValid() bool {
	_, ok := withdrawalTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	for _, allowed := range withdrawalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// InFlightWithdrawalStatuses are the statuses that still hold part of the balance
var InFlightWithdrawalStatuses = []WithdrawalStatus{WithdrawalStatusPending, WithdrawalStatusApproved}

// Withdrawal is an affiliate's cash-out request. Amount is fixed at creation.
type Withdrawal struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	AffiliateID    uint             `gorm:"not null;index" json:"affiliate_id"`
	Amount         decimal.Decimal  `gorm:"type:decimal(20,8);not null" json:"amount"`
	Status         WithdrawalStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	PaymentMethod  string           `gorm:"size:50" json:"payment_method"`
	PaymentDetails string           `gorm:"type:text" json:"payment_details"`
	Notes          string           `gorm:"type:text" json:"notes"`
	ProcessedAt    *time.Time       `json:"processed_at,omitempty"`
	CreatedAt      time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (Withdrawal) TableName() string {
	return "withdrawals"
}
