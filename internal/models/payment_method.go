package models

import (
	"time"
)

// PaymentMethod is an affiliate's bank payout profile (one per affiliate).
// Verified is controlled by admins and reset on every change.
type PaymentMethod struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	AffiliateID       uint      `gorm:"uniqueIndex;not null" json:"affiliate_id"`
	BankName          string    `gorm:"size:100;not null" json:"bank_name"`
	AccountNumber     string    `gorm:"size:34;not null" json:"account_number"`
	AccountHolderName string    `gorm:"size:100;not null" json:"account_holder_name"`
	IBAN              *string   `gorm:"column:iban;size:34" json:"iban,omitempty"`
	Swift             *string   `gorm:"size:11" json:"swift,omitempty"`
	BankAddress       *string   `gorm:"size:255" json:"bank_address,omitempty"`
	Verified          bool      `gorm:"default:false" json:"verified"`
	VerificationNotes string    `gorm:"type:text" json:"verification_notes"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (PaymentMethod) TableName() string {
	return "payment_methods"
}

// MaskedAccount returns the account number with all but the last four digits hidden
func (p *PaymentMethod) MaskedAccount() string {
	n := len(p.AccountNumber)
	if n <= 4 {
		return p.AccountNumber
	}
	masked := make([]byte, n)
	for i := 0; i < n-4; i++ {
		masked[i] = '*'
	}
	copy(masked[n-4:], p.AccountNumber[n-4:])
	return string(masked)
}

// PaymentMethodOtp is a short-lived single-use code gating payout detail changes.
// Failures counts wrong guesses made while the code was live.
type PaymentMethodOtp struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AffiliateID uint      `gorm:"not null;index" json:"affiliate_id"`
	Code        string    `gorm:"size:6;not null" json:"-"`
	Verified    bool      `gorm:"default:false" json:"verified"`
	Failures    int       `gorm:"not null;default:0" json:"-"`
	ExpiresAt   time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (PaymentMethodOtp) TableName() string {
	return "payment_method_otps"
}
