package models

import (
	"time"
)

type UserType string

const (
	UserTypeBuyer     UserType = "BUYER"
	UserTypeSeller    UserType = "SELLER"
	UserTypeAffiliate UserType = "AFFILIATE"
	UserTypeAdmin     UserType = "ADMIN"
)

// User represents a marketplace account. Only AFFILIATE users own referral
// codes, commissions and withdrawals.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string    `gorm:"size:255" json:"name"`
	UserType  UserType  `gorm:"size:20;not null;default:BUYER;index" json:"user_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// IsAffiliate reports whether the user may call affiliate-only operations
func (u *User) IsAffiliate() bool {
	return u.UserType == UserTypeAffiliate
}
