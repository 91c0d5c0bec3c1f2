package services

import (
	"errors"
	"fmt"
	"strings"

	"marketplace/internal/bankdetails"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRole         = errors.New("user is not an affiliate")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidOtp          = errors.New("invalid or expired verification code")
	ErrGenerationExhausted = errors.New("could not generate a unique referral code")
	ErrInvalidTransition   = errors.New("status transition not allowed")
	ErrTooManyOtpRequests  = errors.New("too many verification code requests, try again later")

	ErrBelowThreshold      = errors.New("amount is below the minimum withdrawal")
	ErrInsufficientBalance = errors.New("insufficient available balance")
	ErrValidationFailure   = errors.New("validation failed")
)

// BelowThresholdError carries the requested amount and the platform minimum
type BelowThresholdError struct {
	Amount  decimal.Decimal
	Minimum decimal.Decimal
}

func (e *BelowThresholdError) Error() string {
	return fmt.Sprintf("minimum withdrawal amount is %s, requested %s",
		e.Minimum.StringFixed(2), e.Amount.StringFixed(2))
}

func (e *BelowThresholdError) Is(target error) bool {
	return target == ErrBelowThreshold
}

// InsufficientBalanceError carries the requested amount and what is available
type InsufficientBalanceError struct {
	Amount    decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %s, requested %s",
		e.Available.StringFixed(2), e.Amount.StringFixed(2))
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// ValidationError lists every bank-detail rule that failed
type ValidationError struct {
	Violations []bankdetails.Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailure
}
