package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"marketplace/internal/bankdetails"
	"marketplace/internal/events"
	"marketplace/internal/mailer"
	"marketplace/internal/models"
	"marketplace/internal/repository"
	"marketplace/internal/utils"

	"gorm.io/gorm"
)

// DefaultOtpTTL applies when no TTL is configured
const DefaultOtpTTL = 10 * time.Minute

// MaxOtpFailures is how many wrong guesses burn every live code of an affiliate
const MaxOtpFailures = 5

type PaymentMethodService struct {
	db        *gorm.DB
	repo      *repository.Repository
	validator *bankdetails.Validator
	mailer    mailer.Mailer
	limiter   OtpLimiter
	publisher events.Publisher
	otpTTL    time.Duration
	nowFn     func() time.Time
	newCode   func() (string, error)
}

// NewPaymentMethodService wires the bank profile service. limiter may be nil
// to disable the per-affiliate OTP request cap.
func NewPaymentMethodService(
	db *gorm.DB,
	m mailer.Mailer,
	limiter OtpLimiter,
	publisher events.Publisher,
	otpTTL time.Duration,
) *PaymentMethodService {
	if otpTTL <= 0 {
		otpTTL = DefaultOtpTTL
	}
	return &PaymentMethodService{
		db:        db,
		repo:      repository.NewRepository(db),
		validator: bankdetails.NewValidator(),
		mailer:    m,
		limiter:   limiter,
		publisher: publisher,
		otpTTL:    otpTTL,
		nowFn:     time.Now,
		newCode:   utils.GenerateOtpCode,
	}
}

// RequestOtp issues a single-use code for changing payout details and mails it
// to the affiliate. A mail failure does not fail the request.
func (s *PaymentMethodService) RequestOtp(ctx context.Context, affiliateID uint) (*models.PaymentMethodOtp, error) {
	user, err := requireAffiliate(ctx, s.repo, affiliateID)
	if err != nil {
		return nil, err
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, affiliateID)
		if err != nil {
			log.Printf("[payment-method] otp limiter unavailable: %v", err)
		} else if !allowed {
			return nil, ErrTooManyOtpRequests
		}
	}

	code, err := s.newCode()
	if err != nil {
		return nil, err
	}

	now := s.nowFn().UTC()
	otp := &models.PaymentMethodOtp{
		AffiliateID: affiliateID,
		Code:        code,
		Verified:    false,
		ExpiresAt:   now.Add(s.otpTTL),
		CreatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(otp).Error; err != nil {
		return nil, fmt.Errorf("failed to store otp: %w", err)
	}

	if s.mailer != nil {
		if err := s.mailer.SendOtp(user.Email, user.Name, code, int(s.otpTTL.Minutes())); err != nil {
			log.Printf("[payment-method] failed to deliver otp to affiliate %d: %v", affiliateID, err)
		}
	}

	return otp, nil
}

// SavePaymentMethod creates or replaces the affiliate's bank profile. The
// first profile needs no OTP; changing an existing one consumes a valid OTP.
// Every save clears the admin verification.
func (s *PaymentMethodService) SavePaymentMethod(ctx context.Context, affiliateID uint, in bankdetails.Input, otpCode string) (*models.PaymentMethod, error) {
	if _, err := requireAffiliate(ctx, s.repo, affiliateID); err != nil {
		return nil, err
	}

	in = in.Normalized()
	if violations := s.validator.Validate(in); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	var pm models.PaymentMethod
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("affiliate_id = ?", affiliateID).First(&pm).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			pm = models.PaymentMethod{
				AffiliateID:       affiliateID,
				BankName:          in.BankName,
				AccountNumber:     in.AccountNumber,
				AccountHolderName: in.AccountHolderName,
				IBAN:              optional(in.IBAN),
				Swift:             optional(in.Swift),
				BankAddress:       optional(in.BankAddress),
				Verified:          false,
			}
			created = true
			return tx.Create(&pm).Error
		}
		if err != nil {
			return err
		}

		if err := s.consumeOtp(tx, affiliateID, otpCode); err != nil {
			return err
		}

		err = tx.Model(&pm).Updates(map[string]interface{}{
			"bank_name":           in.BankName,
			"account_number":      in.AccountNumber,
			"account_holder_name": in.AccountHolderName,
			"iban":                optional(in.IBAN),
			"swift":               optional(in.Swift),
			"bank_address":        optional(in.BankAddress),
			"verified":            false,
			"verification_notes":  "",
		}).Error
		if err != nil {
			return err
		}
		return tx.Where("id = ?", pm.ID).First(&pm).Error
	})
	if errors.Is(err, ErrInvalidOtp) && otpCode != "" {
		s.recordOtpFailure(ctx, affiliateID)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[payment-method] affiliate %d saved bank profile (created=%t)", affiliateID, created)
	events.Emit(ctx, s.publisher, events.EventPaymentMethodUpdated, fmt.Sprint(affiliateID), map[string]interface{}{
		"affiliate_id": affiliateID,
		"bank_name":    pm.BankName,
		"account":      pm.MaskedAccount(),
		"created":      created,
	})
	return &pm, nil
}

// consumeOtp marks the newest matching, unexpired, unused code as verified.
// The conditional update makes the code single use under concurrency.
func (s *PaymentMethodService) consumeOtp(tx *gorm.DB, affiliateID uint, code string) error {
	if code == "" {
		return ErrInvalidOtp
	}

	var otp models.PaymentMethodOtp
	err := tx.Where("affiliate_id = ? AND code = ? AND verified = ? AND expires_at > ? AND failures < ?",
		affiliateID, code, false, s.nowFn().UTC(), MaxOtpFailures).
		Order("id DESC").
		First(&otp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidOtp
	}
	if err != nil {
		return err
	}

	res := tx.Model(&models.PaymentMethodOtp{}).
		Where("id = ? AND verified = ? AND failures < ?", otp.ID, false, MaxOtpFailures).
		Update("verified", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrInvalidOtp
	}
	return nil
}

// recordOtpFailure charges a wrong guess to every live code of the affiliate.
// It runs outside the save transaction, which has already rolled back.
func (s *PaymentMethodService) recordOtpFailure(ctx context.Context, affiliateID uint) {
	res := s.db.WithContext(ctx).Model(&models.PaymentMethodOtp{}).
		Where("affiliate_id = ? AND verified = ? AND expires_at > ?", affiliateID, false, s.nowFn().UTC()).
		UpdateColumn("failures", gorm.Expr("failures + ?", 1))
	if res.Error != nil {
		log.Printf("[payment-method] failed to record otp failure for affiliate %d: %v", affiliateID, res.Error)
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("[payment-method] wrong otp for affiliate %d", affiliateID)
	}
}

// GetPaymentMethod returns the affiliate's bank profile
func (s *PaymentMethodService) GetPaymentMethod(ctx context.Context, affiliateID uint) (*models.PaymentMethod, error) {
	var pm models.PaymentMethod
	err := s.db.WithContext(ctx).Where("affiliate_id = ?", affiliateID).First(&pm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("payment method for affiliate %d: %w", affiliateID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &pm, nil
}

// VerifyPaymentMethod records the admin's review of a bank profile
func (s *PaymentMethodService) VerifyPaymentMethod(ctx context.Context, affiliateID uint, verified bool, notes string) (*models.PaymentMethod, error) {
	pm, err := s.GetPaymentMethod(ctx, affiliateID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(pm).Updates(map[string]interface{}{
		"verified":           verified,
		"verification_notes": notes,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update payment method: %w", err)
	}
	pm.Verified = verified
	pm.VerificationNotes = notes

	log.Printf("[payment-method] affiliate %d bank profile verified=%t", affiliateID, verified)
	return pm, nil
}

// PurgeOtps deletes codes that expired or were used before cutoff
func (s *PaymentMethodService) PurgeOtps(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ? OR (verified = ? AND created_at < ?)", cutoff.UTC(), true, cutoff.UTC()).
		Delete(&models.PaymentMethodOtp{})
	return res.RowsAffected, res.Error
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
