package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"marketplace/internal/events"
	"marketplace/internal/lock"
	"marketplace/internal/mailer"
	"marketplace/internal/models"
	"marketplace/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentMethodBankTransfer is used when a request names no payment method
// and the affiliate has a bank profile on file
const PaymentMethodBankTransfer = "bank_transfer"

// WithdrawalRequest is an affiliate's cash-out request
type WithdrawalRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentDetails string          `json:"payment_details"`
	Notes          string          `json:"notes"`
}

type WithdrawalService struct {
	db        *gorm.DB
	repo      *repository.Repository
	settings  repository.SettingsRepository
	locker    lock.Locker
	publisher events.Publisher
	mailer    mailer.Mailer
	nowFn     func() time.Time
}

func NewWithdrawalService(
	db *gorm.DB,
	settings repository.SettingsRepository,
	locker lock.Locker,
	publisher events.Publisher,
	m mailer.Mailer,
) *WithdrawalService {
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	return &WithdrawalService{
		db:        db,
		repo:      repository.NewRepository(db),
		settings:  settings,
		locker:    locker,
		publisher: publisher,
		mailer:    m,
		nowFn:     time.Now,
	}
}

// RequestWithdrawal creates a PENDING withdrawal. The balance check and the
// insert run under a per-affiliate lock and a row lock on the user, so
// concurrent requests cannot both spend the same balance.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, affiliateID uint, req WithdrawalRequest) (*models.Withdrawal, error) {
	user, err := requireAffiliate(ctx, s.repo, affiliateID)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	minimum, err := s.settings.MinimumWithdrawal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load minimum withdrawal: %w", err)
	}
	if req.Amount.LessThan(minimum) {
		return nil, &BelowThresholdError{Amount: req.Amount, Minimum: minimum}
	}

	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("withdrawal:%d", affiliateID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock affiliate %d: %w", affiliateID, err)
	}
	defer unlock()

	withdrawal := &models.Withdrawal{
		AffiliateID:    affiliateID,
		Amount:         req.Amount,
		Status:         models.WithdrawalStatusPending,
		PaymentMethod:  req.PaymentMethod,
		PaymentDetails: req.PaymentDetails,
		Notes:          req.Notes,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repository.LockUser(tx, affiliateID); err != nil {
			return fmt.Errorf("failed to lock user: %w", err)
		}

		available, err := availableBalance(tx, affiliateID)
		if err != nil {
			return err
		}
		if req.Amount.GreaterThan(available) {
			return &InsufficientBalanceError{Amount: req.Amount, Available: available}
		}

		if withdrawal.PaymentMethod == "" {
			var pm models.PaymentMethod
			err := tx.Where("affiliate_id = ?", affiliateID).First(&pm).Error
			if err == nil {
				withdrawal.PaymentMethod = PaymentMethodBankTransfer
				if withdrawal.PaymentDetails == "" {
					withdrawal.PaymentDetails = fmt.Sprintf("%s %s", pm.BankName, pm.MaskedAccount())
				}
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		return tx.Create(withdrawal).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[withdrawal] affiliate %d requested %s (withdrawal %d)", affiliateID, req.Amount.StringFixed(2), withdrawal.ID)

	events.Emit(ctx, s.publisher, events.EventWithdrawalRequested, fmt.Sprint(affiliateID), withdrawal)
	if s.mailer != nil {
		subject := fmt.Sprintf("Withdrawal request #%d", withdrawal.ID)
		body := fmt.Sprintf("Affiliate %s (%s) requested a withdrawal of %s via %s.",
			user.Name, user.Email, req.Amount.StringFixed(2), withdrawal.PaymentMethod)
		if err := s.mailer.SendAdminNotice(subject, body); err != nil {
			log.Printf("[withdrawal] failed to notify admins about withdrawal %d: %v", withdrawal.ID, err)
		}
	}

	return withdrawal, nil
}

// History lists an affiliate's withdrawals newest first
func (s *WithdrawalService) History(
	ctx context.Context,
	affiliateID uint,
	page, limit int,
	status *models.WithdrawalStatus,
) (*models.Page[models.Withdrawal], error) {
	page, limit = models.NormalizePage(page, limit)

	query := s.db.WithContext(ctx).Model(&models.Withdrawal{}).Where("affiliate_id = ?", affiliateID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count withdrawals: %w", err)
	}

	items := make([]models.Withdrawal, 0, limit)
	err := query.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}

	return &models.Page[models.Withdrawal]{
		Items:      items,
		Pagination: models.NewPagination(page, limit, total),
	}, nil
}

// UpdateWithdrawalStatus is the admin review path. Transitions are checked
// against the withdrawal state machine; processed_at is stamped on every move.
func (s *WithdrawalService) UpdateWithdrawalStatus(ctx context.Context, withdrawalID uint, status models.WithdrawalStatus, notes string) (*models.Withdrawal, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown withdrawal status %q: %w", status, ErrInvalidTransition)
	}

	var withdrawal models.Withdrawal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", withdrawalID).First(&withdrawal).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("withdrawal %d: %w", withdrawalID, ErrNotFound)
			}
			return err
		}
		if !withdrawal.Status.CanTransitionTo(status) {
			return fmt.Errorf("%s -> %s: %w", withdrawal.Status, status, ErrInvalidTransition)
		}

		now := s.nowFn().UTC()
		updates := map[string]interface{}{
			"status":       status,
			"processed_at": now,
		}
		if notes != "" {
			updates["notes"] = notes
		}
		res := tx.Model(&models.Withdrawal{}).
			Where("id = ? AND status = ?", withdrawal.ID, withdrawal.Status).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("withdrawal %d changed concurrently: %w", withdrawalID, ErrInvalidTransition)
		}

		withdrawal.Status = status
		withdrawal.ProcessedAt = &now
		if notes != "" {
			withdrawal.Notes = notes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[withdrawal] withdrawal %d moved to %s", withdrawal.ID, status)
	events.Emit(ctx, s.publisher, events.EventWithdrawalStatusChanged, fmt.Sprint(withdrawal.AffiliateID), withdrawal)
	return &withdrawal, nil
}
