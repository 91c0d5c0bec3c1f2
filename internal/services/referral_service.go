package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"marketplace/internal/events"
	"marketplace/internal/lock"
	"marketplace/internal/models"
	"marketplace/internal/repository"
	"marketplace/internal/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaxCodeAttempts bounds the collision retries when minting a referral code
const MaxCodeAttempts = 10

// GenerationOutcome tags the result of a referral code generation attempt
type GenerationOutcome int

const (
	GenerationSuccess GenerationOutcome = iota
	GenerationCollision
	GenerationExhausted
)

func (o GenerationOutcome) String() string {
	switch o {
	case GenerationSuccess:
		return "success"
	case GenerationCollision:
		return "collision"
	case GenerationExhausted:
		return "exhausted"
	}
	return "unknown"
}

// GenerationResult carries the code when Outcome is GenerationSuccess
type GenerationResult struct {
	Outcome GenerationOutcome
	Code    *models.ReferralCode
}

type ReferralService struct {
	db        *gorm.DB
	repo      *repository.Repository
	locker    lock.Locker
	publisher events.Publisher
	prefix    string
	nowFn     func() time.Time
	generate  func(prefix string, now time.Time) (string, error)
}

func NewReferralService(db *gorm.DB, locker lock.Locker, publisher events.Publisher, prefix string) *ReferralService {
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	return &ReferralService{
		db:        db,
		repo:      repository.NewRepository(db),
		locker:    locker,
		publisher: publisher,
		prefix:    prefix,
		nowFn:     time.Now,
		generate:  utils.GenerateReferralCode,
	}
}

// requireAffiliate loads the user and checks the AFFILIATE role
func requireAffiliate(ctx context.Context, repo *repository.Repository, userID uint) (*models.User, error) {
	user, err := repo.GetUserByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsAffiliate() {
		return nil, ErrInvalidRole
	}
	return user, nil
}

// GetOrCreateCode returns the affiliate's active referral code, minting one if needed
func (s *ReferralService) GetOrCreateCode(ctx context.Context, affiliateID uint) (*models.ReferralCode, error) {
	if _, err := requireAffiliate(ctx, s.repo, affiliateID); err != nil {
		return nil, err
	}

	if code, err := s.activeCode(s.db.WithContext(ctx), affiliateID); err != nil || code != nil {
		return code, err
	}

	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("referral:%d", affiliateID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock affiliate %d: %w", affiliateID, err)
	}
	defer unlock()

	var created *models.ReferralCode
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repository.LockUser(tx, affiliateID); err != nil {
			return fmt.Errorf("failed to lock user: %w", err)
		}

		existing, err := s.activeCode(tx, affiliateID)
		if err != nil {
			return err
		}
		if existing != nil {
			created = existing
			return nil
		}

		result, err := s.generateCode(tx, affiliateID)
		if err != nil {
			return err
		}
		if result.Outcome == GenerationExhausted {
			return ErrGenerationExhausted
		}
		created = result.Code
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *ReferralService) activeCode(db *gorm.DB, affiliateID uint) (*models.ReferralCode, error) {
	var code models.ReferralCode
	err := db.Where("affiliate_id = ? AND is_active = ?", affiliateID, true).
		Order("id ASC").
		First(&code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load referral code: %w", err)
	}
	return &code, nil
}

// generateCode probes up to MaxCodeAttempts candidates
func (s *ReferralService) generateCode(tx *gorm.DB, affiliateID uint) (GenerationResult, error) {
	for attempt := 1; attempt <= MaxCodeAttempts; attempt++ {
		result, err := s.tryGenerate(tx, affiliateID)
		if err != nil {
			return GenerationResult{}, err
		}
		if result.Outcome == GenerationSuccess {
			log.Printf("[referral] generated code %s for affiliate %d (attempt %d)", result.Code.Code, affiliateID, attempt)
			return result, nil
		}
		log.Printf("[referral] code collision for affiliate %d (attempt %d)", affiliateID, attempt)
	}
	return GenerationResult{Outcome: GenerationExhausted}, nil
}

// tryGenerate makes exactly one attempt. A failed insert is rolled back to a
// savepoint so the surrounding transaction stays usable.
func (s *ReferralService) tryGenerate(tx *gorm.DB, affiliateID uint) (GenerationResult, error) {
	candidate, err := s.generate(s.prefix, s.nowFn())
	if err != nil {
		return GenerationResult{}, err
	}

	var taken int64
	if err := tx.Model(&models.ReferralCode{}).Where("code = ?", candidate).Count(&taken).Error; err != nil {
		return GenerationResult{}, fmt.Errorf("failed to check referral code: %w", err)
	}
	if taken > 0 {
		return GenerationResult{Outcome: GenerationCollision}, nil
	}

	code := &models.ReferralCode{
		AffiliateID:   affiliateID,
		Code:          candidate,
		IsActive:      true,
		TotalEarnings: decimal.Zero,
	}

	const savepoint = "referral_code_attempt"
	if err := tx.SavePoint(savepoint).Error; err != nil {
		return GenerationResult{}, err
	}
	if err := tx.Create(code).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if rbErr := tx.RollbackTo(savepoint).Error; rbErr != nil {
				return GenerationResult{}, rbErr
			}
			return GenerationResult{Outcome: GenerationCollision}, nil
		}
		return GenerationResult{}, fmt.Errorf("failed to create referral code: %w", err)
	}

	return GenerationResult{Outcome: GenerationSuccess, Code: code}, nil
}

// LookupCode returns the active referral code with its owner, or nil when
// the code is unknown or inactive
func (s *ReferralService) LookupCode(ctx context.Context, code string) (*models.ReferralCode, error) {
	var rc models.ReferralCode
	err := s.db.WithContext(ctx).
		Preload("Affiliate").
		Where("code = ? AND is_active = ?", code, true).
		First(&rc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load referral code: %w", err)
	}
	return &rc, nil
}

// ResolveAffiliate returns the owner of an active code, or nil when there is none
func (s *ReferralService) ResolveAffiliate(ctx context.Context, code string) (*models.User, error) {
	rc, err := s.LookupCode(ctx, code)
	if err != nil || rc == nil {
		return nil, err
	}
	return rc.Affiliate, nil
}

// RecordClick appends a click and bumps the code's counter. Unknown codes
// and storage failures are logged and otherwise ignored.
func (s *ReferralService) RecordClick(ctx context.Context, code string, productID *uint) {
	rc, err := s.LookupCode(ctx, code)
	if err != nil {
		log.Printf("[referral] click lookup failed for %s: %v", code, err)
		return
	}
	if rc == nil {
		return
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		click := models.ReferralClick{
			AffiliateID:  rc.AffiliateID,
			ProductID:    productID,
			ReferralCode: rc.Code,
		}
		if err := tx.Create(&click).Error; err != nil {
			return err
		}
		return tx.Model(&models.ReferralCode{}).
			Where("id = ?", rc.ID).
			UpdateColumn("total_clicks", gorm.Expr("total_clicks + ?", 1)).Error
	})
	if err != nil {
		log.Printf("[referral] failed to record click for %s: %v", code, err)
		return
	}

	events.Emit(ctx, s.publisher, events.EventReferralClicked, fmt.Sprint(rc.AffiliateID), map[string]interface{}{
		"affiliate_id":  rc.AffiliateID,
		"referral_code": rc.Code,
		"product_id":    productID,
	})
}

// IncrementOrders bumps total_orders for code. tx may be nil.
func (s *ReferralService) IncrementOrders(ctx context.Context, tx *gorm.DB, code string) error {
	if tx == nil {
		tx = s.db
	}
	return tx.WithContext(ctx).Model(&models.ReferralCode{}).
		Where("code = ?", code).
		UpdateColumn("total_orders", gorm.Expr("total_orders + ?", 1)).Error
}

// AddEarnings adds amount to the informational total_earnings aggregate. tx may be nil.
func (s *ReferralService) AddEarnings(ctx context.Context, tx *gorm.DB, code string, amount decimal.Decimal) error {
	if tx == nil {
		tx = s.db
	}
	return tx.WithContext(ctx).Model(&models.ReferralCode{}).
		Where("code = ?", code).
		UpdateColumn("total_earnings", gorm.Expr("total_earnings + ?", amount)).Error
}
