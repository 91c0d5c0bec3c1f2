package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"marketplace/internal/events"
	"marketplace/internal/models"
	"marketplace/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionView is a ledger row enriched at read time
type CommissionView struct {
	models.Commission
	OrderNumber string `json:"order_number"`
	ProductName string `json:"product_name"`
}

// DailyEarnings is the approved commission total for one UTC day
type DailyEarnings struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// ReconcileResult counts the commissions moved and the ones whose current
// status does not allow the move
type ReconcileResult struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

type CommissionService struct {
	db        *gorm.DB
	repo      *repository.Repository
	referrals *ReferralService
	publisher events.Publisher
}

func NewCommissionService(db *gorm.DB, referrals *ReferralService, publisher events.Publisher) *CommissionService {
	return &CommissionService{
		db:        db,
		repo:      repository.NewRepository(db),
		referrals: referrals,
		publisher: publisher,
	}
}

// AccrueForOrder creates one PENDING commission per eligible order line for
// an AFFILIATE user.
// The order attribution row is the idempotency key: a second call for the
// same order returns the commissions created by the first.
func (s *CommissionService) AccrueForOrder(ctx context.Context, orderID, affiliateID uint) ([]models.Commission, error) {
	if _, err := requireAffiliate(ctx, s.repo, affiliateID); err != nil {
		return nil, err
	}

	order, err := s.repo.GetOrderWithItems(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	var (
		commissions []models.Commission
		replay      bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.OrderAttribution{}).Where("order_id = ?", orderID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			replay = true
			return tx.Where("order_id = ?", orderID).Order("id ASC").Find(&commissions).Error
		}

		attribution := models.OrderAttribution{
			OrderID:      orderID,
			AffiliateID:  affiliateID,
			ReferralCode: order.ReferralCode,
		}
		if err := tx.Create(&attribution).Error; err != nil {
			return fmt.Errorf("failed to attribute order: %w", err)
		}

		total := decimal.Zero
		for _, item := range order.Items {
			if item.ProductID == nil || item.Product == nil {
				continue
			}
			percent := item.Product.AffiliateCommission
			if !percent.IsPositive() {
				continue
			}

			lineAmount := item.LineAmount()
			commission := models.Commission{
				AffiliateID:       affiliateID,
				OrderID:           order.ID,
				OrderItemID:       item.ID,
				ProductID:         *item.ProductID,
				OrderItemAmount:   lineAmount,
				CommissionPercent: percent,
				CommissionAmount:  models.CalculateCommission(lineAmount, percent),
				Quantity:          item.Quantity,
				Status:            models.CommissionStatusPending,
			}
			if err := tx.Create(&commission).Error; err != nil {
				return fmt.Errorf("failed to create commission for item %d: %w", item.ID, err)
			}
			commissions = append(commissions, commission)
			total = total.Add(commission.CommissionAmount)
		}

		if order.ReferralCode == nil || *order.ReferralCode == "" {
			return nil
		}
		if err := s.referrals.IncrementOrders(ctx, tx, *order.ReferralCode); err != nil {
			return fmt.Errorf("failed to update referral orders: %w", err)
		}
		if total.IsPositive() {
			if err := s.referrals.AddEarnings(ctx, tx, *order.ReferralCode, total); err != nil {
				return fmt.Errorf("failed to update referral earnings: %w", err)
			}
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost a race with a concurrent accrual for the same order
		replay = true
		err = s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&commissions).Error
	}
	if err != nil {
		return nil, err
	}

	if replay {
		log.Printf("[commission] order %d already accrued, returning %d existing commissions", orderID, len(commissions))
		return commissions, nil
	}

	log.Printf("[commission] accrued %d commissions for order %d (affiliate %d)", len(commissions), orderID, affiliateID)
	for _, c := range commissions {
		events.Emit(ctx, s.publisher, events.EventCommissionAccrued, fmt.Sprint(affiliateID), c)
	}
	return commissions, nil
}

// AttributeOrder accrues commissions for the affiliate behind code, or the
// order's own referral code when code is empty. Orders without a resolvable
// affiliate produce no commissions.
func (s *CommissionService) AttributeOrder(ctx context.Context, orderID uint, code string) ([]models.Commission, error) {
	if code == "" {
		order, err := s.repo.GetOrderWithItems(ctx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load order: %w", err)
		}
		if order.ReferralCode == nil || *order.ReferralCode == "" {
			return nil, nil
		}
		code = *order.ReferralCode
	}

	affiliate, err := s.referrals.ResolveAffiliate(ctx, code)
	if err != nil {
		return nil, err
	}
	if affiliate == nil || !affiliate.IsAffiliate() {
		log.Printf("[commission] order %d: referral code %s has no active affiliate", orderID, code)
		return nil, nil
	}

	return s.AccrueForOrder(ctx, orderID, affiliate.ID)
}

// ReconcileForOrderStatus moves the order's commissions to the status implied
// by the new order status. Moves the commission state machine forbids are skipped.
func (s *CommissionService) ReconcileForOrderStatus(ctx context.Context, orderID uint, newStatus models.OrderStatus) (ReconcileResult, error) {
	var result ReconcileResult

	target, ok := models.CommissionStatusForOrder(newStatus)
	if !ok {
		return result, nil
	}

	var changed []models.Commission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var commissions []models.Commission
		if err := tx.Where("order_id = ?", orderID).Order("id ASC").Find(&commissions).Error; err != nil {
			return err
		}

		for _, c := range commissions {
			if c.Status == target {
				continue
			}
			if !c.Status.CanTransitionTo(target) {
				result.Skipped++
				continue
			}
			res := tx.Model(&models.Commission{}).
				Where("id = ? AND status = ?", c.ID, c.Status).
				Update("status", target)
			if res.Error != nil {
				return fmt.Errorf("failed to update commission %d: %w", c.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				result.Skipped++
				continue
			}
			c.Status = target
			changed = append(changed, c)
			result.Updated++
		}
		return nil
	})
	if err != nil {
		return ReconcileResult{}, err
	}

	if result.Updated > 0 || result.Skipped > 0 {
		log.Printf("[commission] order %d -> %s: %d updated, %d skipped", orderID, newStatus, result.Updated, result.Skipped)
	}
	for _, c := range changed {
		events.Emit(ctx, s.publisher, events.EventCommissionStatusChanged, fmt.Sprint(c.AffiliateID), c)
	}
	return result, nil
}

// UpdateCommissionStatus is the admin settlement path, e.g. APPROVED to PAID
func (s *CommissionService) UpdateCommissionStatus(ctx context.Context, commissionID uint, status models.CommissionStatus) (*models.Commission, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown commission status %q: %w", status, ErrInvalidTransition)
	}

	var commission models.Commission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", commissionID).First(&commission).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("commission %d: %w", commissionID, ErrNotFound)
			}
			return err
		}
		if commission.Status == status {
			return nil
		}
		if !commission.Status.CanTransitionTo(status) {
			return fmt.Errorf("%s -> %s: %w", commission.Status, status, ErrInvalidTransition)
		}

		res := tx.Model(&models.Commission{}).
			Where("id = ? AND status = ?", commission.ID, commission.Status).
			Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("commission %d changed concurrently: %w", commissionID, ErrInvalidTransition)
		}
		commission.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, events.EventCommissionStatusChanged, fmt.Sprint(commission.AffiliateID), commission)
	return &commission, nil
}

// CommissionsByAffiliate lists an affiliate's commissions newest first
func (s *CommissionService) CommissionsByAffiliate(
	ctx context.Context,
	affiliateID uint,
	page, limit int,
	status *models.CommissionStatus,
) (*models.Page[CommissionView], error) {
	page, limit = models.NormalizePage(page, limit)

	base := s.db.WithContext(ctx).Model(&models.Commission{}).Where("commissions.affiliate_id = ?", affiliateID)
	if status != nil {
		base = base.Where("commissions.status = ?", *status)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count commissions: %w", err)
	}

	items := make([]CommissionView, 0, limit)
	err := base.Session(&gorm.Session{}).
		Select("commissions.*, COALESCE(orders.order_number, '') AS order_number, COALESCE(products.name, '') AS product_name").
		Joins("LEFT JOIN orders ON orders.id = commissions.order_id").
		Joins("LEFT JOIN products ON products.id = commissions.product_id").
		Order("commissions.created_at DESC, commissions.id DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}

	return &models.Page[CommissionView]{
		Items:      items,
		Pagination: models.NewPagination(page, limit, total),
	}, nil
}

// EarningsByPeriod sums APPROVED commissions per UTC day within [start, end].
// Only days with at least one commission are returned, oldest first.
func (s *CommissionService) EarningsByPeriod(ctx context.Context, affiliateID uint, start, end time.Time) ([]DailyEarnings, error) {
	var commissions []models.Commission
	err := s.db.WithContext(ctx).
		Select("commission_amount", "created_at").
		Where("affiliate_id = ? AND status = ? AND created_at >= ? AND created_at <= ?",
			affiliateID, models.CommissionStatusApproved, start.UTC(), end.UTC()).
		Find(&commissions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load earnings: %w", err)
	}

	byDay := make(map[string]*DailyEarnings)
	for _, c := range commissions {
		day := c.CreatedAt.UTC().Format("2006-01-02")
		entry, ok := byDay[day]
		if !ok {
			entry = &DailyEarnings{Date: day, Amount: decimal.Zero}
			byDay[day] = entry
		}
		entry.Amount = entry.Amount.Add(c.CommissionAmount)
		entry.Count++
	}

	out := make([]DailyEarnings, 0, len(byDay))
	for _, entry := range byDay {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}
