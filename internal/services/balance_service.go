package services

import (
	"context"
	"fmt"

	"marketplace/internal/models"
	"marketplace/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// moneyPlaces is the precision used when amounts leave the service layer
const moneyPlaces = 2

// DashboardStats summarises an affiliate's ledger. Amounts are rounded to two
// places; CanWithdraw is computed before rounding.
type DashboardStats struct {
	PendingAmount     decimal.Decimal `json:"pending_amount"`
	PendingCount      int64           `json:"pending_count"`
	ApprovedAmount    decimal.Decimal `json:"approved_amount"`
	ApprovedCount     int64           `json:"approved_count"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	PaidCount         int64           `json:"paid_count"`
	TotalEarnings     decimal.Decimal `json:"total_earnings"`
	AvailableBalance  decimal.Decimal `json:"available_balance"`
	MinimumWithdrawal decimal.Decimal `json:"minimum_withdrawal"`
	CanWithdraw       bool            `json:"can_withdraw"`
	ReferralCode      string          `json:"referral_code,omitempty"`
	TotalClicks       int64           `json:"total_clicks"`
	TotalOrders       int64           `json:"total_orders"`
}

type BalanceService struct {
	db       *gorm.DB
	repo     *repository.Repository
	settings repository.SettingsRepository
}

func NewBalanceService(db *gorm.DB, settings repository.SettingsRepository) *BalanceService {
	return &BalanceService{
		db:       db,
		repo:     repository.NewRepository(db),
		settings: settings,
	}
}

// AvailableBalance is approved commissions minus in-flight withdrawals,
// never below zero. It is recomputed from rows on every call.
func (s *BalanceService) AvailableBalance(ctx context.Context, affiliateID uint) (decimal.Decimal, error) {
	if _, err := requireAffiliate(ctx, s.repo, affiliateID); err != nil {
		return decimal.Zero, err
	}
	return availableBalance(s.db.WithContext(ctx), affiliateID)
}

// availableBalance runs on db, which may be an open transaction
func availableBalance(db *gorm.DB, affiliateID uint) (decimal.Decimal, error) {
	var approved, inFlight decimal.Decimal

	row := db.Model(&models.Commission{}).
		Where("affiliate_id = ? AND status = ?", affiliateID, models.CommissionStatusApproved).
		Select("COALESCE(SUM(commission_amount), 0)").Row()
	if err := row.Scan(&approved); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum approved commissions: %w", err)
	}

	row = db.Model(&models.Withdrawal{}).
		Where("affiliate_id = ? AND status IN ?", affiliateID, models.InFlightWithdrawalStatuses).
		Select("COALESCE(SUM(amount), 0)").Row()
	if err := row.Scan(&inFlight); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum withdrawals: %w", err)
	}

	balance := approved.Sub(inFlight)
	if balance.IsNegative() {
		return decimal.Zero, nil
	}
	return balance, nil
}

type commissionTotal struct {
	Status models.CommissionStatus
	Total  decimal.Decimal
	Count  int64
}

// DashboardStats aggregates commission totals, balance and referral counters
func (s *BalanceService) DashboardStats(ctx context.Context, affiliateID uint) (*DashboardStats, error) {
	if _, err := requireAffiliate(ctx, s.repo, affiliateID); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var totals []commissionTotal
	err := db.Model(&models.Commission{}).
		Select("status, COALESCE(SUM(commission_amount), 0) AS total, COUNT(*) AS count").
		Where("affiliate_id = ?", affiliateID).
		Group("status").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate commissions: %w", err)
	}

	stats := &DashboardStats{}
	pending, approved, paid := decimal.Zero, decimal.Zero, decimal.Zero
	for _, t := range totals {
		switch t.Status {
		case models.CommissionStatusPending:
			pending, stats.PendingCount = t.Total, t.Count
		case models.CommissionStatusApproved:
			approved, stats.ApprovedCount = t.Total, t.Count
		case models.CommissionStatusPaid:
			paid, stats.PaidCount = t.Total, t.Count
		}
	}

	available, err := availableBalance(db, affiliateID)
	if err != nil {
		return nil, err
	}
	minimum, err := s.settings.MinimumWithdrawal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load minimum withdrawal: %w", err)
	}

	stats.PendingAmount = pending.Round(moneyPlaces)
	stats.ApprovedAmount = approved.Round(moneyPlaces)
	stats.PaidAmount = paid.Round(moneyPlaces)
	stats.TotalEarnings = approved.Add(paid).Round(moneyPlaces)
	stats.AvailableBalance = available.Round(moneyPlaces)
	stats.MinimumWithdrawal = minimum.Round(moneyPlaces)
	stats.CanWithdraw = available.GreaterThanOrEqual(minimum)

	var code models.ReferralCode
	err = db.Where("affiliate_id = ? AND is_active = ?", affiliateID, true).Limit(1).Find(&code).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load referral code: %w", err)
	}
	stats.ReferralCode = code.Code

	var counters struct {
		Clicks int64
		Orders int64
	}
	err = db.Model(&models.ReferralCode{}).
		Select("COALESCE(SUM(total_clicks), 0) AS clicks, COALESCE(SUM(total_orders), 0) AS orders").
		Where("affiliate_id = ?", affiliateID).
		Scan(&counters).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum referral counters: %w", err)
	}
	stats.TotalClicks = counters.Clicks
	stats.TotalOrders = counters.Orders

	return stats, nil
}
