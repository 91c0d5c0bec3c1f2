package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrSettingsMissing means EnsureDefaults was never run
var ErrSettingsMissing = errors.New("platform settings not initialised")

// SettingsRepository supplies platform-wide settings to the balance and
// withdrawal components.
type SettingsRepository interface {
	EnsureDefaults(ctx context.Context) error
	Get(ctx context.Context) (*models.PlatformSettings, error)
	MinimumWithdrawal(ctx context.Context) (decimal.Decimal, error)
	UpdateMinimumWithdrawal(ctx context.Context, amount decimal.Decimal) (*models.PlatformSettings, error)
}

type gormSettingsRepository struct {
	db                 *gorm.DB
	defaultMinWithdraw decimal.Decimal
}

// NewSettingsRepository returns a GORM-backed SettingsRepository. defaultMin
// seeds the row created by EnsureDefaults.
func NewSettingsRepository(db *gorm.DB, defaultMin decimal.Decimal) SettingsRepository {
	return &gormSettingsRepository{db: db, defaultMinWithdraw: defaultMin}
}

// EnsureDefaults creates the settings row if it does not exist yet. It is run
// once at startup or migration time, never on the read path.
func (r *gormSettingsRepository) EnsureDefaults(ctx context.Context) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PlatformSettings{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count platform settings: %w", err)
	}
	if count > 0 {
		return nil
	}

	settings := models.PlatformSettings{
		MinimumWithdrawal: r.defaultMinWithdraw,
		UpdatedAt:         time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&settings).Error; err != nil {
		return fmt.Errorf("failed to create platform settings: %w", err)
	}
	return nil
}

func (r *gormSettingsRepository) Get(ctx context.Context) (*models.PlatformSettings, error) {
	var settings models.PlatformSettings
	err := r.db.WithContext(ctx).Order("id ASC").First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSettingsMissing
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *gormSettingsRepository) MinimumWithdrawal(ctx context.Context) (decimal.Decimal, error) {
	settings, err := r.Get(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return settings.MinimumWithdrawal, nil
}

func (r *gormSettingsRepository) UpdateMinimumWithdrawal(ctx context.Context, amount decimal.Decimal) (*models.PlatformSettings, error) {
	settings, err := r.Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(settings).Updates(map[string]interface{}{
		"minimum_withdrawal": amount,
		"updated_at":         time.Now().UTC(),
	}).Error; err != nil {
		return nil, err
	}
	return r.Get(ctx)
}
