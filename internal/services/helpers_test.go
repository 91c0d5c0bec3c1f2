package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"marketplace/internal/database"
	"marketplace/internal/models"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a private in-memory database. A single connection keeps
// SQLite transactions serialised the way row locks do on Postgres.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func setupSettings(t *testing.T, db *gorm.DB, minimum int64) repository.SettingsRepository {
	t.Helper()
	settings := repository.NewSettingsRepository(db, decimal.NewFromInt(minimum))
	if err := settings.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("EnsureDefaults failed: %v", err)
	}
	return settings
}

func createUser(t *testing.T, db *gorm.DB, userType models.UserType) *models.User {
	t.Helper()
	user := &models.User{
		Email:    uuid.NewString() + "@example.com",
		Name:     "Test " + string(userType),
		UserType: userType,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func createProduct(t *testing.T, db *gorm.DB, price, commission string) *models.Product {
	t.Helper()
	product := &models.Product{
		SellerID:            1,
		Name:                "Product " + uuid.NewString()[:8],
		Price:               decimal.RequireFromString(price),
		AffiliateCommission: decimal.RequireFromString(commission),
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("failed to create product: %v", err)
	}
	return product
}

type testLine struct {
	product  *models.Product
	quantity int
}

func createOrder(t *testing.T, db *gorm.DB, referralCode *string, lines ...testLine) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:  "ORD-" + uuid.NewString()[:8],
		BuyerID:      999,
		Status:       models.OrderStatusPending,
		ReferralCode: referralCode,
	}
	for _, l := range lines {
		item := models.OrderItem{Quantity: l.quantity, Price: decimal.NewFromInt(10)}
		if l.product != nil {
			item.ProductID = &l.product.ID
			item.Price = l.product.Price
		}
		order.Items = append(order.Items, item)
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	return order
}

var ledgerSeq atomic.Int64

func createCommission(t *testing.T, db *gorm.DB, affiliateID uint, amount string, status models.CommissionStatus, createdAt time.Time) *models.Commission {
	t.Helper()
	c := &models.Commission{
		AffiliateID:       affiliateID,
		OrderID:           uint(ledgerSeq.Add(1)),
		OrderItemID:       uint(ledgerSeq.Add(1)),
		ProductID:         1,
		OrderItemAmount:   decimal.RequireFromString(amount).Mul(decimal.NewFromInt(10)),
		CommissionPercent: decimal.NewFromInt(10),
		CommissionAmount:  decimal.RequireFromString(amount),
		Quantity:          1,
		Status:            status,
		CreatedAt:         createdAt.UTC(),
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("failed to create commission: %v", err)
	}
	return c
}

func strPtr(s string) *string { return &s }

type recordedEvent struct {
	eventType string
	key       string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	fail   bool
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ []byte, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{eventType: eventType, key: key})
	if p.fail {
		return errors.New("broker down")
	}
	return nil
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}

type sentOtp struct {
	to   string
	code string
}

type recordingMailer struct {
	mu      sync.Mutex
	otps    []sentOtp
	notices []string
	fail    bool
}

func (m *recordingMailer) SendOtp(to, _, code string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otps = append(m.otps, sentOtp{to: to, code: code})
	if m.fail {
		return errors.New("smtp unavailable")
	}
	return nil
}

func (m *recordingMailer) SendAdminNotice(subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, subject)
	if m.fail {
		return errors.New("smtp unavailable")
	}
	return nil
}
