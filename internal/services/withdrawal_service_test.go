package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"marketplace/internal/bankdetails"
	"marketplace/internal/events"
	"marketplace/internal/lock"
	"marketplace/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type withdrawalFixture struct {
	db        *gorm.DB
	service   *WithdrawalService
	balance   *BalanceService
	publisher *recordingPublisher
	mailer    *recordingMailer
	affiliate *models.User
}

func newWithdrawalFixture(t *testing.T, approved string) *withdrawalFixture {
	t.Helper()
	db := setupTestDB(t)
	settings := setupSettings(t, db, 1000)
	publisher := &recordingPublisher{}
	m := &recordingMailer{}

	f := &withdrawalFixture{
		db:        db,
		service:   NewWithdrawalService(db, settings, lock.NewKeyedMutex(), publisher, m),
		balance:   NewBalanceService(db, settings),
		publisher: publisher,
		mailer:    m,
		affiliate: createUser(t, db, models.UserTypeAffiliate),
	}
	if approved != "" {
		createCommission(t, db, f.affiliate.ID, approved, models.CommissionStatusApproved, time.Now())
	}
	return f
}

func TestRequestWithdrawalBelowThreshold(t *testing.T) {
	f := newWithdrawalFixture(t, "5000")

	_, err := f.service.RequestWithdrawal(context.Background(), f.affiliate.ID, WithdrawalRequest{Amount: decimal.NewFromInt(500)})
	if !errors.Is(err, ErrBelowThreshold) {
		t.Fatalf("expected ErrBelowThreshold, got %v", err)
	}
	var bt *BelowThresholdError
	if !errors.As(err, &bt) || !bt.Minimum.Equal(decimal.NewFromInt(1000)) || !bt.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected amount 500 and minimum 1000, got %+v", bt)
	}
}

func TestRequestWithdrawalInsufficientBalance(t *testing.T) {
	f := newWithdrawalFixture(t, "1000")

	_, err := f.service.RequestWithdrawal(context.Background(), f.affiliate.ID, WithdrawalRequest{Amount: decimal.NewFromInt(1500)})
	var ib *InsufficientBalanceError
	if !errors.As(err, &ib) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if !ib.Available.Equal(decimal.NewFromInt(1000)) || !ib.Amount.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("unexpected error values: %+v", ib)
	}
}

func TestRequestWithdrawalInvalidAmountAndRole(t *testing.T) {
	f := newWithdrawalFixture(t, "1000")
	ctx := context.Background()

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		if _, err := f.service.RequestWithdrawal(ctx, f.affiliate.ID, WithdrawalRequest{Amount: amount}); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}

	buyer := createUser(t, f.db, models.UserTypeBuyer)
	if _, err := f.service.RequestWithdrawal(ctx, buyer.ID, WithdrawalRequest{Amount: decimal.NewFromInt(1000)}); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
}

func TestRequestWithdrawalExactBalance(t *testing.T) {
	f := newWithdrawalFixture(t, "1000")
	ctx := context.Background()

	w, err := f.service.RequestWithdrawal(ctx, f.affiliate.ID, WithdrawalRequest{Amount: decimal.NewFromInt(1000)})
	if err != nil {
		t.Fatalf("RequestWithdrawal failed: %v", err)
	}
	if w.Status != models.WithdrawalStatusPending {
		t.Errorf("expected PENDING, got %s", w.Status)
	}

	balance, err := f.balance.AvailableBalance(ctx, f.affiliate.ID)
	if err != nil {
		t.Fatalf("AvailableBalance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("expected balance 0, got %s", balance)
	}

	if n := f.publisher.count(events.EventWithdrawalRequested); n != 1 {
		t.Errorf("expected 1 requested event, got %d", n)
	}
	if len(f.mailer.notices) != 1 {
		t.Errorf("expected 1 admin notice, got %d", len(f.mailer.notices))
	}
}

func TestRequestWithdrawalSurvivesNotificationFailures(t *testing.T) {
	f := newWithdrawalFixture(t, "2000")
	f.publisher.fail = true
	f.mailer.fail = true

	if _, err := f.service.RequestWithdrawal(context.Background(), f.affiliate.ID, WithdrawalRequest{Amount: decimal.NewFromInt(1000)}); err != nil {
		t.Fatalf("notification failures must not fail the request: %v", err)
	}

	var count int64
	f.db.Model(&models.Withdrawal{}).Count(&count)
	if count != 1 {
		t.Errorf("expected withdrawal to be stored, got %d rows", count)
	}
}

func TestRequestWithdrawalDefaultsToBankTransfer(t *testing.T) {
	f := newWithdrawalFixture(t, "1000")
	ctx := context.Background()

	pms := NewPaymentMethodService(f.db, nil, nil, nil, time.Minute)
	_, err := pms.SavePaymentMethod(ctx, f.affiliate.ID, bankdetails.Input{
		BankName:          "Komercijalna Banka",
		AccountNumber:     "300000000012345",
		AccountHolderName: "Ana Petrovska",
	}, "")
	if err != nil {
		t.Fatalf("SavePaymentMethod failed: %v", err)
	}

	w, err := f.service.RequestWithdrawal(ctx, f.affiliate.ID, WithdrawalRequest{Amount: decimal.NewFromInt(1000)})
	if err != nil {
		t.Fatalf("RequestWithdrawal failed: %v", err)
	}
	if w.PaymentMethod != PaymentMethodBankTransfer {
		t.Errorf("expected bank_transfer, got %q", w.PaymentMethod)
	}
	if w.PaymentDetails != "Komercijalna Banka ***********2345" {
		t.Errorf("unexpected payment details %q", w.PaymentDetails)
	}
}

// Concurrent requests must never spend more than the available balance
func TestRequestWithdrawalConcurrent(t *testing.T) {
	f := newWithdrawalFixture(t, "3000")
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.RequestWithdrawal(ctx, f.affiliate.ID, WithdrawalRequest{Amount: decimal.NewFromInt(1000)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientBalance):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 3 || rejected != 3 {
		t.Errorf("expected 3 successes and 3 rejections, got %d and %d", succeeded, rejected)
	}

	balance, _ := f.balance.AvailableBalance(ctx, f.affiliate.ID)
	if !balance.IsZero() {
		t.Errorf("expected balance 0, got %s", balance)
	}
}

func TestHistory(t *testing.T) {
	f := newWithdrawalFixture(t, "5000")
	ctx := context.Background()

	var ids []uint
	for i := 0; i < 3; i++ {
		w, err := f.service.RequestWithdrawal(ctx, f.affiliate.ID, WithdrawalRequest{Amount: decimal.NewFromInt(1000)})
		if err != nil {
			t.Fatalf("RequestWithdrawal failed: %v", err)
		}
		ids = append(ids, w.ID)
	}
	if _, err := f.service.UpdateWithdrawalStatus(ctx, ids[0], models.WithdrawalStatusRejected, "duplicate"); err != nil {
		t.Fatalf("UpdateWithdrawalStatus failed: %v", err)
	}

	page, err := f.service.History(ctx, f.affiliate.ID, 1, 2, nil)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if page.Pagination.Total != 3 || page.Pagination.TotalPages != 2 || len(page.Items) != 2 {
		t.Errorf("unexpected pagination: %+v", page.Pagination)
	}
	if page.Items[0].ID != ids[2] {
		t.Errorf("expected newest first, got %d", page.Items[0].ID)
	}

	pending := models.WithdrawalStatusPending
	filtered, err := f.service.History(ctx, f.affiliate.ID, 1, 10, &pending)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if filtered.Pagination.Total != 2 {
		t.Errorf("expected 2 pending withdrawals, got %d", filtered.Pagination.Total)
	}
}

func TestUpdateWithdrawalStatus(t *testing.T) {
	f := newWithdrawalFixture(t, "2000")
	ctx := context.Background()

	w, err := f.service.RequestWithdrawal(ctx, f.affiliate.ID, WithdrawalRequest{Amount: decimal.NewFromInt(1000)})
	if err != nil {
		t.Fatalf("RequestWithdrawal failed: %v", err)
	}

	if _, err := f.service.UpdateWithdrawalStatus(ctx, w.ID, models.WithdrawalStatusPaid, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("PENDING -> PAID: expected ErrInvalidTransition, got %v", err)
	}

	approved, err := f.service.UpdateWithdrawalStatus(ctx, w.ID, models.WithdrawalStatusApproved, "ok")
	if err != nil {
		t.Fatalf("PENDING -> APPROVED failed: %v", err)
	}
	if approved.ProcessedAt == nil || approved.Notes != "ok" {
		t.Errorf("expected processed_at and notes set, got %+v", approved)
	}

	// APPROVED still holds the balance
	balance, _ := f.balance.AvailableBalance(ctx, f.affiliate.ID)
	if !balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected 1000 available, got %s", balance)
	}

	if _, err := f.service.UpdateWithdrawalStatus(ctx, w.ID, models.WithdrawalStatusRejected, "bank refused"); err != nil {
		t.Fatalf("APPROVED -> REJECTED failed: %v", err)
	}
	balance, _ = f.balance.AvailableBalance(ctx, f.affiliate.ID)
	if !balance.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("rejected withdrawal must release the balance, got %s", balance)
	}

	if _, err := f.service.UpdateWithdrawalStatus(ctx, w.ID, models.WithdrawalStatusPending, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("REJECTED -> PENDING: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.service.UpdateWithdrawalStatus(ctx, 98765, models.WithdrawalStatusApproved, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if n := f.publisher.count(events.EventWithdrawalStatusChanged); n != 2 {
		t.Errorf("expected 2 status events, got %d", n)
	}
}
