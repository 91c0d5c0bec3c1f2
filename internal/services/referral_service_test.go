package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"marketplace/internal/events"
	"marketplace/internal/lock"
	"marketplace/internal/models"

	"github.com/shopspring/decimal"
)

func TestGetOrCreateCodeIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewReferralService(db, lock.NewKeyedMutex(), nil, "AFF")
	affiliate := createUser(t, db, models.UserTypeAffiliate)

	first, err := service.GetOrCreateCode(ctx, affiliate.ID)
	if err != nil {
		t.Fatalf("GetOrCreateCode failed: %v", err)
	}
	if !strings.HasPrefix(first.Code, "AFF-") {
		t.Errorf("unexpected code format: %s", first.Code)
	}

	second, err := service.GetOrCreateCode(ctx, affiliate.ID)
	if err != nil {
		t.Fatalf("GetOrCreateCode failed: %v", err)
	}
	if second.ID != first.ID || second.Code != first.Code {
		t.Errorf("expected the same code, got %s and %s", first.Code, second.Code)
	}

	var count int64
	db.Model(&models.ReferralCode{}).Where("affiliate_id = ?", affiliate.ID).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 referral code, got %d", count)
	}
}

func TestGetOrCreateCodeConcurrent(t *testing.T) {
	db := setupTestDB(t)
	service := NewReferralService(db, lock.NewKeyedMutex(), nil, "")
	affiliate := createUser(t, db, models.UserTypeAffiliate)

	var wg sync.WaitGroup
	codes := make([]string, 8)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rc, err := service.GetOrCreateCode(context.Background(), affiliate.ID)
			if err != nil {
				t.Errorf("GetOrCreateCode failed: %v", err)
				return
			}
			codes[i] = rc.Code
		}(i)
	}
	wg.Wait()

	for _, c := range codes[1:] {
		if c != codes[0] {
			t.Fatalf("concurrent calls minted different codes: %v", codes)
		}
	}
}

func TestGetOrCreateCodeRoles(t *testing.T) {
	db := setupTestDB(t)
	service := NewReferralService(db, nil, nil, "")
	buyer := createUser(t, db, models.UserTypeBuyer)

	if _, err := service.GetOrCreateCode(context.Background(), buyer.ID); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
	if _, err := service.GetOrCreateCode(context.Background(), 424242); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetOrCreateCodeCollisions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewReferralService(db, nil, nil, "")

	owner := createUser(t, db, models.UserTypeAffiliate)
	taken := models.ReferralCode{AffiliateID: owner.ID, Code: "AFF-TAKEN", IsActive: false, TotalEarnings: decimal.Zero}
	if err := db.Create(&taken).Error; err != nil {
		t.Fatalf("failed to seed code: %v", err)
	}

	calls := 0
	service.generate = func(string, time.Time) (string, error) {
		calls++
		if calls < 3 {
			return "AFF-TAKEN", nil
		}
		return "AFF-FRESH", nil
	}

	affiliate := createUser(t, db, models.UserTypeAffiliate)
	rc, err := service.GetOrCreateCode(ctx, affiliate.ID)
	if err != nil {
		t.Fatalf("GetOrCreateCode failed: %v", err)
	}
	if rc.Code != "AFF-FRESH" || calls != 3 {
		t.Errorf("expected AFF-FRESH after 3 attempts, got %s after %d", rc.Code, calls)
	}

	service.generate = func(string, time.Time) (string, error) { return "AFF-TAKEN", nil }
	other := createUser(t, db, models.UserTypeAffiliate)
	if _, err := service.GetOrCreateCode(ctx, other.ID); !errors.Is(err, ErrGenerationExhausted) {
		t.Errorf("expected ErrGenerationExhausted, got %v", err)
	}
}

func TestGeneratedCodesAreUniqueAcrossAffiliates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewReferralService(db, nil, nil, "")

	seen := make(map[string]uint)
	for i := 0; i < 200; i++ {
		affiliate := createUser(t, db, models.UserTypeAffiliate)
		rc, err := service.GetOrCreateCode(ctx, affiliate.ID)
		if err != nil {
			t.Fatalf("GetOrCreateCode failed: %v", err)
		}
		if owner, dup := seen[rc.Code]; dup {
			t.Fatalf("code %s issued to %d and %d", rc.Code, owner, affiliate.ID)
		}
		seen[rc.Code] = affiliate.ID
	}
}

func TestResolveAffiliateAndRecordClick(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	publisher := &recordingPublisher{}
	service := NewReferralService(db, nil, publisher, "")
	affiliate := createUser(t, db, models.UserTypeAffiliate)

	rc, err := service.GetOrCreateCode(ctx, affiliate.ID)
	if err != nil {
		t.Fatalf("GetOrCreateCode failed: %v", err)
	}

	owner, err := service.ResolveAffiliate(ctx, rc.Code)
	if err != nil || owner == nil || owner.ID != affiliate.ID {
		t.Fatalf("expected affiliate %d, got %+v (err %v)", affiliate.ID, owner, err)
	}

	missing, err := service.ResolveAffiliate(ctx, "AFF-NOPE")
	if err != nil || missing != nil {
		t.Errorf("expected nil for unknown code, got %+v (err %v)", missing, err)
	}

	productID := uint(7)
	service.RecordClick(ctx, rc.Code, &productID)
	service.RecordClick(ctx, rc.Code, nil)
	service.RecordClick(ctx, "AFF-NOPE", nil)

	var reloaded models.ReferralCode
	db.First(&reloaded, rc.ID)
	if reloaded.TotalClicks != 2 {
		t.Errorf("expected 2 clicks, got %d", reloaded.TotalClicks)
	}

	var clicks int64
	db.Model(&models.ReferralClick{}).Count(&clicks)
	if clicks != 2 {
		t.Errorf("expected 2 click rows, got %d", clicks)
	}
	if n := publisher.count(events.EventReferralClicked); n != 2 {
		t.Errorf("expected 2 click events, got %d", n)
	}
}

func TestRecordClickIgnoresInactiveCode(t *testing.T) {
	db := setupTestDB(t)
	service := NewReferralService(db, nil, nil, "")
	affiliate := createUser(t, db, models.UserTypeAffiliate)

	inactive := models.ReferralCode{AffiliateID: affiliate.ID, Code: "AFF-OLD", IsActive: true, TotalEarnings: decimal.Zero}
	db.Create(&inactive)
	db.Model(&inactive).Update("is_active", false)

	service.RecordClick(context.Background(), "AFF-OLD", nil)

	var clicks int64
	db.Model(&models.ReferralClick{}).Count(&clicks)
	if clicks != 0 {
		t.Errorf("expected no clicks for inactive code, got %d", clicks)
	}
}
