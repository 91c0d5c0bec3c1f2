package utils

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

var referralCodePattern = regexp.MustCompile(`^AFF-[0-9A-Z]+-[1-9A-HJ-NP-Za-km-z]+$`)

func TestGenerateReferralCodeFormat(t *testing.T) {
	now := time.Unix(1700000000, 0)
	code, err := GenerateReferralCode("", now)
	if err != nil {
		t.Fatalf("GenerateReferralCode failed: %v", err)
	}

	if !referralCodePattern.MatchString(code) {
		t.Fatalf("unexpected code format: %s", code)
	}
	if !strings.HasPrefix(code, "AFF-S44WE8-") {
		t.Errorf("expected base36 time token S44WE8, got %s", code)
	}
	if len(code) > 40 {
		t.Errorf("code longer than column size: %d", len(code))
	}
}

func TestGenerateReferralCodeCustomPrefix(t *testing.T) {
	code, err := GenerateReferralCode("mkt", time.Now())
	if err != nil {
		t.Fatalf("GenerateReferralCode failed: %v", err)
	}
	if !strings.HasPrefix(code, "MKT-") {
		t.Errorf("expected MKT- prefix, got %s", code)
	}
}

func TestGenerateReferralCodeUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		code, err := GenerateReferralCode("", now)
		if err != nil {
			t.Fatalf("GenerateReferralCode failed: %v", err)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code after %d attempts: %s", i, code)
		}
		seen[code] = struct{}{}
	}
}
