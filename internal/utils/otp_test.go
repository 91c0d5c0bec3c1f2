package utils

import (
	"regexp"
	"testing"
)

func TestGenerateOtpCode(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 1000; i++ {
		code, err := GenerateOtpCode()
		if err != nil {
			t.Fatalf("GenerateOtpCode failed: %v", err)
		}
		if !pattern.MatchString(code) {
			t.Fatalf("expected 6 digits, got %q", code)
		}
	}
}
