package bankdetails

import (
	"strings"
	"testing"
)

func TestValidateAccountNumber(t *testing.T) {
	tests := []struct {
		name     string
		bank     string
		number   string
		wantRule string
	}{
		{"halkbank fifteen digits", "Halkbank AD Skopje", "123456789012345", ""},
		{"halk short form", "HALK", "123-456-789-012-345", ""},
		{"halkbank fourteen digits", "Halkbank", "12345678901234", RuleLength},
		{"other bank twelve digits", "Stopanska Banka", "123456789012", ""},
		{"other bank with spaces", "Komercijalna", "1234 5678 9012", ""},
		{"other bank too short", "Komercijalna", "1234567", RuleLength},
		{"other bank too long", "Komercijalna", "123456789012345678901", RuleLength},
		{"letters", "Komercijalna", "12345678A", RuleFormat},
		{"empty", "Komercijalna", "  ", RuleRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateAccountNumber(tt.bank, tt.number)
			if tt.wantRule == "" {
				if v != nil {
					t.Fatalf("expected valid, got %v", v)
				}
				return
			}
			if v == nil {
				t.Fatalf("expected %s violation, got none", tt.wantRule)
			}
			if v.Rule != tt.wantRule {
				t.Errorf("expected rule %s, got %s", tt.wantRule, v.Rule)
			}
			if v.Field != "account_number" {
				t.Errorf("expected field account_number, got %s", v.Field)
			}
		})
	}
}

func TestValidateIBAN(t *testing.T) {
	tests := []struct {
		name     string
		iban     string
		wantRule string
	}{
		{"valid", "MK07250120000058984", ""},
		{"valid with spaces and lower case", "mk07 2501 2000 0058 984", ""},
		{"valid letter in bank code", "MK983A0123456789012", ""},
		{"empty is allowed", "", ""},
		{"bad checksum", "MK07300000000012345", RuleChecksum},
		{"too short", "MK0725012000005898", RuleLength},
		{"wrong country", "DE07250120000058984", RuleCountry},
		{"letter in account part", "MK0725012000005898A", RuleFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateIBAN(tt.iban)
			if tt.wantRule == "" {
				if v != nil {
					t.Fatalf("expected valid, got %v", v)
				}
				return
			}
			if v == nil {
				t.Fatalf("expected %s violation, got none", tt.wantRule)
			}
			if v.Rule != tt.wantRule {
				t.Errorf("expected rule %s, got %s", tt.wantRule, v.Rule)
			}
		})
	}
}

// Any single-digit change in the account part of a valid IBAN must break the checksum
func TestValidateIBANSingleDigitMutation(t *testing.T) {
	valid := "MK07250120000058984"
	for i := 7; i < len(valid); i++ {
		for d := byte('0'); d <= '9'; d++ {
			if valid[i] == d {
				continue
			}
			mutated := valid[:i] + string(d) + valid[i+1:]
			if v := ValidateIBAN(mutated); v == nil || v.Rule != RuleChecksum {
				t.Fatalf("mutation %s at %d accepted", mutated, i)
			}
		}
	}
}

func TestValidateSWIFT(t *testing.T) {
	valid := []string{"", "STOBMK2X", "stobmk2x", "KOBSMK2XXXX", "TUTNMK22ABC"}
	for _, code := range valid {
		if v := ValidateSWIFT(code); v != nil {
			t.Errorf("expected %q valid, got %v", code, v)
		}
	}

	invalid := []string{"STOB", "STOBMK2", "STOBMK2XX", "1TOBMK2X", "STOBMK2X-XX"}
	for _, code := range invalid {
		if v := ValidateSWIFT(code); v == nil {
			t.Errorf("expected %q invalid", code)
		}
	}
}

func TestMod97(t *testing.T) {
	if got := Mod97("97"); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := Mod97(strings.Repeat("9", 40)); got < 0 || got > 96 {
		t.Errorf("remainder out of range: %d", got)
	}
	if got := Mod97("12a4"); got != -1 {
		t.Errorf("expected -1 for non-digit input, got %d", got)
	}
	if got := Mod97(ibanDigits("MK07250120000058984")); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
}

func BenchmarkValidateIBAN(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ValidateIBAN("MK07250120000058984")
	}
}
