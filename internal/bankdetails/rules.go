// Package bankdetails validates payout bank details: account numbers, IBANs
// and SWIFT/BIC codes. Rule failures are returned as Violations, not errors.
package bankdetails

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	RuleRequired      = "required"
	RuleFormat        = "format"
	RuleLength        = "length"
	RuleCountry       = "country"
	RuleChecksum      = "checksum"
	RuleMaxLength     = "max_length"
	ibanLength        = 19
	ibanCountryPrefix = "MK"
	knownBankDigits   = 15
	minAccountDigits  = 8
	maxAccountDigits  = 20
)

// fifteenDigitBanks are matched case-insensitively as substrings of the bank name
var fifteenDigitBanks = []string{"halkbank", "halk"}

var (
	digitsPattern = regexp.MustCompile(`^\d+$`)
	ibanPattern   = regexp.MustCompile(`^MK\d{2}[A-Z0-9]{3}\d{12}$`)
	swiftPattern  = regexp.MustCompile(`^[A-Z]{4}[A-Z]{2}[A-Z0-9]{2}([A-Z0-9]{3})?$`)
	separators    = strings.NewReplacer(" ", "", "-", "")
)

// Violation is a single failed rule
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// NormalizeAccountNumber strips spaces and dashes
func NormalizeAccountNumber(number string) string {
	return separators.Replace(strings.TrimSpace(number))
}

// NormalizeIBAN strips spaces and upper-cases
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(iban), " ", ""))
}

// NormalizeSWIFT trims and upper-cases
func NormalizeSWIFT(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RequiresFifteenDigits reports whether bankName belongs to a bank family
// with fixed 15-digit account numbers
func RequiresFifteenDigits(bankName string) bool {
	name := strings.ToLower(bankName)
	for _, family := range fifteenDigitBanks {
		if strings.Contains(name, family) {
			return true
		}
	}
	return false
}

// ValidateAccountNumber checks the account number against the bank's format
func ValidateAccountNumber(bankName, number string) *Violation {
	clean := NormalizeAccountNumber(number)
	if clean == "" {
		return &Violation{Field: "account_number", Rule: RuleRequired, Message: "account number is required"}
	}
	if !digitsPattern.MatchString(clean) {
		return &Violation{Field: "account_number", Rule: RuleFormat, Message: "account number must contain digits only"}
	}
	if RequiresFifteenDigits(bankName) {
		if len(clean) != knownBankDigits {
			return &Violation{
				Field:   "account_number",
				Rule:    RuleLength,
				Message: fmt.Sprintf("account number for %s must be exactly %d digits", bankName, knownBankDigits),
			}
		}
		return nil
	}
	if len(clean) < minAccountDigits || len(clean) > maxAccountDigits {
		return &Violation{
			Field:   "account_number",
			Rule:    RuleLength,
			Message: fmt.Sprintf("account number must be between %d and %d digits", minAccountDigits, maxAccountDigits),
		}
	}
	return nil
}

// ValidateIBAN checks structure and the MOD-97-10 checksum. An empty IBAN is valid.
func ValidateIBAN(iban string) *Violation {
	clean := NormalizeIBAN(iban)
	if clean == "" {
		return nil
	}
	if len(clean) != ibanLength {
		return &Violation{Field: "iban", Rule: RuleLength, Message: fmt.Sprintf("IBAN must be exactly %d characters", ibanLength)}
	}
	if !strings.HasPrefix(clean, ibanCountryPrefix) {
		return &Violation{Field: "iban", Rule: RuleCountry, Message: fmt.Sprintf("IBAN must start with %s", ibanCountryPrefix)}
	}
	if !ibanPattern.MatchString(clean) {
		return &Violation{Field: "iban", Rule: RuleFormat, Message: "IBAN format is invalid"}
	}
	if Mod97(ibanDigits(clean)) != 1 {
		return &Violation{Field: "iban", Rule: RuleChecksum, Message: "IBAN checksum is invalid"}
	}
	return nil
}

// ValidateSWIFT checks an 8 or 11 character BIC. An empty code is valid.
func ValidateSWIFT(code string) *Violation {
	clean := NormalizeSWIFT(code)
	if clean == "" {
		return nil
	}
	if !swiftPattern.MatchString(clean) {
		return &Violation{Field: "swift", Rule: RuleFormat, Message: "SWIFT/BIC must be 8 or 11 characters (bank, country, location, optional branch)"}
	}
	return nil
}

// ibanDigits moves the first four characters to the end and expands letters
// to their numeric value (A=10 ... Z=35)
func ibanDigits(iban string) string {
	rearranged := iban[4:] + iban[:4]
	var b strings.Builder
	b.Grow(len(rearranged) * 2)
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			b.WriteString(strconv.Itoa(int(r-'A') + 10))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Mod97 reduces a decimal digit string modulo 97 in 9-digit chunks so no
// big-integer arithmetic is needed. Non-digit input yields -1.
func Mod97(digits string) int {
	remainder := ""
	for i := 0; i < len(digits); {
		end := i + 9 - len(remainder)
		if end > len(digits) {
			end = len(digits)
		}
		n, err := strconv.Atoi(remainder + digits[i:end])
		if err != nil {
			return -1
		}
		remainder = strconv.Itoa(n % 97)
		i = end
	}
	if remainder == "" {
		return 0
	}
	n, _ := strconv.Atoi(remainder)
	return n
}
