package utils

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58"
)

// DefaultReferralCodePrefix is used when no prefix is configured
const DefaultReferralCodePrefix = "AFF"

const referralRandomBytes = 6

// GenerateReferralCode creates a code in the format "PREFIX-TIME-RANDOM" where
// TIME is the unix time in upper-case base36 and RANDOM is 6 random bytes in base58
func GenerateReferralCode(prefix string, now time.Time) (string, error) {
	if prefix == "" {
		prefix = DefaultReferralCodePrefix
	}

	b := make([]byte, referralRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random suffix: %w", err)
	}

	timeToken := strings.ToUpper(strconv.FormatInt(now.Unix(), 36))

	return fmt.Sprintf("%s-%s-%s", strings.ToUpper(prefix), timeToken, base58.Encode(b)), nil
}
