package utils

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone parses a Rwandan phone number in any common form
// ("0788123456", "788123456", "+250788123456", "250 788 123 456") and
// returns it in E.164 form (+250788123456). Numbers outside the Rwandan
// numbering plan are rejected.
func NormalizePhone(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("phone number is required")
	}

	num, err := phonenumbers.Parse(trimmed, "RW")
	if err != nil {
		return "", fmt.Errorf("invalid phone number: %w", err)
	}

	if !phonenumbers.IsValidNumberForRegion(num, "RW") {
		return "", fmt.Errorf("phone number is not a valid Rwandan number")
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
