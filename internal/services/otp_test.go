package services

import (
	"strings"
	"testing"
)

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q is not 6 digits", code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("code %q contains non-digit", code)
			}
		}
		seen[code] = true
	}
	// 50 draws from a million values colliding into one is broken rand
	if len(seen) < 2 {
		t.Fatal("GenerateCode returned the same code 50 times")
	}
}

func TestOTPMessageContainsCode(t *testing.T) {
	msg := OTPMessage("042137")
	if !strings.Contains(msg, "042137") {
		t.Fatalf("message %q does not contain the code", msg)
	}
}

func TestOTPKeysAreDistinct(t *testing.T) {
	phone := "+250788123456"
	keys := []string{codeKey(phone), resendKey(phone), attemptsKey(phone)}
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[i] == keys[j] {
				t.Fatalf("key collision: %q", keys[i])
			}
		}
	}
}
