package services

import (
	"fmt"
	"log"
)

// SMSSender delivers transactional SMS. The real gateway integration is
// not wired up; MockSMSSender logs instead of sending, which is enough for
// every caller since delivery is fire-and-forget.
type SMSSender interface {
	Send(phone, message string) error
}

type MockSMSSender struct{}

func NewMockSMSSender() *MockSMSSender {
	return &MockSMSSender{}
}

func (m *MockSMSSender) Send(phone, message string) error {
	log.Printf("📱 [MOCK SMS] To %s: %s", phone, message)
	return nil
}

// OTPMessage formats the login code SMS body.
func OTPMessage(code string) string {
	return fmt.Sprintf("Your Tugende login code is %s. It expires in 5 minutes.", code)
}
