package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
)

// MomoClient initiates mobile-money collection requests. Payments are a
// side effect of booking creation, never a correctness dependency: a
// failed charge does not roll a booking back.
type MomoClient interface {
	// RequestPayment asks the payer's wallet for amount RWF and returns a
	// transaction reference.
	RequestPayment(phone string, amountRWF int, reference string) (string, error)
	// Refund reverses a previous collection.
	Refund(transactionID string) error
}

// MockMomoClient fabricates transaction IDs instead of calling the MTN
// MoMo collection API.
type MockMomoClient struct{}

func NewMockMomoClient() *MockMomoClient {
	return &MockMomoClient{}
}

func (m *MockMomoClient) RequestPayment(phone string, amountRWF int, reference string) (string, error) {
	txID := "MOMO-" + strings.ToUpper(uuid.New().String()[:8])
	log.Printf("💰 [MOCK MOMO] Requesting %d RWF from %s (ref %s) -> %s", amountRWF, phone, reference, txID)
	return txID, nil
}

func (m *MockMomoClient) Refund(transactionID string) error {
	if transactionID == "" {
		return fmt.Errorf("missing transaction id")
	}
	log.Printf("💰 [MOCK MOMO] Refunding transaction %s", transactionID)
	return nil
}
