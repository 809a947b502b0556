package services

import (
	"strings"
	"testing"
)

func TestMockMomoTransactionIDs(t *testing.T) {
	client := NewMockMomoClient()

	tx1, err := client.RequestPayment("+250788123456", 5000, "booking-1")
	if err != nil {
		t.Fatalf("RequestPayment: %v", err)
	}
	tx2, err := client.RequestPayment("+250788123456", 5000, "booking-2")
	if err != nil {
		t.Fatalf("RequestPayment: %v", err)
	}

	if !strings.HasPrefix(tx1, "MOMO-") {
		t.Fatalf("transaction id %q missing MOMO- prefix", tx1)
	}
	if tx1 == tx2 {
		t.Fatalf("two payments produced the same transaction id %q", tx1)
	}

	if err := client.Refund(tx1); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if err := client.Refund(""); err == nil {
		t.Fatal("Refund with empty transaction id should fail")
	}
}
