package models

import (
	"testing"

	"github.com/FreightLink/FreightLink/internal/common/apperrors"
)

func TestParseWalletTxnType(t *testing.T) {
	for _, s := range []string{"CREDIT", "DEBIT", "REFUND", "PENALTY"} {
		if _, err := ParseWalletTxnType("test", s); err != nil {
			t.Fatalf("ParseWalletTxnType(%s): %v", s, err)
		}
	}
	for _, s := range []string{"", "credit", "GIFT"} {
		if _, err := ParseWalletTxnType("test", s); !apperrors.IsValidation(err) {
			t.Fatalf("expected validation for %q, got %v", s, err)
		}
	}
}

func TestWalletTxnTypeDirection(t *testing.T) {
	if !TxnCredit.Inbound() || !TxnRefund.Inbound() {
		t.Fatalf("credit/refund must be inbound")
	}
	if TxnDebit.Inbound() || TxnPenalty.Inbound() {
		t.Fatalf("debit/penalty must be outbound")
	}
}

func TestParseStatuses(t *testing.T) {
	if _, err := ParseVehicleStatus("test", "MAINTENANCE"); err != nil {
		t.Fatalf("ParseVehicleStatus: %v", err)
	}
	if _, err := ParseVehicleStatus("test", "PARKED"); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation, got %v", err)
	}
	if _, err := ParseDriverStatus("test", "ON_TRIP"); err != nil {
		t.Fatalf("ParseDriverStatus: %v", err)
	}
	if _, err := ParseDriverStatus("test", "SLEEPING"); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation, got %v", err)
	}
	if _, err := ParseBookingStatus("test", "IN_TRANSIT"); err != nil {
		t.Fatalf("ParseBookingStatus: %v", err)
	}
	if _, err := ParseBookingStatus("test", "DONE"); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation, got %v", err)
	}
	if _, err := ParsePaymentStatus("test", "ON_HOLD"); err != nil {
		t.Fatalf("ParsePaymentStatus: %v", err)
	}
	if _, err := ParsePaymentStatus("test", "PAID"); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation, got %v", err)
	}
}
