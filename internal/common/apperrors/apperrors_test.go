package apperrors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindPredicates(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{NotFound("booking.Get", "booking", "b-1"), KindNotFound},
		{Conflict("payment.Release", "payment", "p-1", "already released"), KindConflict},
		{InsufficientFunds("wallet.Debit", "owner-1", 100, 1), KindInsufficientFunds},
		{InvalidTransition("booking.Cancel", "booking", "b-1", "DELIVERED", "CANCELLED"), KindInvalidTransition},
		{Validationf("wallet.Apply", "amount must be positive"), KindValidation},
		{Storage("wallet.Apply", errors.New("connection refused")), KindStorageUnavailable},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.kind {
			t.Fatalf("KindOf(%v) = %s, want %s", tc.err, got, tc.kind)
		}
	}

	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("plain error must have no kind")
	}
	if KindOf(nil) != "" {
		t.Fatalf("nil must have no kind")
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := NotFound("booking.Get", "booking", "b-1")
	wrapped := fmt.Errorf("confirm failed: %w", inner)
	if !IsNotFound(wrapped) {
		t.Fatalf("kind must survive %%w wrapping")
	}
}

func TestWrap(t *testing.T) {
	if Wrap("op", nil) != nil {
		t.Fatalf("Wrap(nil) must be nil")
	}

	// 业务错误原样透传
	biz := Conflict("payment.Release", "payment", "p-1", "already released")
	if got := Wrap("payment.Release", biz); got != biz {
		t.Fatalf("business error must pass through, got %v", got)
	}

	// 非业务错误归入存储故障
	raw := errors.New("driver: bad connection")
	wrapped := Wrap("wallet.Apply", raw)
	if !IsStorageUnavailable(wrapped) {
		t.Fatalf("expected storage kind, got %v", wrapped)
	}
	if !errors.Is(wrapped, raw) {
		t.Fatalf("underlying error must be reachable via errors.Is")
	}
}

func TestErrorMessageCarriesContext(t *testing.T) {
	err := InsufficientFunds("wallet.Debit", "owner-1", 500, 100)
	msg := err.Error()
	for _, want := range []string{"wallet.Debit", "insufficient_funds", "owner-1", "500", "100"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}
