package payment

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/FreightLink/FreightLink/internal/common/apperrors"
	"github.com/FreightLink/FreightLink/internal/ledgerstore"
	"github.com/FreightLink/FreightLink/internal/models"
	"github.com/FreightLink/FreightLink/internal/notify"
	"github.com/FreightLink/FreightLink/internal/wallet"
)

func newTestEscrow(t *testing.T) (*Escrow, *wallet.Ledger) {
	t.Helper()
	store := ledgerstore.NewMemoryStore()
	err := store.Atomically(context.Background(), func(tx ledgerstore.Tx) error {
		return tx.CreateBooking(&models.Booking{
			ID:         "b-1",
			CustomerID: "cust-1",
			OwnerID:    "owner-1",
			DriverID:   "d-1",
			Status:     models.BookingDelivered,
		})
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	wallets := wallet.NewLedger(store)
	if _, err := wallets.OpenAccount(context.Background(), "owner-1"); err != nil {
		t.Fatalf("open payee account: %v", err)
	}
	return NewEscrow(store, wallets, notify.Nop{}), wallets
}

func createCompleted(t *testing.T, e *Escrow, amount, fee int64) *models.Payment {
	t.Helper()
	p, err := e.CreateForBooking(context.Background(), CreateInput{
		BookingID:        "b-1",
		AmountCents:      amount,
		PlatformFeeCents: fee,
		Method:           "wallet",
		ReferenceID:      "FB-TEST",
	})
	if err != nil {
		t.Fatalf("CreateForBooking: %v", err)
	}
	if _, err := e.MarkCompleted(context.Background(), p.ID, "txn-1"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	return p
}

func TestCreateForBookingValidation(t *testing.T) {
	e, _ := newTestEscrow(t)
	ctx := context.Background()

	if _, err := e.CreateForBooking(ctx, CreateInput{BookingID: "b-404", AmountCents: 100}); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found for unknown booking, got %v", err)
	}
	if _, err := e.CreateForBooking(ctx, CreateInput{BookingID: "b-1", AmountCents: 0}); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation for zero amount, got %v", err)
	}
	if _, err := e.CreateForBooking(ctx, CreateInput{BookingID: "b-1", AmountCents: 100, PlatformFeeCents: 200}); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation for fee > amount, got %v", err)
	}

	if _, err := e.CreateForBooking(ctx, CreateInput{BookingID: "b-1", AmountCents: 100}); err != nil {
		t.Fatalf("CreateForBooking: %v", err)
	}
	// 一单一笔
	if _, err := e.CreateForBooking(ctx, CreateInput{BookingID: "b-1", AmountCents: 100}); !apperrors.IsConflict(err) {
		t.Fatalf("expected conflict on second escrow, got %v", err)
	}
}

func TestCreateForBookingAmountMustMatchBooking(t *testing.T) {
	store := ledgerstore.NewMemoryStore()
	ctx := context.Background()
	err := store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		return tx.CreateBooking(&models.Booking{
			ID:               "b-2",
			CustomerID:       "cust-1",
			Status:           models.BookingPending,
			FinalAmountCents: 50_000,
		})
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	e := NewEscrow(store, wallet.NewLedger(store), notify.Nop{})

	if _, err := e.CreateForBooking(ctx, CreateInput{BookingID: "b-2", AmountCents: 60_000}); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation for amount mismatch, got %v", err)
	}
	if _, err := e.CreateForBooking(ctx, CreateInput{BookingID: "b-2", AmountCents: 50_000}); err != nil {
		t.Fatalf("CreateForBooking: %v", err)
	}
}

func TestReleaseOnceCreditsPayee(t *testing.T) {
	e, wallets := newTestEscrow(t)
	ctx := context.Background()
	p := createCompleted(t, e, 50_000, 5_000)

	released, err := e.Release(ctx, p.ID)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if !released.PaidToDriver || released.ReleasedAt == nil {
		t.Fatalf("release gate not flipped: %+v", released)
	}

	bal, err := wallets.Balance(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 45_000 {
		t.Fatalf("expected payout 45000 (net of fee), got %d", bal)
	}

	// 第二次放款：冲突，余额分文不动
	if _, err := e.Release(ctx, p.ID); !apperrors.IsConflict(err) {
		t.Fatalf("expected conflict on double release, got %v", err)
	}
	bal, err = wallets.Balance(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 45_000 {
		t.Fatalf("double release must not move balance, got %d", bal)
	}

	report, err := wallets.Audit(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if !report.Consistent {
		t.Fatalf("balance %d != fold %d", report.BalanceCents, report.FoldCents)
	}
}

func TestConcurrentReleaseCreditsOnce(t *testing.T) {
	e, wallets := newTestEscrow(t)
	ctx := context.Background()
	p := createCompleted(t, e, 50_000, 5_000)

	// 并发抢放款，只有一个 goroutine 能翻转闸门
	const workers = 16
	var ok, conflict int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Release(ctx, p.ID)
			switch {
			case err == nil:
				atomic.AddInt64(&ok, 1)
			case apperrors.IsConflict(err):
				atomic.AddInt64(&conflict, 1)
			default:
				t.Errorf("unexpected release error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || conflict != workers-1 {
		t.Fatalf("expected exactly 1 release and %d conflicts, got ok=%d conflict=%d", workers-1, ok, conflict)
	}
	bal, err := wallets.Balance(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 45_000 {
		t.Fatalf("expected a single 45000 payout, got %d", bal)
	}
	report, err := wallets.Audit(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if !report.Consistent {
		t.Fatalf("balance %d != fold %d", report.BalanceCents, report.FoldCents)
	}
}

func TestReleaseRequiresCompleted(t *testing.T) {
	e, wallets := newTestEscrow(t)
	ctx := context.Background()
	p, err := e.CreateForBooking(ctx, CreateInput{BookingID: "b-1", AmountCents: 50_000})
	if err != nil {
		t.Fatalf("CreateForBooking: %v", err)
	}

	// PENDING 不可放款
	if _, err := e.Release(ctx, p.ID); !apperrors.IsConflict(err) {
		t.Fatalf("expected not-ready conflict, got %v", err)
	}
	bal, err := wallets.Balance(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 0 {
		t.Fatalf("failed release must not move balance, got %d", bal)
	}
}

func TestHoldAndResume(t *testing.T) {
	e, wallets := newTestEscrow(t)
	ctx := context.Background()
	p := createCompleted(t, e, 50_000, 0)

	if _, err := e.Hold(ctx, p.ID); err != nil {
		t.Fatalf("Hold: %v", err)
	}
	// 冻结中不可放款
	if _, err := e.Release(ctx, p.ID); !apperrors.IsConflict(err) {
		t.Fatalf("expected conflict while on hold, got %v", err)
	}
	if _, err := e.Resume(ctx, p.ID); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if _, err := e.Release(ctx, p.ID); err != nil {
		t.Fatalf("Release after resume: %v", err)
	}
	// 已放款不可再冻结
	if _, err := e.Hold(ctx, p.ID); !apperrors.IsConflict(err) {
		t.Fatalf("expected conflict holding released payment, got %v", err)
	}
	bal, err := wallets.Balance(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 50_000 {
		t.Fatalf("expected full payout, got %d", bal)
	}
}

func TestMarkCompletedIdempotent(t *testing.T) {
	e, _ := newTestEscrow(t)
	ctx := context.Background()
	p := createCompleted(t, e, 10_000, 0)

	again, err := e.MarkCompleted(ctx, p.ID, "")
	if err != nil {
		t.Fatalf("repeat MarkCompleted: %v", err)
	}
	if again.Status != models.PaymentCompleted {
		t.Fatalf("expected COMPLETED, got %s", again.Status)
	}
}

func TestMarkFailedAndCancel(t *testing.T) {
	e, _ := newTestEscrow(t)
	ctx := context.Background()
	p, err := e.CreateForBooking(ctx, CreateInput{BookingID: "b-1", AmountCents: 10_000})
	if err != nil {
		t.Fatalf("CreateForBooking: %v", err)
	}
	if _, err := e.MarkFailed(ctx, p.ID); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	// FAILED 不可作废、不可完成
	if _, err := e.Cancel(ctx, p.ID); !apperrors.IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if _, err := e.MarkCompleted(ctx, p.ID, ""); !apperrors.IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestGetByBooking(t *testing.T) {
	e, _ := newTestEscrow(t)
	ctx := context.Background()

	p, err := e.GetByBooking(ctx, "b-1")
	if err != nil || p != nil {
		t.Fatalf("expected (nil, nil) before escrow, got p=%+v err=%v", p, err)
	}
	created := createCompleted(t, e, 10_000, 0)
	p, err = e.GetByBooking(ctx, "b-1")
	if err != nil {
		t.Fatalf("GetByBooking: %v", err)
	}
	if p == nil || p.ID != created.ID {
		t.Fatalf("expected escrow %s, got %+v", created.ID, p)
	}
}
