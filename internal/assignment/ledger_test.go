package assignment

import (
	"context"
	"testing"
	"time"

	"github.com/FreightLink/FreightLink/internal/common/apperrors"
	"github.com/FreightLink/FreightLink/internal/ledgerstore"
	"github.com/FreightLink/FreightLink/internal/models"
)

func newTestLedger(t *testing.T) (*Ledger, *ledgerstore.MemoryStore) {
	t.Helper()
	store := ledgerstore.NewMemoryStore()
	err := store.Atomically(context.Background(), func(tx ledgerstore.Tx) error {
		for _, id := range []string{"v-1", "v-2"} {
			if err := tx.SaveVehicle(&models.Vehicle{ID: id, Status: models.VehicleAvailable}); err != nil {
				return err
			}
		}
		for _, id := range []string{"d-1", "d-2"} {
			if err := tx.SaveDriver(&models.Driver{ID: id, Status: models.DriverAvailable}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewLedger(store), store
}

func TestReassignClosesOldRecord(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	day1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	first, err := l.Assign(ctx, "v-1", "d-1", day1)
	if err != nil {
		t.Fatalf("Assign d-1: %v", err)
	}
	second, err := l.Assign(ctx, "v-1", "d-2", day2)
	if err != nil {
		t.Fatalf("Assign d-2: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("expected a new record on reassign")
	}

	history, err := l.HistoryByVehicle(ctx, "v-1")
	if err != nil {
		t.Fatalf("HistoryByVehicle: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 records, got %d", len(history))
	}
	// 降序：最新在前
	if !history[0].IsActive || history[0].DriverID != "d-2" {
		t.Fatalf("expected active d-2 first, got %+v", history[0])
	}
	if history[1].IsActive {
		t.Fatalf("old record must be closed")
	}
	if history[1].EndDate == nil || !history[1].EndDate.Equal(day2) {
		t.Fatalf("old record end date must be reassign date, got %v", history[1].EndDate)
	}

	cur, err := l.CurrentByVehicle(ctx, "v-1")
	if err != nil {
		t.Fatalf("CurrentByVehicle: %v", err)
	}
	if cur == nil || cur.DriverID != "d-2" {
		t.Fatalf("expected current driver d-2, got %+v", cur)
	}
	// 被换下的司机不再有 active 绑定
	if rec, err := l.CurrentByDriver(ctx, "d-1"); err != nil || rec != nil {
		t.Fatalf("expected d-1 unbound, got rec=%+v err=%v", rec, err)
	}
}

func TestAssignStealsDriverFromOtherVehicle(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := l.Assign(ctx, "v-1", "d-1", now); err != nil {
		t.Fatalf("Assign v-1: %v", err)
	}
	if _, err := l.Assign(ctx, "v-2", "d-1", now.Add(time.Hour)); err != nil {
		t.Fatalf("Assign v-2: %v", err)
	}

	// 单 active 不变量：司机侧只剩 v-2，v-1 侧清空
	if rec, err := l.CurrentByVehicle(ctx, "v-1"); err != nil || rec != nil {
		t.Fatalf("expected v-1 unbound, got rec=%+v err=%v", rec, err)
	}
	cur, err := l.CurrentByDriver(ctx, "d-1")
	if err != nil {
		t.Fatalf("CurrentByDriver: %v", err)
	}
	if cur == nil || cur.VehicleID != "v-2" {
		t.Fatalf("expected d-1 on v-2, got %+v", cur)
	}

	if err := store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		v1, err := tx.VehicleForUpdate("v-1")
		if err != nil {
			return err
		}
		if v1.CurrentDriverID != "" {
			t.Fatalf("v-1 pointer must be cleared, got %q", v1.CurrentDriverID)
		}
		d1, err := tx.DriverForUpdate("d-1")
		if err != nil {
			return err
		}
		if d1.CurrentVehicleID != "v-2" {
			t.Fatalf("d-1 pointer mismatch: %q", d1.CurrentVehicleID)
		}
		return nil
	}); err != nil {
		t.Fatalf("verify pointers: %v", err)
	}
}

func TestAssignSamePairIsNoop(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	first, err := l.Assign(ctx, "v-1", "d-1", time.Now())
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	again, err := l.Assign(ctx, "v-1", "d-1", time.Now())
	if err != nil {
		t.Fatalf("repeat Assign: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("expected existing record back, got new %s", again.ID)
	}
	history, err := l.HistoryByVehicle(ctx, "v-1")
	if err != nil {
		t.Fatalf("HistoryByVehicle: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("repeat assign must not add history, got %d records", len(history))
	}
}

func TestAssignUnknownEntities(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	if _, err := l.Assign(ctx, "v-404", "d-1", time.Now()); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found for vehicle, got %v", err)
	}
	if _, err := l.Assign(ctx, "v-1", "d-404", time.Now()); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found for driver, got %v", err)
	}
}

func TestUnassign(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	if err := l.Unassign(ctx, "v-1", time.Now()); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found without active assignment, got %v", err)
	}

	if _, err := l.Assign(ctx, "v-1", "d-1", time.Now()); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if err := l.Unassign(ctx, "v-1", time.Now()); err != nil {
		t.Fatalf("Unassign: %v", err)
	}
	if rec, err := l.CurrentByVehicle(ctx, "v-1"); err != nil || rec != nil {
		t.Fatalf("expected no active assignment, got rec=%+v err=%v", rec, err)
	}
	history, err := l.HistoryByVehicle(ctx, "v-1")
	if err != nil {
		t.Fatalf("HistoryByVehicle: %v", err)
	}
	if len(history) != 1 || history[0].IsActive || history[0].EndDate == nil {
		t.Fatalf("closed record must survive in history: %+v", history)
	}
}
