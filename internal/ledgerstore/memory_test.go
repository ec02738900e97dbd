package ledgerstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/FreightLink/FreightLink/internal/models"
)

func TestAtomicallyRollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.Atomically(ctx, func(tx Tx) error {
		if err := tx.SaveVehicle(&models.Vehicle{ID: "v-1"}); err != nil {
			return err
		}
		if err := tx.CreateAccount(&models.WalletAccount{ID: "a-1", OwnerID: "o-1", BalanceCents: 100}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	// 全部回滚：什么都没写进去
	err = store.Atomically(ctx, func(tx Tx) error {
		if _, err := tx.VehicleForUpdate("v-1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("vehicle must be rolled back, got %v", err)
		}
		if _, err := tx.AccountByOwnerForUpdate("o-1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("account must be rolled back, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestTxViewIsolatedUntilCommit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Atomically(ctx, func(tx Tx) error {
		return tx.SaveVehicle(&models.Vehicle{ID: "v-1", Status: models.VehicleAvailable})
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// 事务内改动在提交前不影响后续读取（失败路径）
	_ = store.Atomically(ctx, func(tx Tx) error {
		v, err := tx.VehicleForUpdate("v-1")
		if err != nil {
			return err
		}
		v.Status = models.VehicleMaintenance
		if err := tx.SaveVehicle(v); err != nil {
			return err
		}
		return errors.New("abort")
	})

	if err := store.Atomically(ctx, func(tx Tx) error {
		v, err := tx.VehicleForUpdate("v-1")
		if err != nil {
			return err
		}
		if v.Status != models.VehicleAvailable {
			t.Fatalf("aborted change leaked: %s", v.Status)
		}
		return nil
	}); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestAssignmentHistoryOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := store.Atomically(ctx, func(tx Tx) error {
		for i, id := range []string{"r-1", "r-2", "r-3"} {
			rec := &models.AssignmentRecord{
				ID:        id,
				VehicleID: "v-1",
				DriverID:  "d-1",
				StartDate: base.AddDate(0, 0, i),
			}
			if err := tx.CreateAssignment(rec); err != nil {
				return err
			}
		}
		recs, err := tx.AssignmentsByVehicle("v-1")
		if err != nil {
			return err
		}
		if len(recs) != 3 {
			t.Fatalf("expected 3 records, got %d", len(recs))
		}
		for i := 1; i < len(recs); i++ {
			if recs[i].StartDate.After(recs[i-1].StartDate) {
				t.Fatalf("history must be start_date descending")
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("run: %v", err)
	}
}
