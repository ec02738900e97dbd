// Package assignment 维护车辆-司机绑定账本：
// 同一车辆、同一司机任一时刻最多一条 active 绑定，历史只增不删。
package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/FreightLink/FreightLink/internal/common/apperrors"
	"github.com/FreightLink/FreightLink/internal/ledgerstore"
	"github.com/FreightLink/FreightLink/internal/models"
)

// Ledger 绑定账本服务。所有多步写都在一个 Atomically 单元内完成。
type Ledger struct {
	store ledgerstore.Store
}

func NewLedger(store ledgerstore.Store) *Ledger {
	return &Ledger{store: store}
}

// Assign 把车辆绑定给司机（生效日期 effective，零值取当前时间）。
// 原子语义：关掉车辆侧 active 记录、关掉司机侧 active 记录（双向换绑都被
// 这一对 close 覆盖）、开一条新 active 记录、同步车辆/司机上的冗余指针。
// 车辆或司机不存在报 NotFound，中途任何失败整体回滚。
// 车辆已经绑在同一司机上时直接返回现有记录，不制造关闭-重开的历史噪音。
func (l *Ledger) Assign(ctx context.Context, vehicleID, driverID string, effective time.Time) (*models.AssignmentRecord, error) {
	const op = "assignment.Assign"
	if vehicleID == "" || driverID == "" {
		return nil, apperrors.Validationf(op, "vehicle_id and driver_id are required")
	}
	if effective.IsZero() {
		effective = time.Now()
	}

	var out *models.AssignmentRecord
	err := l.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		rec, err := l.AssignInTx(tx, vehicleID, driverID, effective)
		if err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

// AssignInTx 在调用方的事务单元内执行换绑（运单指派等跨账本操作复用，
// 保证“绑定 + 运单状态推进”落在同一个提交里）。
func (l *Ledger) AssignInTx(tx ledgerstore.Tx, vehicleID, driverID string, effective time.Time) (*models.AssignmentRecord, error) {
	const op = "assignment.Assign"
	vehicle, err := tx.VehicleForUpdate(vehicleID)
	if errors.Is(err, ledgerstore.ErrNotFound) {
		return nil, apperrors.NotFound(op, "vehicle", vehicleID)
	}
	if err != nil {
		return nil, err
	}
	driver, err := tx.DriverForUpdate(driverID)
	if errors.Is(err, ledgerstore.ErrNotFound) {
		return nil, apperrors.NotFound(op, "driver", driverID)
	}
	if err != nil {
		return nil, err
	}

	vehicleSide, err := tx.ActiveAssignmentByVehicle(vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicleSide != nil && vehicleSide.DriverID == driverID {
		return vehicleSide, nil
	}
	driverSide, err := tx.ActiveAssignmentByDriver(driverID)
	if err != nil {
		return nil, err
	}

	if vehicleSide != nil {
		if err := closeRecord(tx, vehicleSide, effective); err != nil {
			return nil, err
		}
		// 被换下来的司机指针清空
		if err := clearDriverPointer(tx, vehicleSide.DriverID); err != nil {
			return nil, err
		}
	}
	if driverSide != nil {
		if err := closeRecord(tx, driverSide, effective); err != nil {
			return nil, err
		}
		if err := clearVehiclePointer(tx, driverSide.VehicleID); err != nil {
			return nil, err
		}
	}

	rec := &models.AssignmentRecord{
		ID:        uuid.NewString(),
		VehicleID: vehicleID,
		DriverID:  driverID,
		StartDate: effective,
		IsActive:  true,
	}
	if err := tx.CreateAssignment(rec); err != nil {
		return nil, err
	}

	vehicle.CurrentDriverID = driverID
	driver.CurrentVehicleID = vehicleID
	if err := tx.SaveVehicle(vehicle); err != nil {
		return nil, err
	}
	if err := tx.SaveDriver(driver); err != nil {
		return nil, err
	}
	return rec, nil
}

// Unassign 关闭车辆当前的 active 绑定，不开新记录，双侧指针清空。
// 车辆没有 active 绑定时报 NotFound。
func (l *Ledger) Unassign(ctx context.Context, vehicleID string, effective time.Time) error {
	const op = "assignment.Unassign"
	if vehicleID == "" {
		return apperrors.Validationf(op, "vehicle_id is required")
	}
	if effective.IsZero() {
		effective = time.Now()
	}

	err := l.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		if _, err := tx.VehicleForUpdate(vehicleID); err != nil {
			if errors.Is(err, ledgerstore.ErrNotFound) {
				return apperrors.NotFound(op, "vehicle", vehicleID)
			}
			return err
		}
		rec, err := tx.ActiveAssignmentByVehicle(vehicleID)
		if err != nil {
			return err
		}
		if rec == nil {
			return apperrors.NotFound(op, "active_assignment", vehicleID)
		}
		if err := closeRecord(tx, rec, effective); err != nil {
			return err
		}
		if err := clearVehiclePointer(tx, rec.VehicleID); err != nil {
			return err
		}
		return clearDriverPointer(tx, rec.DriverID)
	})
	return apperrors.Wrap(op, err)
}

// CurrentByVehicle 车辆当前的 active 绑定；没有则返回 (nil, nil)。
func (l *Ledger) CurrentByVehicle(ctx context.Context, vehicleID string) (*models.AssignmentRecord, error) {
	const op = "assignment.CurrentByVehicle"
	var out *models.AssignmentRecord
	err := l.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		if _, err := tx.VehicleForUpdate(vehicleID); err != nil {
			if errors.Is(err, ledgerstore.ErrNotFound) {
				return apperrors.NotFound(op, "vehicle", vehicleID)
			}
			return err
		}
		rec, err := tx.ActiveAssignmentByVehicle(vehicleID)
		if err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

// CurrentByDriver 司机当前的 active 绑定；没有则返回 (nil, nil)。
func (l *Ledger) CurrentByDriver(ctx context.Context, driverID string) (*models.AssignmentRecord, error) {
	const op = "assignment.CurrentByDriver"
	var out *models.AssignmentRecord
	err := l.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		if _, err := tx.DriverForUpdate(driverID); err != nil {
			if errors.Is(err, ledgerstore.ErrNotFound) {
				return apperrors.NotFound(op, "driver", driverID)
			}
			return err
		}
		rec, err := tx.ActiveAssignmentByDriver(driverID)
		if err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

// HistoryByVehicle 车辆的全部绑定历史（start_date 降序）。
func (l *Ledger) HistoryByVehicle(ctx context.Context, vehicleID string) ([]models.AssignmentRecord, error) {
	const op = "assignment.HistoryByVehicle"
	var out []models.AssignmentRecord
	err := l.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		recs, err := tx.AssignmentsByVehicle(vehicleID)
		if err != nil {
			return err
		}
		out = recs
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

// HistoryByDriver 司机的全部绑定历史（start_date 降序）。
func (l *Ledger) HistoryByDriver(ctx context.Context, driverID string) ([]models.AssignmentRecord, error) {
	const op = "assignment.HistoryByDriver"
	var out []models.AssignmentRecord
	err := l.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		recs, err := tx.AssignmentsByDriver(driverID)
		if err != nil {
			return err
		}
		out = recs
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

// closeRecord 关闭一条 active 记录：写 EndDate、落 is_active=false。
// 关闭后的记录不再变更。
func closeRecord(tx ledgerstore.Tx, rec *models.AssignmentRecord, effective time.Time) error {
	end := effective
	rec.EndDate = &end
	rec.IsActive = false
	return tx.SaveAssignment(rec)
}

func clearDriverPointer(tx ledgerstore.Tx, driverID string) error {
	d, err := tx.DriverForUpdate(driverID)
	if errors.Is(err, ledgerstore.ErrNotFound) {
		return nil // 历史数据里司机可能已被下线，指针无处可清
	}
	if err != nil {
		return err
	}
	d.CurrentVehicleID = ""
	return tx.SaveDriver(d)
}

func clearVehiclePointer(tx ledgerstore.Tx, vehicleID string) error {
	v, err := tx.VehicleForUpdate(vehicleID)
	if errors.Is(err, ledgerstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	v.CurrentDriverID = ""
	return tx.SaveVehicle(v)
}
