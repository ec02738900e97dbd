package models

import (
	"time"

	"github.com/FreightLink/FreightLink/internal/common/apperrors"
)

// VehicleStatus 车辆状态枚举（持久化为字符串，闭集）。
type VehicleStatus string

const (
	VehicleAvailable   VehicleStatus = "AVAILABLE"
	VehicleInTransit   VehicleStatus = "IN_TRANSIT"
	VehicleMaintenance VehicleStatus = "MAINTENANCE"
	VehicleInactive    VehicleStatus = "INACTIVE"
)

// ParseVehicleStatus 校验并解析车辆状态；未知取值视为参数错误，不做静默兜底。
func ParseVehicleStatus(op, s string) (VehicleStatus, error) {
	switch VehicleStatus(s) {
	case VehicleAvailable, VehicleInTransit, VehicleMaintenance, VehicleInactive:
		return VehicleStatus(s), nil
	}
	return "", apperrors.Validationf(op, "unknown vehicle status: %q", s)
}

// Vehicle 是 vehicles 表的 GORM 模型。
// 车辆与司机的绑定历史不挂在这里，由 assignment_records 回溯（见 AssignmentRecord）。
type Vehicle struct {
	ID          string        `gorm:"primaryKey;size:36"`
	PlateNumber string        `gorm:"uniqueIndex;size:32;not null"`
	Model       string        `gorm:"size:64"`
	CapacityKg  int64         `gorm:"not null;default:0"` // 载重（kg）
	OwnerID     string        `gorm:"index;size:36;not null"`
	Status      VehicleStatus `gorm:"type:varchar(16);index;not null"`

	// 冗余指针：当前绑定的司机（与 assignment_records 的 active 记录保持一致）。
	CurrentDriverID string `gorm:"index;size:36"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
