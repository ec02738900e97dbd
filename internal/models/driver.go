package models

import (
	"time"

	"github.com/FreightLink/FreightLink/internal/common/apperrors"
)

// DriverStatus 司机状态枚举。
type DriverStatus string

const (
	DriverAvailable DriverStatus = "AVAILABLE"
	DriverOnTrip    DriverStatus = "ON_TRIP"
	DriverOffDuty   DriverStatus = "OFF_DUTY"
	DriverOnBreak   DriverStatus = "BREAK"
)

// ParseDriverStatus 校验并解析司机状态。
func ParseDriverStatus(op, s string) (DriverStatus, error) {
	switch DriverStatus(s) {
	case DriverAvailable, DriverOnTrip, DriverOffDuty, DriverOnBreak:
		return DriverStatus(s), nil
	}
	return "", apperrors.Validationf(op, "unknown driver status: %q", s)
}

// Driver 是 drivers 表的 GORM 模型。
type Driver struct {
	ID            string       `gorm:"primaryKey;size:36"`
	Name          string       `gorm:"size:64;not null"`
	Phone         string       `gorm:"size:32"`
	LicenseNumber string       `gorm:"uniqueIndex;size:32;not null"`
	Status        DriverStatus `gorm:"type:varchar(16);index;not null"`

	// 冗余指针：当前绑定的车辆。
	CurrentVehicleID string `gorm:"index;size:36"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
