package models

import (
	"time"

	"github.com/FreightLink/FreightLink/internal/common/apperrors"
)

// PaymentStatus 支付状态枚举。
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentOnHold    PaymentStatus = "ON_HOLD" // 争议中，冻结放款
)

// ParsePaymentStatus 校验并解析支付状态。
func ParsePaymentStatus(op, s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentCancelled, PaymentOnHold:
		return PaymentStatus(s), nil
	}
	return "", apperrors.Validationf(op, "unknown payment status: %q", s)
}

// Payment 是 payments 表的 GORM 模型：平台托管的一笔运单款。
// PaidToDriver 是放款的单次性闸门：置 true 后再次 Release 必须报冲突。
// 金额单位：分。
type Payment struct {
	ID        string `gorm:"primaryKey;size:36"`
	BookingID string `gorm:"uniqueIndex;size:36;not null"`

	CustomerID string `gorm:"index;size:36;not null"`
	DriverID   string `gorm:"index;size:36"`
	OwnerID    string `gorm:"index;size:36"`
	VehicleID  string `gorm:"size:36"`

	AmountCents      int64 `gorm:"not null"` // 客户支付总额
	PlatformFeeCents int64 `gorm:"not null;default:0"`
	DriverPayout     int64 `gorm:"not null;default:0"` // 放款净额（分）

	Method string        `gorm:"size:32"` // wallet / card / cash（外部网关透传）
	Status PaymentStatus `gorm:"type:varchar(16);index;not null"`

	PaidToDriver bool `gorm:"not null;default:false"`
	ReleasedAt   *time.Time

	ReferenceID   string `gorm:"index;size:64"`            // 调用方幂等键
	TransactionID string `gorm:"uniqueIndex;size:64"`      // 入账流水号（钱包流水/外部网关流水）

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
