package models

import (
	"time"

	"github.com/FreightLink/FreightLink/internal/common/apperrors"
)

// BookingStatus 运单状态枚举。
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingAssigned  BookingStatus = "ASSIGNED"
	BookingPickedUp  BookingStatus = "PICKED_UP"
	BookingInTransit BookingStatus = "IN_TRANSIT"
	BookingDelivered BookingStatus = "DELIVERED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingDisputed  BookingStatus = "DISPUTED"
)

// ParseBookingStatus 校验并解析运单状态。
func ParseBookingStatus(op, s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case BookingPending, BookingConfirmed, BookingAssigned, BookingPickedUp,
		BookingInTransit, BookingDelivered, BookingCancelled, BookingDisputed:
		return BookingStatus(s), nil
	}
	return "", apperrors.Validationf(op, "unknown booking status: %q", s)
}

// Booking 是 bookings 表的 GORM 模型。
// 路线/货物细节对核心流程不透明，这里只存展示用字段；
// 价格由外部计价服务给定，本服务不重算。金额单位：分。
type Booking struct {
	ID            string `gorm:"primaryKey;size:36"`
	BookingNumber string `gorm:"uniqueIndex;size:32;not null"` // 对外可见单号

	CustomerID string `gorm:"index;size:36;not null"`
	VehicleID  string `gorm:"index;size:36"` // 指派前为空
	DriverID   string `gorm:"index;size:36"`
	OwnerID    string `gorm:"index;size:36"`

	// 货物与路线（对核心不透明）
	CargoDescription string `gorm:"size:255"`
	CargoWeightKg    int64  `gorm:"not null;default:0"`
	PickupAddress    string `gorm:"size:255"`
	DropoffAddress   string `gorm:"size:255"`

	// 价格拆分（外部计价输入）
	BaseFareCents    int64 `gorm:"not null;default:0"`
	SurchargeCents   int64 `gorm:"not null;default:0"`
	TotalCents       int64 `gorm:"not null;default:0"`
	FinalAmountCents int64 `gorm:"not null;default:0"`

	Status BookingStatus `gorm:"type:varchar(16);index;not null"`

	// 取消信息
	CancellationReason string `gorm:"size:255"`
	CancellationActor  string `gorm:"size:36"` // 发起取消的参与方 ID
	CancellationFee    int64  `gorm:"not null;default:0"`
	RefundCents        int64  `gorm:"not null;default:0"`
	CancelledAt        *time.Time

	// 条款确认
	CustomerTermsAccepted bool `gorm:"not null;default:false"`
	TermsAcceptedAt       *time.Time

	// 管理员审核
	AdminApproved bool   `gorm:"not null;default:false"`
	ApprovedBy    string `gorm:"size:36"`
	ApprovedAt    *time.Time

	// 评价（送达后可填）
	Rating int    `gorm:"not null;default:0"` // 1-5，0 表示未评
	Review string `gorm:"size:512"`

	// 关键时间点（ApplyTransition 只写一次）
	ConfirmedAt *time.Time
	AssignedAt  *time.Time
	PickedUpAt  *time.Time
	InTransitAt *time.Time
	DeliveredAt *time.Time
	DisputedAt  *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
