package booking

import (
	"time"

	"github.com/FreightLink/FreightLink/internal/common/apperrors"
	"github.com/FreightLink/FreightLink/internal/models"
)

// AllowTransition 定义运单状态机的允许流转关系（有向图）。
// 主干只进不退：PENDING → CONFIRMED → ASSIGNED → PICKED_UP → IN_TRANSIT → DELIVERED。
// 侧枝：装货前（PENDING/CONFIRMED/ASSIGNED）可取消；任何状态可进入争议。
var AllowTransition = map[models.BookingStatus][]models.BookingStatus{
	models.BookingPending:   {models.BookingConfirmed, models.BookingCancelled, models.BookingDisputed},
	models.BookingConfirmed: {models.BookingAssigned, models.BookingCancelled, models.BookingDisputed},
	models.BookingAssigned:  {models.BookingPickedUp, models.BookingCancelled, models.BookingDisputed},
	models.BookingPickedUp:  {models.BookingInTransit, models.BookingDisputed},
	models.BookingInTransit: {models.BookingDelivered, models.BookingDisputed},
	// 终态：DELIVERED/CANCELLED 正常流程不再流转，争议除外
	models.BookingDelivered: {models.BookingDisputed},
	models.BookingCancelled: {models.BookingDisputed},
	models.BookingDisputed:  {},
}

// CanTransition 判断 from -> to 是否是一个允许的状态流转。
// 注意这里没有 from == to 的捷径：重复推进同一状态也是非法流转。
func CanTransition(from, to models.BookingStatus) bool {
	for _, s := range AllowTransition[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyTransition 对运单应用状态变更并维护关键时间字段（每个字段只写一次）。
// 非法流转报 invalid_transition，运单不动。
func ApplyTransition(op string, b *models.Booking, to models.BookingStatus, now time.Time) error {
	if b == nil {
		return apperrors.Validationf(op, "booking is nil")
	}
	from := b.Status
	if !CanTransition(from, to) {
		return apperrors.InvalidTransition(op, "booking", b.ID, string(from), string(to))
	}

	b.Status = to

	switch to {
	case models.BookingConfirmed:
		if b.ConfirmedAt == nil {
			t := now
			b.ConfirmedAt = &t
		}
	case models.BookingAssigned:
		if b.AssignedAt == nil {
			t := now
			b.AssignedAt = &t
		}
	case models.BookingPickedUp:
		if b.PickedUpAt == nil {
			t := now
			b.PickedUpAt = &t
		}
	case models.BookingInTransit:
		if b.InTransitAt == nil {
			t := now
			b.InTransitAt = &t
		}
	case models.BookingDelivered:
		if b.DeliveredAt == nil {
			t := now
			b.DeliveredAt = &t
		}
	case models.BookingCancelled:
		if b.CancelledAt == nil {
			t := now
			b.CancelledAt = &t
		}
	case models.BookingDisputed:
		if b.DisputedAt == nil {
			t := now
			b.DisputedAt = &t
		}
	}
	return nil
}
