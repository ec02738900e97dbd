// Package booking 运单生命周期：状态机把钱相关与线下动作
//（确认扣款、指派、提货、送达、取消退款）挡在校验过的流转后面。
package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FreightLink/FreightLink/internal/assignment"
	"github.com/FreightLink/FreightLink/internal/common/apperrors"
	"github.com/FreightLink/FreightLink/internal/ledgerstore"
	"github.com/FreightLink/FreightLink/internal/models"
	"github.com/FreightLink/FreightLink/internal/notify"
	"github.com/FreightLink/FreightLink/internal/wallet"
)

// Service 运单用例。每个用例一个事务单元：运单状态、钱包流水、
// 支付记录、绑定记录的变更要么一起提交要么一起回滚。
type Service struct {
	store       ledgerstore.Store
	assignments *assignment.Ledger
	wallets     *wallet.Ledger
	notifier    notify.Notifier
}

func NewService(store ledgerstore.Store, assignments *assignment.Ledger, wallets *wallet.Ledger, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{store: store, assignments: assignments, wallets: wallets, notifier: notifier}
}

// CreateInput 下单入参。价格拆分由外部计价服务给定，这里不重算。
type CreateInput struct {
	CustomerID       string
	CargoDescription string
	CargoWeightKg    int64
	PickupAddress    string
	DropoffAddress   string

	BaseFareCents    int64
	SurchargeCents   int64
	FinalAmountCents int64 // 0 表示取 base+surcharge

	AcceptTerms bool
}

// Create 创建运单（PENDING）。
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Booking, error) {
	const op = "booking.Create"
	if strings.TrimSpace(in.CustomerID) == "" {
		return nil, apperrors.Validationf(op, "customer_id is required")
	}
	if in.BaseFareCents < 0 || in.SurchargeCents < 0 || in.FinalAmountCents < 0 {
		return nil, apperrors.Validationf(op, "fare amounts must be non-negative")
	}

	now := time.Now()
	total := in.BaseFareCents + in.SurchargeCents
	final := in.FinalAmountCents
	if final == 0 {
		final = total
	}

	b := &models.Booking{
		ID:               uuid.NewString(),
		BookingNumber:    newBookingNumber(now),
		CustomerID:       strings.TrimSpace(in.CustomerID),
		CargoDescription: strings.TrimSpace(in.CargoDescription),
		CargoWeightKg:    in.CargoWeightKg,
		PickupAddress:    strings.TrimSpace(in.PickupAddress),
		DropoffAddress:   strings.TrimSpace(in.DropoffAddress),
		BaseFareCents:    in.BaseFareCents,
		SurchargeCents:   in.SurchargeCents,
		TotalCents:       total,
		FinalAmountCents: final,
		Status:           models.BookingPending,
	}
	if in.AcceptTerms {
		b.CustomerTermsAccepted = true
		b.TermsAcceptedAt = &now
	}

	err := s.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		return tx.CreateBooking(b)
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return b, nil
}

// AcceptTerms 客户确认条款（确认运单的前置条件）。
func (s *Service) AcceptTerms(ctx context.Context, bookingID string) (*models.Booking, error) {
	const op = "booking.AcceptTerms"
	var out *models.Booking
	err := s.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		b, err := s.bookingForUpdate(tx, op, bookingID)
		if err != nil {
			return err
		}
		if !b.CustomerTermsAccepted {
			now := time.Now()
			b.CustomerTermsAccepted = true
			b.TermsAcceptedAt = &now
			if err := tx.SaveBooking(b); err != nil {
				return err
			}
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

// Confirm 确认运单：PENDING → CONFIRMED。
// 前置：客户已确认条款，且该运单要么已有 COMPLETED 支付，
// 要么此刻从客户钱包一次性扣足全款并落一条 COMPLETED 支付记录。
func (s *Service) Confirm(ctx context.Context, bookingID string) (*models.Booking, error) {
	const op = "booking.Confirm"
	var out *models.Booking
	err := s.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		b, err := s.bookingForUpdate(tx, op, bookingID)
		if err != nil {
			return err
		}
		if b.Status != models.BookingPending {
			return apperrors.InvalidTransition(op, "booking", b.ID, string(b.Status), string(models.BookingConfirmed))
		}
		if !b.CustomerTermsAccepted {
			return apperrors.Validationf(op, "booking %s: customer terms not accepted", b.ID)
		}

		p, err := tx.PaymentByBookingForUpdate(b.ID)
		if err != nil {
			return err
		}
		if p == nil || p.Status != models.PaymentCompleted {
			txn, err := s.wallets.DebitInTx(tx, op, b.CustomerID, b.FinalAmountCents, "booking payment", b.BookingNumber)
			if err != nil {
				return err
			}
			if p == nil {
				p = &models.Payment{
					ID:           uuid.NewString(),
					BookingID:    b.ID,
					CustomerID:   b.CustomerID,
					AmountCents:  b.FinalAmountCents,
					DriverPayout: b.FinalAmountCents,
					Method:       "wallet",
					Status:       models.PaymentCompleted,
					ReferenceID:  b.BookingNumber,
					TransactionID: txn.ID,
				}
				if err := tx.CreatePayment(p); err != nil {
					return err
				}
			} else {
				// 金额以本次实际扣款为准
				p.AmountCents = b.FinalAmountCents
				p.DriverPayout = b.FinalAmountCents - p.PlatformFeeCents
				p.Status = models.PaymentCompleted
				p.Method = "wallet"
				p.TransactionID = txn.ID
				if err := tx.SavePayment(p); err != nil {
					return err
				}
			}
		}

		if err := ApplyTransition(op, b, models.BookingConfirmed, time.Now()); err != nil {
			return err
		}
		if err := tx.SaveBooking(b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	s.notifier.Publish(ctx, notify.Event{Topic: "booking.confirmed", EntityID: out.ID})
	return out, nil
}

// Assign 指派车辆与司机：CONFIRMED → ASSIGNED。
// 换绑走 AssignmentLedger，与运单状态推进同一事务提交。
func (s *Service) Assign(ctx context.Context, bookingID, vehicleID, driverID string) (*models.Booking, error) {
	const op = "booking.Assign"
	var out *models.Booking
	err := s.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		b, err := s.bookingForUpdate(tx, op, bookingID)
		if err != nil {
			return err
		}
		if b.Status != models.BookingConfirmed {
			return apperrors.InvalidTransition(op, "booking", b.ID, string(b.Status), string(models.BookingAssigned))
		}

		now := time.Now()
		if _, err := s.assignments.AssignInTx(tx, vehicleID, driverID, now); err != nil {
			return err
		}
		v, err := tx.VehicleForUpdate(vehicleID)
		if err != nil {
			return err
		}

		b.VehicleID = vehicleID
		b.DriverID = driverID
		b.OwnerID = v.OwnerID

		// 支付记录补上收款方，放款时入 owner 的钱包
		p, err := tx.PaymentByBookingForUpdate(b.ID)
		if err != nil {
			return err
		}
		if p != nil {
			p.DriverID = driverID
			p.OwnerID = v.OwnerID
			p.VehicleID = vehicleID
			if err := tx.SavePayment(p); err != nil {
				return err
			}
		}

		if err := ApplyTransition(op, b, models.BookingAssigned, now); err != nil {
			return err
		}
		if err := tx.SaveBooking(b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	s.notifier.Publish(ctx, notify.Event{Topic: "booking.assigned", EntityID: out.ID, Detail: map[string]interface{}{
		"vehicle_id": vehicleID,
		"driver_id":  driverID,
	}})
	return out, nil
}

// MarkPickedUp 提货：ASSIGNED → PICKED_UP，同时车辆转 IN_TRANSIT、司机转 ON_TRIP。
func (s *Service) MarkPickedUp(ctx context.Context, bookingID string, at time.Time) (*models.Booking, error) {
	return s.advance(ctx, "booking.MarkPickedUp", bookingID, models.BookingPickedUp, at,
		models.VehicleInTransit, models.DriverOnTrip)
}

// MarkInTransit 起运：PICKED_UP → IN_TRANSIT。
func (s *Service) MarkInTransit(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.advance(ctx, "booking.MarkInTransit", bookingID, models.BookingInTransit, time.Time{}, "", "")
}

// MarkDelivered 送达：IN_TRANSIT → DELIVERED，车辆与司机回到 AVAILABLE。
// 托管款的放出由 PaymentEscrow.Release 另行显式触发。
func (s *Service) MarkDelivered(ctx context.Context, bookingID string, at time.Time) (*models.Booking, error) {
	return s.advance(ctx, "booking.MarkDelivered", bookingID, models.BookingDelivered, at,
		models.VehicleAvailable, models.DriverAvailable)
}

// advance 单步前向推进；乱序调用由状态机拒绝，运单不动。
func (s *Service) advance(ctx context.Context, op, bookingID string, to models.BookingStatus, at time.Time, vehicleStatus models.VehicleStatus, driverStatus models.DriverStatus) (*models.Booking, error) {
	if at.IsZero() {
		at = time.Now()
	}
	var out *models.Booking
	err := s.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		b, err := s.bookingForUpdate(tx, op, bookingID)
		if err != nil {
			return err
		}
		if err := ApplyTransition(op, b, to, at); err != nil {
			return err
		}
		if vehicleStatus != "" && b.VehicleID != "" {
			v, err := tx.VehicleForUpdate(b.VehicleID)
			if err != nil {
				return err
			}
			v.Status = vehicleStatus
			if err := tx.SaveVehicle(v); err != nil {
				return err
			}
		}
		if driverStatus != "" && b.DriverID != "" {
			d, err := tx.DriverForUpdate(b.DriverID)
			if err != nil {
				return err
			}
			d.Status = driverStatus
			if err := tx.SaveDriver(d); err != nil {
				return err
			}
		}
		if err := tx.SaveBooking(b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	s.notifier.Publish(ctx, notify.Event{Topic: "booking." + strings.ToLower(string(to)), EntityID: out.ID})
	return out, nil
}

// CancelInput 取消入参。手续费是外部策略输入，这里只校验不计算。
type CancelInput struct {
	Reason   string
	ActorID  string
	FeeCents int64
}

// Cancel 取消运单：只允许 PENDING/CONFIRMED/ASSIGNED。
// 退款 = 已付金额 − 手续费，以 REFUND 流水回到客户钱包；
// 已完成的支付记录随之作废，全部动作一个事务单元。
func (s *Service) Cancel(ctx context.Context, bookingID string, in CancelInput) (*models.Booking, error) {
	const op = "booking.Cancel"
	if in.FeeCents < 0 {
		return nil, apperrors.Validationf(op, "cancellation fee must be non-negative, got %d", in.FeeCents)
	}
	var out *models.Booking
	err := s.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		b, err := s.bookingForUpdate(tx, op, bookingID)
		if err != nil {
			return err
		}
		if !CanTransition(b.Status, models.BookingCancelled) {
			return apperrors.InvalidTransition(op, "booking", b.ID, string(b.Status), string(models.BookingCancelled))
		}

		var paid int64
		p, err := tx.PaymentByBookingForUpdate(b.ID)
		if err != nil {
			return err
		}
		if p != nil && p.Status == models.PaymentCompleted {
			paid = p.AmountCents
		}
		if in.FeeCents > paid {
			return apperrors.Validationf(op, "cancellation fee %d exceeds amount paid %d", in.FeeCents, paid)
		}

		refund := paid - in.FeeCents
		if refund > 0 {
			if _, err := s.wallets.CreditInTx(tx, op, b.CustomerID, models.TxnRefund, refund, "booking cancellation refund", b.BookingNumber); err != nil {
				return err
			}
		}
		if p != nil && p.Status == models.PaymentCompleted {
			p.Status = models.PaymentCancelled
			if err := tx.SavePayment(p); err != nil {
				return err
			}
		}

		b.CancellationReason = strings.TrimSpace(in.Reason)
		b.CancellationActor = in.ActorID
		b.CancellationFee = in.FeeCents
		b.RefundCents = refund
		if err := ApplyTransition(op, b, models.BookingCancelled, time.Now()); err != nil {
			return err
		}
		if err := tx.SaveBooking(b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	s.notifier.Publish(ctx, notify.Event{Topic: "booking.cancelled", EntityID: out.ID, Detail: map[string]interface{}{
		"refund_cents": out.RefundCents,
	}})
	return out, nil
}

// Dispute 进入争议：任意状态可达，对应支付转入 ON_HOLD 冻结放款。
func (s *Service) Dispute(ctx context.Context, bookingID string) (*models.Booking, error) {
	const op = "booking.Dispute"
	var out *models.Booking
	err := s.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		b, err := s.bookingForUpdate(tx, op, bookingID)
		if err != nil {
			return err
		}
		if err := ApplyTransition(op, b, models.BookingDisputed, time.Now()); err != nil {
			return err
		}
		p, err := tx.PaymentByBookingForUpdate(b.ID)
		if err != nil {
			return err
		}
		if p != nil && p.Status == models.PaymentCompleted && !p.PaidToDriver {
			p.Status = models.PaymentOnHold
			if err := tx.SavePayment(p); err != nil {
				return err
			}
		}
		if err := tx.SaveBooking(b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	s.notifier.Publish(ctx, notify.Event{Topic: "booking.disputed", EntityID: out.ID})
	return out, nil
}

// Approve 管理员审核通过（不改变状态机位置）。
func (s *Service) Approve(ctx context.Context, bookingID, adminID string) (*models.Booking, error) {
	const op = "booking.Approve"
	if adminID == "" {
		return nil, apperrors.Validationf(op, "admin_id is required")
	}
	var out *models.Booking
	err := s.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		b, err := s.bookingForUpdate(tx, op, bookingID)
		if err != nil {
			return err
		}
		if b.AdminApproved {
			return apperrors.Conflict(op, "booking", b.ID, "booking already approved")
		}
		now := time.Now()
		b.AdminApproved = true
		b.ApprovedBy = adminID
		b.ApprovedAt = &now
		if err := tx.SaveBooking(b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

// Rate 客户评价，仅送达后可评，一单一次。
func (s *Service) Rate(ctx context.Context, bookingID string, rating int, review string) (*models.Booking, error) {
	const op = "booking.Rate"
	if rating < 1 || rating > 5 {
		return nil, apperrors.Validationf(op, "rating must be 1-5, got %d", rating)
	}
	var out *models.Booking
	err := s.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		b, err := s.bookingForUpdate(tx, op, bookingID)
		if err != nil {
			return err
		}
		if b.Status != models.BookingDelivered {
			return apperrors.Conflict(op, "booking", b.ID, "only delivered bookings can be rated")
		}
		if b.Rating != 0 {
			return apperrors.Conflict(op, "booking", b.ID, "booking already rated")
		}
		b.Rating = rating
		b.Review = strings.TrimSpace(review)
		if err := tx.SaveBooking(b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

// Get 读取运单。
func (s *Service) Get(ctx context.Context, bookingID string) (*models.Booking, error) {
	const op = "booking.Get"
	var out *models.Booking
	err := s.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		b, err := s.bookingForUpdate(tx, op, bookingID)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

func (s *Service) bookingForUpdate(tx ledgerstore.Tx, op, bookingID string) (*models.Booking, error) {
	b, err := tx.BookingForUpdate(bookingID)
	if errors.Is(err, ledgerstore.ErrNotFound) {
		return nil, apperrors.NotFound(op, "booking", bookingID)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// newBookingNumber 对外单号：FB + 日期 + uuid 前 8 位。
func newBookingNumber(now time.Time) string {
	return "FB" + now.UTC().Format("20060102") + "-" + strings.ToUpper(uuid.NewString()[:8])
}
