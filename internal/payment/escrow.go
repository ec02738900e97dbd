// Package payment 托管账本：客户付款由平台代管，满足放款条件后
// 一次且仅一次地把净额打给收款方钱包。
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/FreightLink/FreightLink/internal/common/apperrors"
	"github.com/FreightLink/FreightLink/internal/ledgerstore"
	"github.com/FreightLink/FreightLink/internal/models"
	"github.com/FreightLink/FreightLink/internal/notify"
	"github.com/FreightLink/FreightLink/internal/wallet"
)

// Escrow 支付托管服务。
// PaidToDriver 闸门与钱包入账在同一事务单元里翻转，
// 重复 Release 读到已翻转的闸门即报冲突，不可能出现双重入账。
type Escrow struct {
	store    ledgerstore.Store
	wallets  *wallet.Ledger
	notifier notify.Notifier
}

func NewEscrow(store ledgerstore.Store, wallets *wallet.Ledger, notifier notify.Notifier) *Escrow {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Escrow{store: store, wallets: wallets, notifier: notifier}
}

// CreateInput 建立托管的入参。金额单位：分。
type CreateInput struct {
	BookingID        string
	AmountCents      int64
	PlatformFeeCents int64
	Method           string
	ReferenceID      string
}

// CreateForBooking 为运单建立一笔 PENDING 托管。一单一笔。
func (e *Escrow) CreateForBooking(ctx context.Context, in CreateInput) (*models.Payment, error) {
	const op = "payment.CreateForBooking"
	if in.BookingID == "" {
		return nil, apperrors.Validationf(op, "booking_id is required")
	}
	if in.AmountCents <= 0 {
		return nil, apperrors.Validationf(op, "amount must be positive, got %d", in.AmountCents)
	}
	if in.PlatformFeeCents < 0 || in.PlatformFeeCents > in.AmountCents {
		return nil, apperrors.Validationf(op, "platform fee %d out of range for amount %d", in.PlatformFeeCents, in.AmountCents)
	}

	var out *models.Payment
	err := e.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		b, err := tx.BookingForUpdate(in.BookingID)
		if errors.Is(err, ledgerstore.ErrNotFound) {
			return apperrors.NotFound(op, "booking", in.BookingID)
		}
		if err != nil {
			return err
		}
		// 托管金额必须等于运单应付金额，退款/放款都以它为基数
		if b.FinalAmountCents > 0 && in.AmountCents != b.FinalAmountCents {
			return apperrors.Validationf(op, "amount %d does not match booking final amount %d", in.AmountCents, b.FinalAmountCents)
		}
		existing, err := tx.PaymentByBookingForUpdate(in.BookingID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.Conflict(op, "payment", existing.ID, "payment already exists for booking")
		}

		p := &models.Payment{
			ID:               uuid.NewString(),
			BookingID:        b.ID,
			CustomerID:       b.CustomerID,
			DriverID:         b.DriverID,
			OwnerID:          b.OwnerID,
			VehicleID:        b.VehicleID,
			AmountCents:      in.AmountCents,
			PlatformFeeCents: in.PlatformFeeCents,
			DriverPayout:     in.AmountCents - in.PlatformFeeCents,
			Method:           in.Method,
			Status:           models.PaymentPending,
			ReferenceID:      in.ReferenceID,
			TransactionID:    uuid.NewString(),
		}
		if err := tx.CreatePayment(p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

// MarkCompleted 客户侧扣款成功后置 COMPLETED。已是 COMPLETED 时幂等返回。
func (e *Escrow) MarkCompleted(ctx context.Context, paymentID, transactionID string) (*models.Payment, error) {
	const op = "payment.MarkCompleted"
	var out *models.Payment
	err := e.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		p, err := e.paymentForUpdate(tx, op, paymentID)
		if err != nil {
			return err
		}
		if p.Status == models.PaymentCompleted {
			out = p
			return nil
		}
		if p.Status != models.PaymentPending {
			return apperrors.InvalidTransition(op, "payment", p.ID, string(p.Status), string(models.PaymentCompleted))
		}
		p.Status = models.PaymentCompleted
		if transactionID != "" {
			p.TransactionID = transactionID
		}
		if err := tx.SavePayment(p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

// MarkFailed 扣款失败：PENDING → FAILED。
func (e *Escrow) MarkFailed(ctx context.Context, paymentID string) (*models.Payment, error) {
	return e.transition(ctx, "payment.MarkFailed", paymentID, models.PaymentPending, models.PaymentFailed)
}

// Hold 争议冻结：COMPLETED → ON_HOLD。已放款的托管不可再冻结。
func (e *Escrow) Hold(ctx context.Context, paymentID string) (*models.Payment, error) {
	const op = "payment.Hold"
	var out *models.Payment
	err := e.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		p, err := e.paymentForUpdate(tx, op, paymentID)
		if err != nil {
			return err
		}
		if p.PaidToDriver {
			return apperrors.Conflict(op, "payment", p.ID, "payment already released")
		}
		if p.Status != models.PaymentCompleted {
			return apperrors.InvalidTransition(op, "payment", p.ID, string(p.Status), string(models.PaymentOnHold))
		}
		p.Status = models.PaymentOnHold
		if err := tx.SavePayment(p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

// Resume 争议解除：ON_HOLD → COMPLETED，重新具备放款资格。
func (e *Escrow) Resume(ctx context.Context, paymentID string) (*models.Payment, error) {
	return e.transition(ctx, "payment.Resume", paymentID, models.PaymentOnHold, models.PaymentCompleted)
}

// Cancel 作废托管：PENDING/ON_HOLD → CANCELLED（退款走运单取消流程）。
func (e *Escrow) Cancel(ctx context.Context, paymentID string) (*models.Payment, error) {
	const op = "payment.Cancel"
	var out *models.Payment
	err := e.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		p, err := e.paymentForUpdate(tx, op, paymentID)
		if err != nil {
			return err
		}
		if p.Status != models.PaymentPending && p.Status != models.PaymentOnHold {
			return apperrors.InvalidTransition(op, "payment", p.ID, string(p.Status), string(models.PaymentCancelled))
		}
		p.Status = models.PaymentCancelled
		if err := tx.SavePayment(p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

// Release 放款：整个核心最重要的单次性操作。
// 前置：Status == COMPLETED 且 PaidToDriver == false，二者任一不满足
// 报 Conflict 且钱包分文不动；满足则在同一事务里给收款方入账净额、
// 翻转 PaidToDriver、写放款时间。重复调用只会读到翻转后的闸门。
func (e *Escrow) Release(ctx context.Context, paymentID string) (*models.Payment, error) {
	const op = "payment.Release"
	var out *models.Payment
	err := e.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		p, err := e.paymentForUpdate(tx, op, paymentID)
		if err != nil {
			return err
		}
		if err := releaseGate(op, p); err != nil {
			return err
		}
		payee := p.OwnerID
		if payee == "" {
			payee = p.DriverID
		}
		if payee == "" {
			return apperrors.Validationf(op, "payment %s has no payee account", p.ID)
		}
		if _, err := e.wallets.CreditInTx(tx, op, payee, models.TxnCredit, p.DriverPayout, "booking payout release", p.ReferenceID); err != nil {
			return err
		}
		now := time.Now()
		p.PaidToDriver = true
		p.ReleasedAt = &now
		if err := tx.SavePayment(p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	e.notifier.Publish(ctx, notify.Event{Topic: "payment.released", EntityID: out.ID, Detail: map[string]interface{}{
		"payout_cents": out.DriverPayout,
	}})
	return out, nil
}

// Get 读取托管。
func (e *Escrow) Get(ctx context.Context, paymentID string) (*models.Payment, error) {
	const op = "payment.Get"
	var out *models.Payment
	err := e.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		p, err := e.paymentForUpdate(tx, op, paymentID)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

// GetByBooking 按运单读取托管；没有则返回 (nil, nil)。
func (e *Escrow) GetByBooking(ctx context.Context, bookingID string) (*models.Payment, error) {
	const op = "payment.GetByBooking"
	var out *models.Payment
	err := e.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		p, err := tx.PaymentByBookingForUpdate(bookingID)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

func (e *Escrow) transition(ctx context.Context, op, paymentID string, from, to models.PaymentStatus) (*models.Payment, error) {
	var out *models.Payment
	err := e.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		p, err := e.paymentForUpdate(tx, op, paymentID)
		if err != nil {
			return err
		}
		if p.Status != from {
			return apperrors.InvalidTransition(op, "payment", p.ID, string(p.Status), string(to))
		}
		p.Status = to
		if err := tx.SavePayment(p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

func (e *Escrow) paymentForUpdate(tx ledgerstore.Tx, op, paymentID string) (*models.Payment, error) {
	p, err := tx.PaymentForUpdate(paymentID)
	if errors.Is(err, ledgerstore.ErrNotFound) {
		return nil, apperrors.NotFound(op, "payment", paymentID)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// releaseGate 放款闸门的纯校验：已放报 already released，
// 状态不对报 not ready，都是冲突类错误且不产生任何副作用。
func releaseGate(op string, p *models.Payment) error {
	if p.PaidToDriver {
		return apperrors.Conflict(op, "payment", p.ID, "payment already released")
	}
	if p.Status != models.PaymentCompleted {
		return apperrors.Conflict(op, "payment", p.ID, "payment not ready for release: status "+string(p.Status))
	}
	return nil
}
