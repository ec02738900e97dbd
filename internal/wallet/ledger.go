// Package wallet 维护参与方钱包：余额 = COMPLETED 流水的折算和，
// 流水只追加不回改，余额不足的扣款不落任何余额变更。
package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/FreightLink/FreightLink/internal/common/apperrors"
	"github.com/FreightLink/FreightLink/internal/ledgerstore"
	"github.com/FreightLink/FreightLink/internal/models"
)

// Ledger 钱包账本服务。
// 同一账户上的并发操作由存储层行锁串行化：余额检查与扣减永远发生在
// 同一个事务单元里，不存在拿旧余额通过检查的窗口。
type Ledger struct {
	store ledgerstore.Store
}

func NewLedger(store ledgerstore.Store) *Ledger {
	return &Ledger{store: store}
}

// ApplyInput 一笔流水的入参。金额单位：分，必须为正，方向由 Type 决定。
type ApplyInput struct {
	OwnerID     string
	Type        models.WalletTxnType
	AmountCents int64
	Description string
	ReferenceID string // 关联运单/支付号，兼作调用方幂等键
}

// OpenAccount 为参与方开户（余额 0）。重复开户报冲突。
func (l *Ledger) OpenAccount(ctx context.Context, ownerID string) (*models.WalletAccount, error) {
	const op = "wallet.OpenAccount"
	if ownerID == "" {
		return nil, apperrors.Validationf(op, "owner_id is required")
	}
	var out *models.WalletAccount
	err := l.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		existing, err := tx.AccountByOwnerForUpdate(ownerID)
		if err != nil && !errors.Is(err, ledgerstore.ErrNotFound) {
			return err
		}
		if existing != nil {
			return apperrors.Conflict(op, "wallet_account", ownerID, "account already exists for owner")
		}
		acct := &models.WalletAccount{
			ID:      uuid.NewString(),
			OwnerID: ownerID,
		}
		if err := tx.CreateAccount(acct); err != nil {
			return err
		}
		out = acct
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

// Credit 入账。
func (l *Ledger) Credit(ctx context.Context, ownerID string, amountCents int64, description, referenceID string) (*models.WalletTransaction, error) {
	return l.Apply(ctx, ApplyInput{OwnerID: ownerID, Type: models.TxnCredit, AmountCents: amountCents, Description: description, ReferenceID: referenceID})
}

// Debit 出账；余额不足报 InsufficientFunds 且余额不变。
func (l *Ledger) Debit(ctx context.Context, ownerID string, amountCents int64, description, referenceID string) (*models.WalletTransaction, error) {
	return l.Apply(ctx, ApplyInput{OwnerID: ownerID, Type: models.TxnDebit, AmountCents: amountCents, Description: description, ReferenceID: referenceID})
}

// Refund 退款入账。
func (l *Ledger) Refund(ctx context.Context, ownerID string, amountCents int64, description, referenceID string) (*models.WalletTransaction, error) {
	return l.Apply(ctx, ApplyInput{OwnerID: ownerID, Type: models.TxnRefund, AmountCents: amountCents, Description: description, ReferenceID: referenceID})
}

// Penalty 罚款出账。
func (l *Ledger) Penalty(ctx context.Context, ownerID string, amountCents int64, description, referenceID string) (*models.WalletTransaction, error) {
	return l.Apply(ctx, ApplyInput{OwnerID: ownerID, Type: models.TxnPenalty, AmountCents: amountCents, Description: description, ReferenceID: referenceID})
}

// ApplyRaw 供外部入口使用：流水类型按闭集解析，未知类型报参数错误，
// 绝不静默兜底成默认类型。
func (l *Ledger) ApplyRaw(ctx context.Context, ownerID, txnType string, amountCents int64, description, referenceID string) (*models.WalletTransaction, error) {
	const op = "wallet.Apply"
	t, err := models.ParseWalletTxnType(op, txnType)
	if err != nil {
		return nil, err
	}
	return l.Apply(ctx, ApplyInput{OwnerID: ownerID, Type: t, AmountCents: amountCents, Description: description, ReferenceID: referenceID})
}

// Apply 记一笔流水并同步余额，两者在同一事务单元内落盘。
func (l *Ledger) Apply(ctx context.Context, in ApplyInput) (*models.WalletTransaction, error) {
	const op = "wallet.Apply"
	if in.OwnerID == "" {
		return nil, apperrors.Validationf(op, "owner_id is required")
	}
	if in.AmountCents <= 0 {
		return nil, apperrors.Validationf(op, "amount must be positive, got %d", in.AmountCents)
	}

	var out *models.WalletTransaction
	err := l.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		acct, err := tx.AccountByOwnerForUpdate(in.OwnerID)
		if errors.Is(err, ledgerstore.ErrNotFound) {
			return apperrors.NotFound(op, "wallet_account", in.OwnerID)
		}
		if err != nil {
			return err
		}
		if err := applyToBalance(op, acct, in.Type, in.AmountCents); err != nil {
			return err
		}
		txn := newTransaction(acct.ID, in, models.TxnCompleted)
		if err := tx.CreateWalletTransaction(txn); err != nil {
			return err
		}
		if err := tx.SaveAccount(acct); err != nil {
			return err
		}
		out = txn
		return nil
	})
	if apperrors.IsInsufficientFunds(err) {
		// 留一条 FAILED 流水做审计（余额不动）。写不进去也不掩盖原错误。
		l.logFailed(ctx, in)
		return nil, err
	}
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

// Balance 当前余额（分）。
func (l *Ledger) Balance(ctx context.Context, ownerID string) (int64, error) {
	const op = "wallet.Balance"
	var balance int64
	err := l.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		acct, err := tx.AccountByOwnerForUpdate(ownerID)
		if errors.Is(err, ledgerstore.ErrNotFound) {
			return apperrors.NotFound(op, "wallet_account", ownerID)
		}
		if err != nil {
			return err
		}
		balance = acct.BalanceCents
		return nil
	})
	if err != nil {
		return 0, apperrors.Wrap(op, err)
	}
	return balance, nil
}

// Transactions 账户全部流水（含 FAILED 审计流水）。
func (l *Ledger) Transactions(ctx context.Context, ownerID string) ([]models.WalletTransaction, error) {
	const op = "wallet.Transactions"
	var out []models.WalletTransaction
	err := l.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		acct, err := tx.AccountByOwnerForUpdate(ownerID)
		if errors.Is(err, ledgerstore.ErrNotFound) {
			return apperrors.NotFound(op, "wallet_account", ownerID)
		}
		if err != nil {
			return err
		}
		txns, err := tx.WalletTransactionsByAccount(acct.ID)
		if err != nil {
			return err
		}
		out = txns
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return out, nil
}

// AuditReport 余额与流水折算的核对结果。
type AuditReport struct {
	BalanceCents int64
	FoldCents    int64 // COMPLETED 入账 − COMPLETED 出账
	Consistent   bool
}

// Audit 核对“余额 == 流水折算和”这一核心不变量。
func (l *Ledger) Audit(ctx context.Context, ownerID string) (AuditReport, error) {
	const op = "wallet.Audit"
	var report AuditReport
	err := l.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		acct, err := tx.AccountByOwnerForUpdate(ownerID)
		if errors.Is(err, ledgerstore.ErrNotFound) {
			return apperrors.NotFound(op, "wallet_account", ownerID)
		}
		if err != nil {
			return err
		}
		txns, err := tx.WalletTransactionsByAccount(acct.ID)
		if err != nil {
			return err
		}
		report.BalanceCents = acct.BalanceCents
		report.FoldCents = Fold(txns)
		report.Consistent = report.BalanceCents == report.FoldCents
		return nil
	})
	if err != nil {
		return AuditReport{}, apperrors.Wrap(op, err)
	}
	return report, nil
}

// Reserve 圈存：把可用余额的一部分标记为预留（不扣款）。
func (l *Ledger) Reserve(ctx context.Context, ownerID string, amountCents int64, referenceID string) error {
	const op = "wallet.Reserve"
	if amountCents <= 0 {
		return apperrors.Validationf(op, "amount must be positive, got %d", amountCents)
	}
	err := l.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		acct, err := tx.AccountByOwnerForUpdate(ownerID)
		if errors.Is(err, ledgerstore.ErrNotFound) {
			return apperrors.NotFound(op, "wallet_account", ownerID)
		}
		if err != nil {
			return err
		}
		available := acct.BalanceCents - acct.ReservedCents
		if available < amountCents {
			return apperrors.InsufficientFunds(op, ownerID, amountCents, available)
		}
		acct.ReservedCents += amountCents
		return tx.SaveAccount(acct)
	})
	return apperrors.Wrap(op, err)
}

// ReleaseReservation 解除圈存。超出预留额报参数错误。
func (l *Ledger) ReleaseReservation(ctx context.Context, ownerID string, amountCents int64) error {
	const op = "wallet.ReleaseReservation"
	if amountCents <= 0 {
		return apperrors.Validationf(op, "amount must be positive, got %d", amountCents)
	}
	err := l.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		acct, err := tx.AccountByOwnerForUpdate(ownerID)
		if errors.Is(err, ledgerstore.ErrNotFound) {
			return apperrors.NotFound(op, "wallet_account", ownerID)
		}
		if err != nil {
			return err
		}
		if acct.ReservedCents < amountCents {
			return apperrors.Validationf(op, "release %d exceeds reserved %d", amountCents, acct.ReservedCents)
		}
		acct.ReservedCents -= amountCents
		return tx.SaveAccount(acct)
	})
	return apperrors.Wrap(op, err)
}

// CreditInTx 在调用方的事务单元内入账（供支付放款、运单取消等
// 跨账本的原子操作复用）。锁和回滚边界由外层 Atomically 负责。
func (l *Ledger) CreditInTx(tx ledgerstore.Tx, op, ownerID string, t models.WalletTxnType, amountCents int64, description, referenceID string) (*models.WalletTransaction, error) {
	if !t.Inbound() {
		return nil, apperrors.Validationf(op, "CreditInTx only accepts inbound types, got %s", t)
	}
	if amountCents <= 0 {
		return nil, apperrors.Validationf(op, "amount must be positive, got %d", amountCents)
	}
	acct, err := tx.AccountByOwnerForUpdate(ownerID)
	if errors.Is(err, ledgerstore.ErrNotFound) {
		return nil, apperrors.NotFound(op, "wallet_account", ownerID)
	}
	if err != nil {
		return nil, err
	}
	if err := applyToBalance(op, acct, t, amountCents); err != nil {
		return nil, err
	}
	txn := newTransaction(acct.ID, ApplyInput{
		OwnerID:     ownerID,
		Type:        t,
		AmountCents: amountCents,
		Description: description,
		ReferenceID: referenceID,
	}, models.TxnCompleted)
	if err := tx.CreateWalletTransaction(txn); err != nil {
		return nil, err
	}
	if err := tx.SaveAccount(acct); err != nil {
		return nil, err
	}
	return txn, nil
}

// DebitInTx 在调用方的事务单元内出账（运单确认扣款用）。
func (l *Ledger) DebitInTx(tx ledgerstore.Tx, op, ownerID string, amountCents int64, description, referenceID string) (*models.WalletTransaction, error) {
	if amountCents <= 0 {
		return nil, apperrors.Validationf(op, "amount must be positive, got %d", amountCents)
	}
	acct, err := tx.AccountByOwnerForUpdate(ownerID)
	if errors.Is(err, ledgerstore.ErrNotFound) {
		return nil, apperrors.NotFound(op, "wallet_account", ownerID)
	}
	if err != nil {
		return nil, err
	}
	if err := applyToBalance(op, acct, models.TxnDebit, amountCents); err != nil {
		return nil, err
	}
	txn := newTransaction(acct.ID, ApplyInput{
		OwnerID:     ownerID,
		Type:        models.TxnDebit,
		AmountCents: amountCents,
		Description: description,
		ReferenceID: referenceID,
	}, models.TxnCompleted)
	if err := tx.CreateWalletTransaction(txn); err != nil {
		return nil, err
	}
	if err := tx.SaveAccount(acct); err != nil {
		return nil, err
	}
	return txn, nil
}

// logFailed 审计用：余额不足的扣款留一条 FAILED 流水。独立事务，尽力而为。
func (l *Ledger) logFailed(ctx context.Context, in ApplyInput) {
	_ = l.store.Atomically(ctx, func(tx ledgerstore.Tx) error {
		acct, err := tx.AccountByOwnerForUpdate(in.OwnerID)
		if err != nil {
			return err
		}
		return tx.CreateWalletTransaction(newTransaction(acct.ID, in, models.TxnFailed))
	})
}

func newTransaction(accountID string, in ApplyInput, status models.WalletTxnStatus) *models.WalletTransaction {
	return &models.WalletTransaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Type:        in.Type,
		AmountCents: in.AmountCents,
		Description: in.Description,
		ReferenceID: in.ReferenceID,
		Status:      status,
		CreatedAt:   time.Now(),
	}
}

// applyToBalance 纯余额调整：入账加、出账减，出账前先做余额检查。
func applyToBalance(op string, acct *models.WalletAccount, t models.WalletTxnType, amountCents int64) error {
	if t.Inbound() {
		acct.BalanceCents += amountCents
		return nil
	}
	if acct.BalanceCents < amountCents {
		return apperrors.InsufficientFunds(op, acct.OwnerID, amountCents, acct.BalanceCents)
	}
	acct.BalanceCents -= amountCents
	return nil
}

// Fold 流水折算：COMPLETED 入账 − COMPLETED 出账。其余状态不计入。
func Fold(txns []models.WalletTransaction) int64 {
	var sum int64
	for _, txn := range txns {
		if txn.Status != models.TxnCompleted {
			continue
		}
		if txn.Type.Inbound() {
			sum += txn.AmountCents
		} else {
			sum -= txn.AmountCents
		}
	}
	return sum
}
