package models

import (
	"time"

	"github.com/FreightLink/FreightLink/internal/common/apperrors"
)

// WalletTxnType 钱包流水类型（闭集）。
// 金额一律非负，方向由类型决定：CREDIT/REFUND 入账，DEBIT/PENALTY 出账。
type WalletTxnType string

const (
	TxnCredit  WalletTxnType = "CREDIT"
	TxnDebit   WalletTxnType = "DEBIT"
	TxnRefund  WalletTxnType = "REFUND"
	TxnPenalty WalletTxnType = "PENALTY"
)

// ParseWalletTxnType 校验并解析流水类型。
// 外部传入未知类型一律报参数错误，不做默认值兜底。
func ParseWalletTxnType(op, s string) (WalletTxnType, error) {
	switch WalletTxnType(s) {
	case TxnCredit, TxnDebit, TxnRefund, TxnPenalty:
		return WalletTxnType(s), nil
	}
	return "", apperrors.Validationf(op, "unknown wallet transaction type: %q", s)
}

// Inbound 该类型是否为入账方向。
func (t WalletTxnType) Inbound() bool {
	return t == TxnCredit || t == TxnRefund
}

// WalletTxnStatus 钱包流水状态。
type WalletTxnStatus string

const (
	TxnPending   WalletTxnStatus = "PENDING"
	TxnCompleted WalletTxnStatus = "COMPLETED"
	TxnFailed    WalletTxnStatus = "FAILED"
	TxnCancelled WalletTxnStatus = "CANCELLED"
)

// WalletAccount 是 wallet_accounts 表的 GORM 模型。
// BalanceCents 必须恒等于该账户 COMPLETED 流水的折算和（入账减出账）。
// ReservedCents 为预留额（已圈存未扣款）。金额单位：分。
type WalletAccount struct {
	ID            string `gorm:"primaryKey;size:36"`
	OwnerID       string `gorm:"uniqueIndex;size:36;not null"` // 账户归属（owner/customer 的参与方 ID）
	BalanceCents  int64  `gorm:"not null;default:0"`
	ReservedCents int64  `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// WalletTransaction 是 wallet_transactions 表的 GORM 模型。
// 创建后不可回改；状态只在同一次操作内落定为 COMPLETED/FAILED/CANCELLED。
type WalletTransaction struct {
	ID          string          `gorm:"primaryKey;size:36"`
	AccountID   string          `gorm:"index;size:36;not null"`
	Type        WalletTxnType   `gorm:"type:varchar(16);not null"`
	AmountCents int64           `gorm:"not null"` // 非负，方向看 Type
	Description string          `gorm:"size:255"`
	ReferenceID string          `gorm:"index;size:64"` // 关联的 booking/payment 号，兼作调用方幂等键
	Status      WalletTxnStatus `gorm:"type:varchar(16);index;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
