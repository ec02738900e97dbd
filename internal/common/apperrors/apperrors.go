package apperrors

import (
	"errors"
	"fmt"
)

// Kind 错误分类（与调用方约定的稳定错误语义，见各 service 注释）。
type Kind string

const (
	KindNotFound           Kind = "not_found"            // 引用的实体不存在
	KindConflict           Kind = "conflict"             // 违反唯一性/重复释放等冲突
	KindInsufficientFunds  Kind = "insufficient_funds"   // 余额不足
	KindInvalidTransition  Kind = "invalid_transition"   // 非法状态流转
	KindValidation         Kind = "validation"           // 参数校验失败
	KindStorageUnavailable Kind = "storage_unavailable"  // 存储层瞬时故障，可携带幂等键重试
)

// Error 业务错误：带上实体/操作上下文，方便日志与对外提示。
type Error struct {
	Kind   Kind
	Entity string // 实体类型，如 vehicle / booking / wallet_account
	ID     string // 实体 ID（可为空）
	Op     string // 触发错误的操作，如 wallet.Debit
	Msg    string
	Err    error // 底层错误（存储错误等）
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Entity != "" && e.ID != "" {
		return fmt.Sprintf("%s: %s %s=%s: %s", e.Op, string(e.Kind), e.Entity, e.ID, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, string(e.Kind), msg)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound 实体不存在。
func NotFound(op, entity, id string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id, Op: op, Msg: entity + " not found"}
}

// Conflict 冲突（第二条 active 记录、重复释放等）。
func Conflict(op, entity, id, msg string) *Error {
	return &Error{Kind: KindConflict, Entity: entity, ID: id, Op: op, Msg: msg}
}

// InsufficientFunds 余额不足。
func InsufficientFunds(op, accountID string, wantCents, haveCents int64) *Error {
	return &Error{
		Kind:   KindInsufficientFunds,
		Entity: "wallet_account",
		ID:     accountID,
		Op:     op,
		Msg:    fmt.Sprintf("insufficient funds: need %d, have %d", wantCents, haveCents),
	}
}

// InvalidTransition 非法状态流转。
func InvalidTransition(op, entity, id, from, to string) *Error {
	return &Error{
		Kind:   KindInvalidTransition,
		Entity: entity,
		ID:     id,
		Op:     op,
		Msg:    fmt.Sprintf("invalid status transition: %s -> %s", from, to),
	}
}

// Validationf 参数校验失败。
func Validationf(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Storage 存储层故障。调用方可带同一幂等键重试。
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorageUnavailable, Op: op, Err: err}
}

// Wrap 把非业务错误归入存储故障；业务错误原样透传。
// service 层在事务收尾处统一调用，保证对外只暴露上面的分类。
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Storage(op, err)
}

// KindOf 取出错误分类；非业务错误返回空串。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsNotFound(err error) bool           { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool           { return KindOf(err) == KindConflict }
func IsInsufficientFunds(err error) bool  { return KindOf(err) == KindInsufficientFunds }
func IsInvalidTransition(err error) bool  { return KindOf(err) == KindInvalidTransition }
func IsValidation(err error) bool         { return KindOf(err) == KindValidation }
func IsStorageUnavailable(err error) bool { return KindOf(err) == KindStorageUnavailable }
